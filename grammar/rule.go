package grammar

import "regexp"

// Priority is the marker a registered rule carries, controlling how
// its Match node participates in the parent tree. Mirrors spec.md
// §4.1's `<-`/`->`/`--`/`[Name]` vocabulary.
type Priority byte

const (
	// Normal rules are retained as a named Match node ("<-").
	Normal Priority = iota
	// Inline rules have their children promoted into the parent and
	// their own node elided ("->").
	Inline
	// Hidden rules are matched but discarded entirely, used for
	// whitespace/comments/newlines ("--").
	Hidden
	// Strict rules are whitespace-sensitive: no implicit skipping of
	// spaces/tabs around their match ("[Name]").
	Strict
)

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case Inline:
		return "inline"
	case Hidden:
		return "hidden"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// Flags controls whitespace-skipping behavior during matching, set
// once for an entire Grammar at load time.
type Flags byte

const (
	IgnoreSpaceAndTab Flags = 1 << iota
	IgnoreNewline
	Flatten
)

const IgnoreWhitespace = IgnoreSpaceAndTab | IgnoreNewline

// Rule is the closed interface every grammar expression form
// implements: literal string, regex pattern, rule reference, sequence,
// ordered choice, quantifiers, and predicates. Matching is strictly
// ordered — choice returns the first successful branch (spec.md §4.1).
type Rule interface {
	match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError)
}

func skipWS(g *Grammar, input string, pos int, strict bool) int {
	if strict {
		return pos
	}
	for pos < len(input) {
		c := input[pos]
		if c == ' ' || c == '\t' {
			pos++
			continue
		}
		if g.flags&IgnoreNewline != 0 && (c == '\n' || c == '\r') {
			pos++
			continue
		}
		break
	}
	return pos
}

func lineCol(input string, pos int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < pos && i < len(input); i++ {
		if input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return
}

func fail(input string, pos int, ruleName, expected string) *MatchError {
	line, col := lineCol(input, pos)
	return &MatchError{Rule: ruleName, Pos: pos, Line: line, Column: col, Expected: expected}
}

// RuleString matches a literal, case-sensitive token.
type RuleString struct {
	Value string
}

func (r *RuleString) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	if g.flags&IgnoreSpaceAndTab != 0 {
		pos = skipWS(g, input, pos, strict)
	}
	end := pos + len(r.Value)
	if end > len(input) || input[pos:end] != r.Value {
		return nil, fail(input, pos, "", "'"+r.Value+"'")
	}
	return &Match{Text: r.Value, Start: pos, End: end}, nil
}

// RulePattern matches a compiled regular expression anchored at pos.
type RulePattern struct {
	Expr *regexp.Regexp
	Raw  string
}

func (r *RulePattern) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	if g.flags&IgnoreSpaceAndTab != 0 {
		pos = skipWS(g, input, pos, strict)
	}
	loc := r.Expr.FindStringIndex(input[pos:])
	if loc == nil || loc[0] != 0 {
		return nil, fail(input, pos, "", "/"+r.Raw+"/")
	}
	end := pos + loc[1]
	return &Match{Text: input[pos:end], Start: pos, End: end}, nil
}

// RuleReference defers to a named rule registered in the owning
// Grammar, resolved by name at match time rather than by pointer
// patching (spec.md §4.1's "two-phase reference resolution" is
// performed by Grammar.Resolve validating names up front; lookups
// themselves stay dynamic, which costs nothing at this grammar's
// scale and avoids a separate linking pass).
type RuleReference struct {
	Name string
}

func (r *RuleReference) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	return g.matchNamed(r.Name, input, pos, strict)
}

// RuleAll matches a sequence, skipping inter-token whitespace between
// elements unless strict.
type RuleAll struct {
	Children []Rule
}

func (r *RuleAll) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	start := pos
	var children []*Match
	var furthest *MatchError
	for idx, child := range r.Children {
		if idx > 0 {
			pos = skipWS(g, input, pos, strict)
		}
		m, err := child.match(g, input, pos, strict)
		furthest = furthest.deeper(err)
		if m == nil {
			return nil, furthest
		}
		children = appendRetained(children, m)
		pos = m.End
	}
	return &Match{Text: input[start:pos], Start: start, End: pos, Children: children}, nil
}

// RuleChoice tries each alternative in order and returns the first
// success (ordered choice, no ambiguity per spec.md §4.1).
type RuleChoice struct {
	Children []Rule
}

func (r *RuleChoice) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	var furthest *MatchError
	for _, child := range r.Children {
		m, err := child.match(g, input, pos, strict)
		furthest = furthest.deeper(err)
		if m != nil {
			return m, nil
		}
	}
	return nil, furthest
}

// quantifier kind for RuleRepeat, naming the three repetition forms.
type quantKind byte

const (
	quantZeroOrMore quantKind = iota
	quantOneOrMore
	quantOptional
)

// RuleRepeat implements `*`, `+`, and `?`.
type RuleRepeat struct {
	Child Rule
	Kind  quantKind
}

func (r *RuleRepeat) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	start := pos
	var children []*Match
	count := 0
	for {
		tryPos := pos
		if count > 0 {
			tryPos = skipWS(g, input, pos, strict)
		}
		m, err := r.Child.match(g, input, tryPos, strict)
		if m == nil {
			if r.Kind == quantOneOrMore && count == 0 {
				return nil, err
			}
			break
		}
		if m.End == tryPos && count > 0 {
			// zero-width match: stop to avoid an infinite loop.
			break
		}
		children = appendRetained(children, m)
		pos = m.End
		count++
		if r.Kind == quantOptional {
			break
		}
	}
	return &Match{Text: input[start:pos], Start: start, End: pos, Children: children}, nil
}

// RuleAndPredicate is the `&` positive lookahead: succeeds without
// consuming input if its child matches.
type RuleAndPredicate struct {
	Child Rule
}

func (r *RuleAndPredicate) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	m, err := r.Child.match(g, input, pos, strict)
	if m == nil {
		return nil, err
	}
	return &Match{Start: pos, End: pos}, nil
}

// RuleNotPredicate is the `!` negative lookahead: succeeds without
// consuming input only if its child fails.
type RuleNotPredicate struct {
	Child Rule
}

func (r *RuleNotPredicate) match(g *Grammar, input string, pos int, strict bool) (*Match, *MatchError) {
	m, _ := r.Child.match(g, input, pos, strict)
	if m != nil {
		return nil, fail(input, pos, "", "negative predicate to fail")
	}
	return &Match{Start: pos, End: pos}, nil
}

// appendRetained folds a sub-match into a parent's children list: a
// Hidden-priority result (matchNamed's discard path) contributes
// nothing; an Inline result splices its own children directly; an
// anonymous match (Rule == "", e.g. a raw string, regex, group or
// quantifier) splices its children if it has any and otherwise
// contributes nothing; a named match is retained as one child node.
func appendRetained(children []*Match, m *Match) []*Match {
	switch {
	case m == nil:
		return children
	case m.discard:
		return children
	case m.inline:
		return append(children, m.Children...)
	case m.Rule == "" && len(m.Children) > 0:
		return append(children, m.Children...)
	case m.Rule == "":
		return children
	default:
		return append(children, m)
	}
}
