package grammar

import "fmt"

type ruleDef struct {
	Name     string
	Priority Priority
	Expr     Rule
}

// Grammar owns a set of named rule definitions and the flags
// controlling whitespace handling across the whole grammar, grounded
// on original_source/firestarter/grammar.py's Grammar class.
type Grammar struct {
	flags Flags
	rules map[string]*ruleDef
	order []string
	root  string
}

// New returns an empty Grammar with the given global flags.
func New(flags Flags) *Grammar {
	return &Grammar{flags: flags, rules: make(map[string]*ruleDef)}
}

// Register adds a named rule. The first registered rule becomes the
// grammar's root (the rule Parse matches against) unless SetRoot
// overrides it.
func (g *Grammar) Register(name string, priority Priority, expr Rule) error {
	if _, exists := g.rules[name]; exists {
		return &GrammarError{Message: fmt.Sprintf("rule '%s' registered twice", name)}
	}
	g.rules[name] = &ruleDef{Name: name, Priority: priority, Expr: expr}
	g.order = append(g.order, name)
	if g.root == "" {
		g.root = name
	}
	return nil
}

// SetRoot names the rule Parse matches the whole input against.
func (g *Grammar) SetRoot(name string) {
	g.root = name
}

// Resolve validates that every RuleReference in the grammar points at
// a registered rule name, the two-phase check spec.md §4.1 implies by
// separating rule description from evaluation.
func (g *Grammar) Resolve() error {
	var missing []string
	seen := make(map[string]bool)
	var walk func(r Rule)
	walk = func(r Rule) {
		switch v := r.(type) {
		case *RuleReference:
			if _, ok := g.rules[v.Name]; !ok && !seen[v.Name] {
				seen[v.Name] = true
				missing = append(missing, v.Name)
			}
		case *RuleAll:
			for _, c := range v.Children {
				walk(c)
			}
		case *RuleChoice:
			for _, c := range v.Children {
				walk(c)
			}
		case *RuleRepeat:
			walk(v.Child)
		case *RuleAndPredicate:
			walk(v.Child)
		case *RuleNotPredicate:
			walk(v.Child)
		}
	}
	for _, name := range g.order {
		walk(g.rules[name].Expr)
	}
	if len(missing) > 0 {
		return &GrammarError{Message: fmt.Sprintf("unresolved rule reference(s): %v", missing)}
	}
	if g.root == "" {
		return &GrammarError{Message: "grammar has no rules registered"}
	}
	return nil
}

// matchNamed matches the named rule and shapes the result per its
// Priority: Normal/Strict wrap a named node, Inline marks the result
// for splicing into the caller, Hidden marks it for discarding.
func (g *Grammar) matchNamed(name string, input string, pos int, strict bool) (*Match, *MatchError) {
	def, ok := g.rules[name]
	if !ok {
		return nil, fail(input, pos, name, "registered rule '"+name+"'")
	}
	childStrict := strict || def.Priority == Strict
	m, err := def.Expr.match(g, input, pos, childStrict)
	if m == nil {
		return nil, fail(input, pos, name, name).deeper(err)
	}
	switch def.Priority {
	case Hidden:
		return &Match{Start: m.Start, End: m.End, Text: m.Text, discard: true}, nil
	case Inline:
		children := m.Children
		if len(children) == 0 && m.Rule == "" {
			children = nil
		}
		return &Match{Start: m.Start, End: m.End, Text: m.Text, Children: children, inline: true}, nil
	default:
		return &Match{Rule: name, Text: m.Text, Start: m.Start, End: m.End, Children: m.Children}, nil
	}
}

// Parse matches the full input against the grammar's root rule,
// reporting the longest-matched prefix's failure position as a fatal
// parse error when the match does not consume the whole input.
func (g *Grammar) Parse(input string) (*Match, error) {
	m, err := g.matchNamed(g.root, input, 0, false)
	if m == nil {
		return nil, toParseError(input, err)
	}
	end := skipWS(g, input, m.End, false)
	if end != len(input) {
		return nil, toParseError(input, fail(input, end, g.root, "end of input").deeper(err))
	}
	return m, nil
}

func toParseError(input string, err *MatchError) error {
	if err == nil {
		return &ParseError{Line: 1, Column: 1, Expected: "valid input"}
	}
	return &ParseError{Line: err.Line, Column: err.Column, Expected: err.Expected, Pos: err.Pos}
}

// RuleNames returns the registered rule names in registration order,
// useful for diagnostics and tests.
func (g *Grammar) RuleNames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}
