package grammar

import (
	"fmt"
	"regexp"
	"strings"
)

// Load parses a textual grammar description (the `.peg` format spec.md
// §4.1 describes: `Rule <priority> Expression` lines, priority markers
// `<-`/`->`/`--`/`[Name]`) into a Grammar ready for Resolve and Parse.
// The loader is a small hand-written recursive-descent parser over the
// grammar-description syntax itself — spec.md §4.1 explicitly allows
// implementers to "precompile it into an internal rule table" rather
// than bootstrap the loader through the PEG engine recursively.
func Load(source string, flags Flags) (*Grammar, error) {
	g := New(flags)
	defs, err := splitRuleDefs(source)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		p := &exprParser{src: d.expr, pos: 0}
		expr, err := p.parseChoice()
		if err != nil {
			return nil, &GrammarError{Message: fmt.Sprintf("rule '%s': %v", d.name, err)}
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return nil, &GrammarError{Message: fmt.Sprintf("rule '%s': unexpected trailing input %q", d.name, p.src[p.pos:])}
		}
		if err := g.Register(d.name, d.priority, expr); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type ruleSource struct {
	name     string
	priority Priority
	expr     string
}

var ruleHeadPattern = regexp.MustCompile(`(?m)^[ \t]*(\[[A-Za-z_][A-Za-z0-9_]*\]|[A-Za-z_][A-Za-z0-9_]*)[ \t]*(<-|->|--)[ \t]*`)

func stripComments(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

func splitRuleDefs(source string) ([]ruleSource, error) {
	source = stripComments(source)
	heads := ruleHeadPattern.FindAllStringSubmatchIndex(source, -1)
	if len(heads) == 0 {
		return nil, &GrammarError{Message: "no rules found in grammar source"}
	}
	var defs []ruleSource
	for i, h := range heads {
		nameStart, nameEnd := h[2], h[3]
		markerStart, markerEnd := h[4], h[5]
		exprStart := h[1]
		exprEnd := len(source)
		if i+1 < len(heads) {
			exprEnd = heads[i+1][0]
		}
		name := source[nameStart:nameEnd]
		priority := Normal
		strict := strings.HasPrefix(name, "[")
		if strict {
			name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
			priority = Strict
		} else {
			switch source[markerStart:markerEnd] {
			case "<-":
				priority = Normal
			case "->":
				priority = Inline
			case "--":
				priority = Hidden
			}
		}
		defs = append(defs, ruleSource{name: name, priority: priority, expr: strings.TrimSpace(source[exprStart:exprEnd])})
	}
	return defs, nil
}

// exprParser is a small recursive-descent parser for one rule's
// right-hand-side expression: choice ("/") of sequences of prefixed,
// suffixed primaries (strings, regexes, identifiers, groups). A choice
// separator is a '/' followed by whitespace, which is how it is told
// apart from the opening '/' of a regex.
type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parseChoice() (Rule, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	alts := []Rule{first}
	for {
		p.skipSpace()
		if p.peek() != '/' {
			break
		}
		p.pos++
		next, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &RuleChoice{Children: alts}, nil
}

func (p *exprParser) parseSequence() (Rule, error) {
	var items []Rule
	for {
		p.skipSpace()
		c := p.peek()
		if c == 0 || c == ')' {
			break
		}
		// A '/' followed by whitespace (or ending the rule) separates
		// alternatives; any other '/' opens a regex primary.
		if c == '/' && (p.pos+1 == len(p.src) || strings.ContainsRune(" \t\r\n", rune(p.src[p.pos+1]))) {
			break
		}
		item, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty sequence at position %d", p.pos)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &RuleAll{Children: items}, nil
}

func (p *exprParser) parsePrefix() (Rule, error) {
	p.skipSpace()
	switch p.peek() {
	case '&':
		p.pos++
		child, err := p.parseSuffix()
		if err != nil {
			return nil, err
		}
		return &RuleAndPredicate{Child: child}, nil
	case '!':
		p.pos++
		child, err := p.parseSuffix()
		if err != nil {
			return nil, err
		}
		return &RuleNotPredicate{Child: child}, nil
	default:
		return p.parseSuffix()
	}
}

func (p *exprParser) parseSuffix() (Rule, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch p.peek() {
	case '*':
		p.pos++
		return &RuleRepeat{Child: primary, Kind: quantZeroOrMore}, nil
	case '+':
		p.pos++
		return &RuleRepeat{Child: primary, Kind: quantOneOrMore}, nil
	case '?':
		p.pos++
		return &RuleRepeat{Child: primary, Kind: quantOptional}, nil
	default:
		return primary, nil
	}
}

func (p *exprParser) parsePrimary() (Rule, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' at position %d", p.pos)
		}
		p.pos++
		return inner, nil
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '/':
		return p.parseRegex()
	case isIdentStart(c):
		return p.parseIdentifier()
	default:
		return nil, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *exprParser) parseString(quote byte) (Rule, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			b.WriteByte(unescape(p.src[p.pos+1]))
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			return &RuleString{Value: b.String()}, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, fmt.Errorf("unterminated string starting at position %d", start)
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (p *exprParser) parseRegex() (Rule, error) {
	start := p.pos
	p.pos++ // opening '/'
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			b.WriteByte(c)
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if c == '/' {
			p.pos++
			raw := b.String()
			re, err := regexp.Compile("^(?:" + raw + ")")
			if err != nil {
				return nil, fmt.Errorf("invalid regex /%s/: %w", raw, err)
			}
			return &RulePattern{Expr: re, Raw: raw}, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, fmt.Errorf("unterminated regex starting at position %d", start)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *exprParser) parseIdentifier() (Rule, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return &RuleReference{Name: p.src[start:p.pos]}, nil
}
