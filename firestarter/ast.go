package firestarter

import (
	"strconv"
	"strings"

	"github.com/Hyomoto/tinder/grammar"
	"github.com/Hyomoto/tinder/tinder"
)

// line is the source-level, pre-desugar representation of one physical
// script line: which production matched, at which source line number,
// and the single grammar.Match node carrying its payload (nil for a
// blank or comment-only line). The block-structured shape spec.md's
// compiler pipeline describes is recovered from a flat sequence of
// these by desugar.go's block stack, rather than by a second,
// independently-nested parse tree.
type line struct {
	num  int
	rule string // grammar.Match.Rule of the line's payload, "" if blank
	m    *grammar.Match
}

// splitLines walks a parsed Script match into one line per Line child,
// tracking 1-based source line numbers by counting consumed newlines.
func splitLines(script *grammar.Match, source string) []line {
	var out []line
	lineNo := 1
	last := 0
	for _, m := range script.AllChildren("Line") {
		lineNo += strings.Count(source[last:m.Start], "\n")
		last = m.Start
		l := line{num: lineNo}
		if len(m.Children) > 0 {
			payload := m.Children[0]
			l.rule = payload.Rule
			l.m = payload
		}
		out = append(out, l)
	}
	return out
}

// buildExpr converts one Expr-family grammar.Match into a *tinder.Expr,
// baking operator precedence (already shaped by the grammar's rule
// nesting) into the resulting tree. cp accumulates literal values into
// the script's constant pool; ln is the owning source line, stamped
// onto every node since Tinder statements never span multiple lines.
func buildExpr(m *grammar.Match, cp *constPool, ln int) (*tinder.Expr, error) {
	switch m.Rule {
	case "Expr":
		return buildLeftAssoc(m, "ExprRest", cp, ln, func(*grammar.Match) tinder.BinOp { return tinder.OpOr })
	case "AndExpr":
		return buildLeftAssoc(m, "AndExprRest", cp, ln, func(*grammar.Match) tinder.BinOp { return tinder.OpAnd })
	case "CompareExpr":
		return buildLeftAssoc(m, "CompareExprRest", cp, ln, compareOpFor)
	case "MemberExpr":
		return buildLeftAssoc(m, "MemberExprRest", cp, ln, memberOpFor)
	case "AddExpr":
		return buildLeftAssoc(m, "AddExprRest", cp, ln, addOpFor)
	case "MulExpr":
		return buildLeftAssoc(m, "MulExprRest", cp, ln, mulOpFor)

	case "UnaryPrefixed":
		opText := strings.TrimSpace(m.Children[0].Text)
		inner, err := buildExpr(m.Children[1], cp, ln)
		if err != nil {
			return nil, err
		}
		op := tinder.OpNot
		if opText == "-" {
			op = tinder.OpNeg
		}
		return &tinder.Expr{Kind: tinder.ExprUnary, Unary: op, Inner: inner, Line: ln}, nil

	case "Postfix":
		base, err := buildExpr(m.Children[0], cp, ln)
		if err != nil {
			return nil, err
		}
		return buildPostfixTail(base, m.Children[1:], cp, ln)

	case "Number":
		n, err := strconv.ParseFloat(m.Text, 64)
		if err != nil {
			return nil, compileErr(ln, "invalid number literal %q", m.Text)
		}
		return literalExpr(cp, tinder.Number(n), ln), nil

	case "StringLit", "ImplicitWrite":
		return buildStringLiteral(m, cp, ln)

	case "BoolLit":
		return literalExpr(cp, tinder.Bool(strings.TrimSpace(m.Text) == "true"), ln), nil

	case "NoneLit":
		return literalExpr(cp, tinder.None(), ln), nil

	case "Identifier":
		if strings.Contains(m.Text, ".") {
			parts := strings.Split(m.Text, ".")
			base := &tinder.Expr{Kind: tinder.ExprIdentifier, Name: parts[0], Line: ln}
			return &tinder.Expr{Kind: tinder.ExprDotAccess, Base: base, Segments: parts[1:], Line: ln}, nil
		}
		return &tinder.Expr{Kind: tinder.ExprIdentifier, Name: m.Text, Line: ln}, nil

	case "ArrayLit":
		var items []*tinder.Expr
		if al := m.Child("ArgList"); al != nil {
			list, err := buildArgList(al, cp, ln)
			if err != nil {
				return nil, err
			}
			items = list
		}
		return &tinder.Expr{Kind: tinder.ExprArray, Items: items, Line: ln}, nil

	case "TableLit":
		t := &tinder.Expr{Kind: tinder.ExprTableLit, Line: ln}
		if te := m.Child("TableEntries"); te != nil {
			entries := append([]*grammar.Match{te.Child("TableEntry")}, te.AllChildren("TableEntriesRest")...)
			for _, entry := range entries {
				if entry == nil {
					continue
				}
				actual := entry
				if entry.Rule == "TableEntriesRest" {
					actual = entry.Child("TableEntry")
				}
				key, val, err := buildTableEntry(actual, cp, ln)
				if err != nil {
					return nil, err
				}
				t.Keys = append(t.Keys, key)
				t.Values = append(t.Values, val)
			}
		}
		return t, nil

	case "Indirect":
		inner, err := buildExpr(m.Children[0], cp, ln)
		if err != nil {
			return nil, err
		}
		return &tinder.Expr{Kind: tinder.ExprIndirect, Inner: inner, Line: ln}, nil

	case "Group":
		inner, err := buildExpr(m.Children[0], cp, ln)
		if err != nil {
			return nil, err
		}
		return &tinder.Expr{Kind: tinder.ExprGroup, Inner: inner, Line: ln}, nil
	}
	return nil, compileErr(ln, "unrecognized expression production %q", m.Rule)
}

func buildLeftAssoc(m *grammar.Match, restRule string, cp *constPool, ln int, opOf func(*grammar.Match) tinder.BinOp) (*tinder.Expr, error) {
	left, err := buildExpr(m.Children[0], cp, ln)
	if err != nil {
		return nil, err
	}
	for _, rest := range m.AllChildren(restRule) {
		right, err := buildExpr(rest.Children[1], cp, ln)
		if err != nil {
			return nil, err
		}
		left = &tinder.Expr{Kind: tinder.ExprBinary, Left: left, Op: opOf(rest.Children[0]), Right: right, Line: ln}
	}
	return left, nil
}

func compareOpFor(op *grammar.Match) tinder.BinOp {
	text := strings.TrimSpace(op.Text)
	switch text {
	case "==":
		return tinder.OpEq
	case "!=":
		return tinder.OpNeq
	case "<=":
		return tinder.OpLessEq
	case ">=":
		return tinder.OpGreaterEq
	case "<":
		return tinder.OpLess
	case ">":
		return tinder.OpGreater
	case "greater than":
		return tinder.OpGreater
	case "less than":
		return tinder.OpLess
	case "is":
		return tinder.OpEq
	default: // "is not" (whitespace between the two words may vary)
		return tinder.OpNeq
	}
}

func memberOpFor(op *grammar.Match) tinder.BinOp {
	switch strings.TrimSpace(op.Text) {
	case "at":
		return tinder.OpAt
	case "from":
		return tinder.OpFrom
	default:
		return tinder.OpIn
	}
}

func addOpFor(op *grammar.Match) tinder.BinOp {
	switch strings.TrimSpace(op.Text) {
	case "-", "minus":
		return tinder.OpSub
	default:
		return tinder.OpAdd
	}
}

func mulOpFor(op *grammar.Match) tinder.BinOp {
	switch strings.TrimSpace(op.Text) {
	case "//":
		return tinder.OpIntDiv
	case "/", "div":
		return tinder.OpDiv
	case "%", "mod":
		return tinder.OpMod
	default:
		return tinder.OpMul
	}
}

func buildPostfixTail(base *tinder.Expr, tails []*grammar.Match, cp *constPool, ln int) (*tinder.Expr, error) {
	cur := base
	for _, tail := range tails {
		switch tail.Rule {
		case "DotAccess":
			name := tail.Children[0].Text
			if cur.Kind == tinder.ExprDotAccess {
				cur = &tinder.Expr{Kind: tinder.ExprDotAccess, Base: cur.Base, Segments: append(append([]string{}, cur.Segments...), name), Line: ln}
			} else {
				cur = &tinder.Expr{Kind: tinder.ExprDotAccess, Base: cur, Segments: []string{name}, Line: ln}
			}
		case "CallArgs":
			var args []*tinder.Expr
			if al := tail.Child("ArgList"); al != nil {
				list, err := buildArgList(al, cp, ln)
				if err != nil {
					return nil, err
				}
				args = list
			}
			cur = &tinder.Expr{Kind: tinder.ExprCall, Callee: cur, Args: args, Line: ln}
		}
	}
	return cur, nil
}

func buildArgList(m *grammar.Match, cp *constPool, ln int) ([]*tinder.Expr, error) {
	first, err := buildExpr(m.Children[0], cp, ln)
	if err != nil {
		return nil, err
	}
	out := []*tinder.Expr{first}
	for _, rest := range m.AllChildren("ArgListRest") {
		v, err := buildExpr(rest.Children[0], cp, ln)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func buildTableEntry(m *grammar.Match, cp *constPool, ln int) (string, *tinder.Expr, error) {
	keyNode := m.Children[0]
	var key string
	switch keyNode.Rule {
	case "StringLit":
		key = unquoteLiteral(keyNode.Text)
	case "DefaultKey":
		key = "_"
	default:
		key = keyNode.Text
	}
	val, err := buildExpr(m.Children[1], cp, ln)
	if err != nil {
		return "", nil, err
	}
	return key, val, nil
}

// constPool accumulates Value literals for a CompiledScript's Constants
// slice, deduplicating by a cheap textual key so repeated literals (a
// common case for small numbers and short strings) don't bloat it.
type constPool struct {
	values []tinder.Value
	index  map[string]int
}

func newConstPool() *constPool {
	return &constPool{index: make(map[string]int)}
}

func (p *constPool) add(v tinder.Value) int {
	key := v.Kind.String() + ":" + v.String()
	if i, ok := p.index[key]; ok {
		return i
	}
	i := len(p.values)
	p.values = append(p.values, v)
	p.index[key] = i
	return i
}

func literalExpr(cp *constPool, v tinder.Value, line int) *tinder.Expr {
	return &tinder.Expr{Kind: tinder.ExprLiteral, ConstIndex: cp.add(v), Line: line}
}
