package firestarter

import (
	"strings"

	"github.com/Hyomoto/tinder/grammar"
	"github.com/Hyomoto/tinder/tinder"
)

// unquoteLiteral strips a StringLit match's surrounding quotes and
// resolves its backslash escapes, without touching `[[NAME]]`
// interpolation markers (buildStringLiteral handles those separately).
func unquoteLiteral(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(body[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// buildStringLiteral implements spec.md §4.2 step 6: `[[NAME]]`
// fragments inside a string literal become a compile-time split into
// literal text and name lookups, lowered into an ExprInterpolation
// node. A literal with no interpolation markers lowers to a plain
// ExprLiteral instead, so it folds like any other constant.
func buildStringLiteral(m *grammar.Match, cp *constPool, ln int) (*tinder.Expr, error) {
	text := unquoteLiteral(m.Text)
	var fragments []string
	var names []string
	var cur strings.Builder
	for i := 0; i < len(text); {
		if text[i] == '[' && i+1 < len(text) && text[i+1] == '[' {
			end := strings.Index(text[i+2:], "]]")
			if end < 0 {
				cur.WriteByte(text[i])
				i++
				continue
			}
			name := strings.TrimSpace(text[i+2 : i+2+end])
			fragments = append(fragments, cur.String())
			names = append(names, name)
			cur.Reset()
			i += 2 + end + 2
			continue
		}
		cur.WriteByte(text[i])
		i++
	}
	fragments = append(fragments, cur.String())

	if len(names) == 0 {
		return literalExpr(cp, tinder.String(text), ln), nil
	}
	return &tinder.Expr{Kind: tinder.ExprInterpolation, Fragments: fragments, Names: names, Line: ln}, nil
}
