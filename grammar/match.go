// Package grammar implements a generic PEG (Parsing Expression Grammar)
// evaluator: a Rule hierarchy, a Match result tree, and a Grammar that
// owns rule registration and parsing. It is grounded on
// original_source/firestarter/grammar.py's Rule/Grammar design,
// re-expressed in Go as a closed Rule interface with typed struct
// implementations rather than Python's class hierarchy.
package grammar

import "fmt"

// Match is a node in the parse tree: the rule that produced it, the
// matched source span, and any retained children. Hidden rules
// contribute to Start/End but never appear as a Match themselves;
// inline rules splice their children into the parent instead of
// nesting.
type Match struct {
	Rule     string
	Text     string
	Start    int
	End      int
	Children []*Match

	// discard and inline are set internally by matchNamed while
	// assembling the tree (Hidden and Inline priority results,
	// respectively) and never survive into a tree returned from Parse.
	discard bool
	inline  bool
}

func (m *Match) String() string {
	if m == nil {
		return "<nil match>"
	}
	return fmt.Sprintf("%s(%q)[%d:%d]", m.Rule, m.Text, m.Start, m.End)
}

// Child returns the first direct child matched under the given rule
// name, or nil.
func (m *Match) Child(rule string) *Match {
	for _, c := range m.Children {
		if c.Rule == rule {
			return c
		}
	}
	return nil
}

// AllChildren returns every direct child matched under the given rule
// name, in order.
func (m *Match) AllChildren(rule string) []*Match {
	var out []*Match
	for _, c := range m.Children {
		if c.Rule == rule {
			out = append(out, c)
		}
	}
	return out
}
