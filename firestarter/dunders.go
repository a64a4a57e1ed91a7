package firestarter

import "strings"

// isDunder reports whether name is a reserved double-underscore
// variable per spec.md's Crucible description: "keys starting and
// ending with a double underscore are reserved dunders." The
// interpreter itself (tinder.NewInterpreter) is responsible for
// seeding __LINE__/__STACK__ at entry; the compiler's only
// responsibility toward dunders is refusing to let source declare one
// as a constant or label, since both are meant to be script-chosen
// names, not the reserved observability surface.
func isDunder(name string) bool {
	return len(name) >= 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// Recognized loop-cursor dunders, synthesized by the for/foreach
// desugar in desugar.go rather than ever appearing in source text.
const (
	dunderIter   = "__ITER__"
	dunderIndex  = "__INDEX__"
	dunderLength = "__LENGTH__"
)
