// Package library ships the demonstration libraries a Tinder host can
// offer in response to an Imported StepOutcome: "math" (entries marked
// Pure) and "text" (impure). Neither is part of the core runtime; a
// host is free to resolve Import against its own registry instead, or
// alongside this one. These exist to give the Import signal and the
// call instruction something concrete to exercise,
// grounded on the Directory/Lookup registry shape rather than a
// Tinder-specific one.
package library

import (
	"fmt"

	"github.com/Hyomoto/tinder/tinder"
)

// Library is one resolvable unit named by an import/from-import
// directive: a namespace table for `import X as alias`, plus the same
// entries addressable by bare name for `from X import a, b`.
type Library struct {
	Name    string
	Table   *tinder.Table
	Symbols map[string]tinder.Value
}

var directory = []*Library{
	mathLibrary(),
	textLibrary(),
}

// Lookup finds a registered library by the name an ImportDirective
// names, or reports false if none matches.
func Lookup(name string) (*Library, bool) {
	for _, lib := range directory {
		if lib.Name == name {
			return lib, true
		}
	}
	return nil, false
}

// Names lists every registered library, in registration order.
func Names() []string {
	out := make([]string, len(directory))
	for i, lib := range directory {
		out[i] = lib.Name
	}
	return out
}

// newLibrary builds a Library from a flat name->Value entry set,
// populating both the namespace table (import ... as alias) and the
// bare-name symbol map (from ... import a, b).
func newLibrary(name string, entries map[string]tinder.Value) *Library {
	t := tinder.NewTable()
	symbols := make(map[string]tinder.Value, len(entries))
	for k, v := range entries {
		t.Set(k, v)
		symbols[k] = v
	}
	return &Library{Name: name, Table: t, Symbols: symbols}
}

func callable(name string, pure bool, fn func(env *tinder.Crucible, args []tinder.Value) (tinder.Value, error)) tinder.Value {
	return tinder.CallableOf(&tinder.Callable{Name: name, Fn: fn, Pure: pure})
}

// Bind resolves an Imported outcome against this package's directory,
// producing the bindings a host hands back via
// ResumeCarry.ImportBindings. `import X as alias` binds alias (or X
// itself, absent an alias) to the library's namespace table; `from X
// import a, b` binds each named symbol directly.
func Bind(out tinder.Imported) (map[string]tinder.Value, error) {
	lib, ok := Lookup(out.Library)
	if !ok {
		return nil, fmt.Errorf("library: no such library %q", out.Library)
	}
	if len(out.Symbols) > 0 {
		bindings := make(map[string]tinder.Value, len(out.Symbols))
		for _, sym := range out.Symbols {
			v, ok := lib.Symbols[sym]
			if !ok {
				return nil, fmt.Errorf("library: %q has no symbol %q", lib.Name, sym)
			}
			bindings[sym] = v
		}
		return bindings, nil
	}
	alias := out.Alias
	if alias == "" {
		alias = lib.Name
	}
	return map[string]tinder.Value{alias: tinder.TableOf(lib.Table)}, nil
}
