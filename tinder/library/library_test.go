package library_test

import (
	"context"
	"testing"

	"github.com/Hyomoto/tinder/firestarter"
	"github.com/Hyomoto/tinder/tinder"
	"github.com/Hyomoto/tinder/tinder/library"
)

func TestLookupKnownLibraries(t *testing.T) {
	for _, name := range []string{"math", "text"} {
		if _, ok := library.Lookup(name); !ok {
			t.Errorf("Lookup(%q) = false, want true", name)
		}
	}
	if _, ok := library.Lookup("nope"); ok {
		t.Errorf("Lookup(\"nope\") = true, want false")
	}
}

func TestMathLibraryPure(t *testing.T) {
	lib, _ := library.Lookup("math")
	v, ok := lib.Symbols["abs"]
	if !ok || v.Kind != tinder.KindCallable || !v.Call.Pure {
		t.Fatalf("math.abs = %+v, want a pure callable", v)
	}
}

func TestTextLibraryImpure(t *testing.T) {
	lib, _ := library.Lookup("text")
	v, ok := lib.Symbols["upper"]
	if !ok || v.Kind != tinder.KindCallable || v.Call.Pure {
		t.Fatalf("text.upper = %+v, want an impure callable", v)
	}
}

func TestBindNamespaceImport(t *testing.T) {
	bindings, err := library.Bind(tinder.Imported{Library: "math", Alias: "m"})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	v, ok := bindings["m"]
	if !ok || v.Kind != tinder.KindTable {
		t.Fatalf("bindings[m] = %+v, want a table", v)
	}
	if _, ok := v.Table.Get("sqrt"); !ok {
		t.Fatalf("math table missing sqrt")
	}
}

func TestBindFromImportSymbols(t *testing.T) {
	bindings, err := library.Bind(tinder.Imported{Library: "text", Symbols: []string{"upper", "lower"}})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("len(bindings) = %d, want 2", len(bindings))
	}
	if _, ok := bindings["upper"]; !ok {
		t.Fatalf("bindings missing upper")
	}
}

func TestBindUnknownLibrary(t *testing.T) {
	if _, err := library.Bind(tinder.Imported{Library: "nope"}); err == nil {
		t.Fatal("expected error binding an unknown library")
	}
}

func TestMathCallThroughScript(t *testing.T) {
	script, err := firestarter.Compile("import math as m\nset x to m.abs(-7)\nwrite x\n", "test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)

	out := interp.Run(context.Background(), nil)
	imported, ok := out.(tinder.Imported)
	if !ok {
		t.Fatalf("expected Imported, got %#v", out)
	}
	bindings, err := library.Bind(imported)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out = interp.Run(context.Background(), &tinder.ResumeCarry{ImportBindings: bindings})
	if _, ok := out.(tinder.Normal); !ok {
		t.Fatalf("expected Normal, got %#v", out)
	}

	v, err := env.Get(firestarter.DefaultOutputVar)
	if err != nil || v.Str != "7\n" {
		t.Fatalf("OUTPUT = %q, %v, want %q", v.Str, err, "7\n")
	}
}
