package tinder_test

import (
	"context"
	"math"
	"testing"

	"github.com/Hyomoto/tinder/firestarter"
	"github.com/Hyomoto/tinder/tinder"
)

// runOnce compiles and runs source to completion against a fresh
// Crucible, returning the final OUTPUT value. Used to check that
// running the same script twice produces byte-identical output, the
// determinism property a host needs before it can cache a compiled
// script across sessions.
func runOnce(t *testing.T, source string) string {
	t.Helper()
	script, err := firestarter.Compile(source, "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)
	out := interp.Run(context.Background(), nil)
	if burn, ok := out.(tinder.Burn); ok {
		t.Fatalf("Run burned: %v", burn.Err)
	}
	v, err := env.Get(firestarter.DefaultOutputVar)
	if err != nil {
		t.Fatalf("Get(OUTPUT): %v", err)
	}
	return v.Str
}

func TestDeterministicReplay(t *testing.T) {
	src := "set total to 0\n" +
		"for set i to 0; i < 20; inc i\n" +
		"if i is 10\n" +
		"set total to total + 1000\n" +
		"else\n" +
		"inc total by i\n" +
		"endif\n" +
		"endfor\n" +
		"write total\n"

	first := runOnce(t, src)
	second := runOnce(t, src)
	if first != second {
		t.Fatalf("non-deterministic OUTPUT: %q vs %q", first, second)
	}
	if first != "1180\n" {
		t.Fatalf("OUTPUT = %q, want %q", first, "1180\n")
	}
}

func TestBudgetExceededBurns(t *testing.T) {
	script, err := firestarter.Compile("for set i to 0; i < 1000000; inc i\nendfor\n", "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env, tinder.WithBudget(50))
	out := interp.Run(context.Background(), nil)
	burn, ok := out.(tinder.Burn)
	if !ok {
		t.Fatalf("expected Burn, got %#v", out)
	}
	if burn.Err.Kind != "BudgetExceeded" {
		t.Fatalf("Kind = %q, want BudgetExceeded", burn.Err.Kind)
	}
}

func TestCatchRedirectsBudgetExceeded(t *testing.T) {
	src := "catch \"BudgetExceeded\" at over\n" +
		"for set i to 0; i < 1000000; inc i\n" +
		"endfor\n" +
		"write \"unreachable\"\n" +
		"stop\n" +
		"#over\n" +
		"write \"caught\"\n"

	script, err := firestarter.Compile(src, "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env, tinder.WithBudget(50))
	out := interp.Run(context.Background(), nil)
	if _, ok := out.(tinder.Normal); !ok {
		t.Fatalf("expected Normal after catch, got %#v", out)
	}
	v, err := env.Get(firestarter.DefaultOutputVar)
	if err != nil || v.Str != "caught\n" {
		t.Fatalf("OUTPUT = %q, %v, want %q", v.Str, err, "caught\n")
	}
}

// TestLinearSetWrite covers scenario 1: a linear set/write chain ending
// in an interpolated string literal.
func TestLinearSetWrite(t *testing.T) {
	src := "set a to 2\n" +
		"set b to a + 3\n" +
		"\"answer=[[b]]\"\n"

	got := runOnce(t, src)
	if got != "answer=5\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "answer=5\n")
	}
}

// TestLoginLoop covers scenario 2: a bounded retry loop reading input
// each pass and breaking out once the right value arrives.
func TestLoginLoop(t *testing.T) {
	src := "for set tries to 0; tries < 3; inc tries\n" +
		"input \"\" to guess\n" +
		"if guess is \"right\"\n" +
		"set LOGIN to \"success\"\n" +
		"break\n" +
		"endif\n" +
		"endfor\n"

	script, err := firestarter.Compile(src, "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)

	out := interp.Run(context.Background(), nil)
	for _, wrong := range []string{"wrong", "wrong"} {
		yielded, ok := out.(tinder.Yielded)
		if !ok {
			t.Fatalf("expected Yielded, got %#v", out)
		}
		if yielded.CarryVar != "guess" {
			t.Fatalf("CarryVar = %q, want guess", yielded.CarryVar)
		}
		out = interp.Run(context.Background(), &tinder.ResumeCarry{HasInput: true, InputValue: tinder.String(wrong)})
	}
	if yielded, ok := out.(tinder.Yielded); !ok || yielded.CarryVar != "guess" {
		t.Fatalf("expected final Yielded for guess, got %#v", out)
	}
	out = interp.Run(context.Background(), &tinder.ResumeCarry{HasInput: true, InputValue: tinder.String("right")})
	if _, ok := out.(tinder.Normal); !ok {
		t.Fatalf("expected Normal after successful login, got %#v", out)
	}
	v, err := env.Get("LOGIN")
	if err != nil || v.Str != "success" {
		t.Fatalf("LOGIN = %+v, %v, want success", v, err)
	}
}

// TestIndirectDispatch covers scenario 3: jump @k from {...} dispatches
// on the resolved indirect value directly, falling back to the table's
// "_" entry when the key is absent.
func TestIndirectDispatch(t *testing.T) {
	src := "jump @INPUT from { q: \"quit\", n: \"new_game\", _ : \"invalid\" }\n" +
		"#quit\n" +
		"write \"quit\"\n" +
		"stop\n" +
		"#new_game\n" +
		"write \"new_game\"\n" +
		"stop\n" +
		"#invalid\n" +
		"write \"invalid\"\n"

	script, err := firestarter.Compile(src, "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	run := func(input string) string {
		env := tinder.NewCrucible(0, nil)
		if err := env.Set("INPUT", tinder.String(input)); err != nil {
			t.Fatalf("Set(INPUT): %v", err)
		}
		interp := tinder.NewInterpreter(script, env)
		out := interp.Run(context.Background(), nil)
		if burn, ok := out.(tinder.Burn); ok {
			t.Fatalf("input %q burned: %v", input, burn.Err)
		}
		v, err := env.Get(firestarter.DefaultOutputVar)
		if err != nil {
			t.Fatalf("Get(OUTPUT): %v", err)
		}
		return v.Str
	}

	if got := run("q"); got != "quit\n" {
		t.Fatalf("OUTPUT for q = %q, want %q", got, "quit\n")
	}
	if got := run("zzz"); got != "invalid\n" {
		t.Fatalf("OUTPUT for zzz (default key) = %q, want %q", got, "invalid\n")
	}
}

// TestOrLabelFallthrough covers scenario 4: natural (non-jump) arrival
// at an or-label redirects; arriving via an explicit jump does not.
func TestOrLabelFallthrough(t *testing.T) {
	fallthroughSrc := "#end or retry\n" +
		"stop\n" +
		"#retry\n" +
		"write \"again\"\n"
	if got := runOnce(t, fallthroughSrc); got != "again\n" {
		t.Fatalf("fallthrough OUTPUT = %q, want %q", got, "again\n")
	}

	jumpSrc := "jump end\n" +
		"#end or retry\n" +
		"stop\n" +
		"#retry\n" +
		"write \"again\"\n"

	script, err := firestarter.Compile(jumpSrc, "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)
	out := interp.Run(context.Background(), nil)
	if _, ok := out.(tinder.Halted); !ok {
		t.Fatalf("expected Halted for direct jump to #end, got %#v", out)
	}
}

// TestImportRoundTrip covers scenario 6: an import yields a signal the
// host resolves out-of-band, then resumes with the library bound.
func TestImportRoundTrip(t *testing.T) {
	script, err := firestarter.Compile("import math\nset r to math.sqrt(16)\n", "integration")
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
	if imported.Library != "math" {
		t.Fatalf("Library = %q, want math", imported.Library)
	}

	mathTable := tinder.NewTable()
	mathTable.Set("sqrt", tinder.CallableOf(&tinder.Callable{
		Name: "sqrt",
		Fn: func(env *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
			return tinder.Number(math.Sqrt(args[0].Number)), nil
		},
		Pure: true,
	}))

	out = interp.Run(context.Background(), &tinder.ResumeCarry{
		ImportBindings: map[string]tinder.Value{"math": tinder.TableOf(mathTable)},
	})
	if _, ok := out.(tinder.Normal); !ok {
		t.Fatalf("expected Normal after import resume, got %#v", out)
	}
	v, err := env.Get("r")
	if err != nil || v.Number != 4 {
		t.Fatalf("r = %+v, %v, want 4", v, err)
	}
}

func TestConstRewriteBurns(t *testing.T) {
	script, err := firestarter.Compile("const x = 1\nconst x = 2\n", "integration")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)
	out := interp.Run(context.Background(), nil)
	burn, ok := out.(tinder.Burn)
	if !ok {
		t.Fatalf("expected Burn, got %#v", out)
	}
	if burn.Err.Kind != "ConstRewrite" {
		t.Fatalf("Kind = %q, want ConstRewrite", burn.Err.Kind)
	}
}
