package firestarter

import (
	"context"
	"testing"

	"github.com/Hyomoto/tinder/tinder"
)

func run(t *testing.T, source string) (*tinder.CompiledScript, *tinder.Crucible) {
	t.Helper()
	script, err := Compile(source, "test")
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)
	out := interp.Run(context.Background(), nil)
	if burn, ok := out.(tinder.Burn); ok {
		t.Fatalf("Run(%q) burned: %v", source, burn.Err)
	}
	return script, env
}

func output(t *testing.T, env *tinder.Crucible) string {
	t.Helper()
	v, err := env.Get(DefaultOutputVar)
	if err != nil {
		return ""
	}
	return v.Str
}

func TestCompileWriteLiteral(t *testing.T) {
	_, env := run(t, `write "hello"`)
	if got := output(t, env); got != "hello\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "hello\n")
	}
}

func TestCompileImplicitWrite(t *testing.T) {
	_, env := run(t, `"just text"`)
	if got := output(t, env); got != "just text\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "just text\n")
	}
}

func TestCompileSetAndArithmetic(t *testing.T) {
	_, env := run(t, "set x to 2 + 3 * 4\nwrite x")
	if got := output(t, env); got != "14\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "14\n")
	}
}

func TestCompileIfElseIfElse(t *testing.T) {
	src := "set x to 2\n" +
		"if x is 1\n" +
		"write \"one\"\n" +
		"else if x is 2\n" +
		"write \"two\"\n" +
		"else\n" +
		"write \"other\"\n" +
		"endif\n"
	_, env := run(t, src)
	if got := output(t, env); got != "two\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "two\n")
	}
}

func TestCompileForLoop(t *testing.T) {
	src := "set total to 0\n" +
		"for set i to 0; i < 5; inc i\n" +
		"inc total by i\n" +
		"endfor\n" +
		"write total\n"
	_, env := run(t, src)
	if got := output(t, env); got != "10\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "10\n")
	}
}

func TestCompileForeachArray(t *testing.T) {
	src := "set sum to 0\n" +
		"foreach n in [1, 2, 3]\n" +
		"inc sum by n\n" +
		"endfor\n" +
		"write sum\n"
	_, env := run(t, src)
	if got := output(t, env); got != "6\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "6\n")
	}
}

func TestCompileBreakContinue(t *testing.T) {
	src := "set total to 0\n" +
		"for set i to 0; i < 10; inc i\n" +
		"if i < 3\n" +
		"continue\n" +
		"endif\n" +
		"if i is 7\n" +
		"break\n" +
		"endif\n" +
		"inc total\n" +
		"endfor\n" +
		"write total\n"
	_, env := run(t, src)
	if got := output(t, env); got != "4\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "4\n")
	}
}

func TestCompileConstRejectsNonLiteral(t *testing.T) {
	_, err := Compile("set x to 1\nconst y = x\n", "test")
	if err == nil {
		t.Fatal("expected compile error for const referencing a variable")
	}
}

func TestCompileLabelDunderRejected(t *testing.T) {
	_, err := Compile("#__DUNDER__\n", "test")
	if err == nil {
		t.Fatal("expected compile error for dunder-named label")
	}
}

func TestCompileCommentOnlyLine(t *testing.T) {
	src := "`` just a comment\nwrite \"ok\"\n`` trailing\n"
	_, env := run(t, src)
	if got := output(t, env); got != "ok\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "ok\n")
	}
}

func TestCompileYieldPausesExecution(t *testing.T) {
	script, err := Compile("write \"before\"\nyield\nwrite \"after\"\n", "test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env)

	out := interp.Run(context.Background(), nil)
	if _, ok := out.(tinder.Yielded); !ok {
		t.Fatalf("expected Yielded, got %#v", out)
	}
	if got := output(t, env); got != "before\n" {
		t.Fatalf("OUTPUT before resume = %q, want %q", got, "before\n")
	}

	out = interp.Run(context.Background(), &tinder.ResumeCarry{})
	if _, ok := out.(tinder.Normal); !ok {
		t.Fatalf("expected Normal after resume, got %#v", out)
	}
	if got := output(t, env); got != "before\nafter\n" {
		t.Fatalf("OUTPUT after resume = %q, want %q", got, "before\nafter\n")
	}
}

func TestCompileImportSignal(t *testing.T) {
	script, err := Compile("import math\nwrite \"done\"\n", "test")
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
}

func TestCompileRejectsUnresolvedJumpLabel(t *testing.T) {
	_, err := Compile("jump nowhere\n", "test")
	if err == nil {
		t.Fatal("expected compile error for jump to an undeclared label")
	}
}

func TestCompileRejectsUnresolvedCatchLabel(t *testing.T) {
	_, err := Compile("catch \"TypeError\" at nowhere\n", "test")
	if err == nil {
		t.Fatal("expected compile error for catch targeting an undeclared label")
	}
}

func TestCompileAllowsForwardJumpLabel(t *testing.T) {
	_, env := run(t, "jump skip\nwrite \"unreachable\"\n#skip\nwrite \"reached\"\n")
	if got := output(t, env); got != "reached\n" {
		t.Fatalf("OUTPUT = %q, want %q", got, "reached\n")
	}
}

func TestCompileAllowsIndirectJumpToUndeclaredName(t *testing.T) {
	_, err := Compile("set target to \"elsewhere\"\njump @target\n", "test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
}
