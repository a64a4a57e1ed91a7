// Command tinder is the reference host for the Tinder scripting
// language: it compiles and runs .tinder scripts, resolves Import
// against the demonstration library catalog, and drives Yield/Input
// prompts from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/Hyomoto/tinder/config"
	"github.com/Hyomoto/tinder/firestarter"
	"github.com/Hyomoto/tinder/tinder"
	"github.com/Hyomoto/tinder/tinder/library"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	budget := flag.Int("budget", 0, "Instruction budget override (0 uses tinder.toml, or unbounded)")
	grammarVersion := flag.String("grammar", "", "Grammar version stamp override (empty uses tinder.toml)")
	configDir := flag.String("config", ".", "Directory to search for tinder.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tinder [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs the given .tinder scripts. With no scripts, starts a REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tinder -i                  # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  tinder game.tinder         # Run a script to completion\n")
		fmt.Fprintf(os.Stderr, "  tinder ./demos/...         # Run every .tinder script under demos/, recursively\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tinder.toml: %v\n", err)
		os.Exit(1)
	}
	if *grammarVersion != "" {
		cfg.Runtime.GrammarVersion = *grammarVersion
	}
	if *budget != 0 {
		cfg.Runtime.Budget = *budget
	}

	if *verbose {
		commonlog.NewInfoMessage(0, fmt.Sprintf("grammar version %s, budget %d", cfg.Runtime.GrammarVersion, cfg.Runtime.Budget))
	}

	paths := flag.Args()
	if len(paths) == 0 || *interactive {
		runREPL(cfg, *verbose)
		return
	}

	for _, path := range paths {
		if err := runPath(path, cfg, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runPath compiles and runs every .tinder script under path, supporting
// a single file, a directory (non-recursive), or a "/..." suffix for a
// recursive walk.
func runPath(path string, cfg *config.Config, verbose bool) error {
	recursive := false
	if strings.HasSuffix(path, "/...") {
		recursive = true
		path = strings.TrimSuffix(path, "/...")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot access %q: %w", abs, err)
	}

	var files []string
	switch {
	case info.IsDir() && recursive:
		err = filepath.Walk(abs, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(p, ".tinder") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %q: %w", abs, err)
		}
	case info.IsDir():
		entries, err := os.ReadDir(abs)
		if err != nil {
			return fmt.Errorf("reading %q: %w", abs, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".tinder") {
				files = append(files, filepath.Join(abs, e.Name()))
			}
		}
	case strings.HasSuffix(abs, ".tinder"):
		files = append(files, abs)
	default:
		return fmt.Errorf("%q is not a .tinder file", abs)
	}

	for _, file := range files {
		if err := runFile(file, cfg, verbose); err != nil {
			return fmt.Errorf("running %q: %w", file, err)
		}
	}
	return nil
}

func runFile(path string, cfg *config.Config, verbose bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if verbose {
		commonlog.NewInfoMessage(0, fmt.Sprintf("compiling %s", path))
	}
	script, err := firestarter.CompileTo(string(source), cfg.Runtime.GrammarVersion, cfg.Runtime.OutputVar)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}
	env := tinder.NewCrucible(0, nil)
	interp := tinder.NewInterpreter(script, env, tinder.WithBudget(cfg.Runtime.Budget))
	return drive(interp, env, script.OutputVar, bufio.NewReader(os.Stdin))
}

// drive runs interp to completion, flushing newly produced output after
// every Run call and servicing Yielded/Imported outcomes from stdin and
// the tinder/library registry respectively.
func drive(interp *tinder.Interpreter, env *tinder.Crucible, outputVar string, in *bufio.Reader) error {
	printed := 0
	flush := func() {
		v, err := env.Get(outputVar)
		if err != nil || v.Kind != tinder.KindString {
			return
		}
		if len(v.Str) > printed {
			fmt.Print(v.Str[printed:])
			printed = len(v.Str)
		}
	}

	var resume *tinder.ResumeCarry
	for {
		outcome := interp.Run(context.Background(), resume)
		flush()
		resume = nil

		switch out := outcome.(type) {
		case tinder.Normal, tinder.Halted:
			return nil

		case tinder.Yielded:
			if out.CarryVar == "" {
				resume = &tinder.ResumeCarry{}
				continue
			}
			line, _ := in.ReadString('\n')
			resume = &tinder.ResumeCarry{InputValue: tinder.String(strings.TrimRight(line, "\r\n")), HasInput: true}

		case tinder.Imported:
			bindings, err := library.Bind(out)
			if err != nil {
				return err
			}
			resume = &tinder.ResumeCarry{ImportBindings: bindings}

		case tinder.Burn:
			return out.Err
		}
	}
}

// runREPL starts a line-at-a-time loop: each line is compiled and run
// as a one-line script sharing a single persistent Crucible, so
// variables set on one line remain visible on the next.
func runREPL(cfg *config.Config, verbose bool) {
	fmt.Println("Tinder REPL (type 'exit' to quit, ':help' for commands)")
	fmt.Printf("Grammar %s, budget %d\n\n", cfg.Runtime.GrammarVersion, cfg.Runtime.Budget)

	env := tinder.NewCrucible(0, nil)
	in := bufio.NewReader(os.Stdin)

	for {
		fmt.Print(">> ")
		raw, err := in.ReadString('\n')
		if err != nil && raw == "" {
			break
		}
		line := strings.TrimSpace(raw)

		switch {
		case line == "exit" || line == "quit":
			return
		case line == "":
			continue
		case strings.HasPrefix(line, ":"):
			handleREPLCommand(line, cfg)
			continue
		}

		script, err := firestarter.CompileTo(line, cfg.Runtime.GrammarVersion, cfg.Runtime.OutputVar)
		if err != nil {
			fmt.Printf("compile error: %v\n", err)
			continue
		}
		interp := tinder.NewInterpreter(script, env, tinder.WithBudget(cfg.Runtime.Budget))
		if err := drive(interp, env, script.OutputVar, in); err != nil {
			fmt.Printf("runtime error: %v\n", err)
		}
	}
	fmt.Println()
}

func handleREPLCommand(cmd string, cfg *config.Config) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Println("REPL commands:")
		fmt.Println("  :help, :h, :?   Show this help")
		fmt.Println("  :libraries      List importable demonstration libraries")
		fmt.Println("  exit, quit      Exit REPL")
	case ":libraries":
		fmt.Println(strings.Join(library.Names(), ", "))
	default:
		fmt.Printf("Unknown command: %s (type :help for commands)\n", cmd)
	}
}
