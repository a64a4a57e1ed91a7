package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[runtime]
grammar-version = "2"
budget = 5000
output-var = "RESULT"

[logging]
level = "debug"

[source]
dirs = ["scripts", "demos"]
entry = "start.tinder"
`
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.GrammarVersion != "2" {
		t.Errorf("grammar version = %q, want 2", cfg.Runtime.GrammarVersion)
	}
	if cfg.Runtime.Budget != 5000 {
		t.Errorf("budget = %d, want 5000", cfg.Runtime.Budget)
	}
	if cfg.Runtime.OutputVar != "RESULT" {
		t.Errorf("output var = %q, want RESULT", cfg.Runtime.OutputVar)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Source.Dirs) != 2 || cfg.Source.Entry != "start.tinder" {
		t.Errorf("source = %+v, want dirs=[scripts demos] entry=start.tinder", cfg.Source)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("[runtime]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.GrammarVersion != "1" || cfg.Runtime.Budget != 100000 {
		t.Errorf("defaults not applied: %+v", cfg.Runtime)
	}
	if len(cfg.Source.Dirs) != 1 || cfg.Source.Dirs[0] != "scripts" {
		t.Errorf("source dirs default not applied: %+v", cfg.Source)
	}
}

func TestFindAndLoadNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if cfg.Runtime.GrammarVersion != "1" {
		t.Errorf("expected default config, got %+v", cfg.Runtime)
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, fileName), []byte("[runtime]\ngrammar-version = \"9\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if cfg.Runtime.GrammarVersion != "9" {
		t.Errorf("grammar version = %q, want 9 (found by walking up)", cfg.Runtime.GrammarVersion)
	}
}
