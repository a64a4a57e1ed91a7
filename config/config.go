// Package config loads tinder.toml host configuration: which grammar
// version a compiled script must match, the default instruction budget
// an interpreter runs under, log verbosity, and where the CLI looks for
// scripts. Grounded on the teacher's manifest.Manifest/Load/FindAndLoad
// (package manifest), generalized from a build manifest to a runtime
// host config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the parsed shape of tinder.toml.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Logging Logging `toml:"logging"`
	Source  Source  `toml:"source"`

	// Dir is the directory containing the loaded file, set by Load.
	Dir string `toml:"-"`
}

// Runtime configures the interpreter's execution limits and the
// grammar a compiled script must have been built against.
type Runtime struct {
	GrammarVersion string `toml:"grammar-version"`
	Budget         int    `toml:"budget"`
	OutputVar      string `toml:"output-var"`
}

// Logging holds the [logging] table. cmd/tinder does not apply Level;
// its logging is switched only by the -v flag.
type Logging struct {
	Level string `toml:"level"`
}

// Source holds the [source] table (script directories and entry file).
// cmd/tinder does not read it; scripts are named on its command line.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

const fileName = "tinder.toml"

// defaults fills in every field a host can reasonably omit.
func defaults() Config {
	return Config{
		Runtime: Runtime{GrammarVersion: "1", Budget: 100000, OutputVar: "OUTPUT"},
		Logging: Logging{Level: "info"},
		Source:  Source{Dirs: []string{"scripts"}, Entry: "main.tinder"},
	}
}

// Load parses tinder.toml from dir, filling in defaults for anything
// the file omits or doesn't set at all.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("config: cannot resolve path %s: %w", dir, err)
	}
	if len(cfg.Source.Dirs) == 0 {
		cfg.Source.Dirs = []string{"scripts"}
	}
	return &cfg, nil
}

// FindAndLoad walks up from startDir looking for tinder.toml, loading
// the first one found. It returns a default-only Config, not an error,
// when none exists anywhere up to the filesystem root — a host runs
// fine unconfigured.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, fileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			cfg := defaults()
			cfg.Dir = dir
			return &cfg, nil
		}
		dir = parent
	}
}
