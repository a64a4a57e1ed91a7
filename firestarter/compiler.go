package firestarter

import (
	_ "embed"
	"sync"

	"github.com/Hyomoto/tinder/grammar"
	"github.com/Hyomoto/tinder/tinder"
)

//go:embed tinder.peg
var grammarSource string

// DefaultOutputVar names the Crucible variable an implicit write or a
// `write`/`input` statement with no destination targets, unless a host
// overrides it via CompileTo.
const DefaultOutputVar = "OUTPUT"

var (
	loadOnce   sync.Once
	loadedGram *grammar.Grammar
	loadErr    error
)

func loadGrammar() (*grammar.Grammar, error) {
	loadOnce.Do(func() {
		loadedGram, loadErr = grammar.Load(grammarSource, grammar.IgnoreSpaceAndTab)
	})
	return loadedGram, loadErr
}

// Compile parses and lowers a Tinder source script into an executable
// CompiledScript, writing plain output to DefaultOutputVar. grammarVersion
// is stamped onto the result so a host (or the store package) can detect
// a grammar mismatch before trusting a cached script.
func Compile(source, grammarVersion string) (*tinder.CompiledScript, error) {
	return CompileTo(source, grammarVersion, DefaultOutputVar)
}

// CompileTo is Compile with an explicit output-variable name, for hosts
// that route implicit writes to a Crucible slot other than OUTPUT.
func CompileTo(source, grammarVersion, outputVar string) (*tinder.CompiledScript, error) {
	g, err := loadGrammar()
	if err != nil {
		return nil, err
	}
	root, err := g.Parse(source)
	if err != nil {
		return nil, err
	}
	lines := splitLines(root, source)
	return desugarScript(lines, grammarVersion, outputVar)
}
