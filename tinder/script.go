package tinder

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// LabelInfo records where a label resolves and its optional or-label
// fallthrough target, mirroring spec.md §3's "labels: mapping from
// label name to line index; may carry a fallthrough_target".
type LabelInfo struct {
	Line        int
	Fallthrough string
}

// CompiledScript is the executable artifact a compile produces,
// modeled directly on the teacher's bytecode.Chunk: a header, a flat
// instruction list, a constant pool, a label table, and a source map.
type CompiledScript struct {
	GrammarVersion string
	Lines          []Instruction
	Labels         map[string]LabelInfo
	Interrupts     map[string]string
	Constants      []Value
	SourceMap      []int
	OutputVar      string
}

// NewCompiledScript returns an empty script ready for a compiler to
// populate.
func NewCompiledScript(grammarVersion, outputVar string) *CompiledScript {
	return &CompiledScript{
		GrammarVersion: grammarVersion,
		Labels:         make(map[string]LabelInfo),
		Interrupts:     make(map[string]string),
		OutputVar:      outputVar,
	}
}

// Disassemble renders a human-readable listing in the teacher's
// `;`-commented disassembler style, useful for debugging compiled
// scripts and for golden-output tests.
func (s *CompiledScript) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; tinder script, grammar %s, %d lines, %d constants\n", s.GrammarVersion, len(s.Lines), len(s.Constants))
	labelsByLine := make(map[int][]string)
	for name, info := range s.Labels {
		labelsByLine[info.Line] = append(labelsByLine[info.Line], name)
	}
	for i, instr := range s.Lines {
		for _, name := range labelsByLine[i] {
			fmt.Fprintf(&b, "#%s:\n", name)
		}
		src := 0
		if i < len(s.SourceMap) {
			src = s.SourceMap[i]
		}
		fmt.Fprintf(&b, "%04d  %-10s ; src line %d\n", i, instr.Kind, src)
	}
	return b.String()
}

// cborScript is the wire-shape used for CBOR encoding; Expr/Instruction
// already round-trip via normal struct tags. The conversion to this
// method-less type lets MarshalCBOR/UnmarshalCBOR encode the struct
// without calling themselves recursively.
type cborScript CompiledScript

// MarshalCBOR encodes the compiled script for the store package's
// script cache.
func (s *CompiledScript) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*cborScript)(s))
}

// UnmarshalCBOR decodes a script previously written by MarshalCBOR.
func (s *CompiledScript) UnmarshalCBOR(data []byte) error {
	return cbor.Unmarshal(data, (*cborScript)(s))
}
