// Package tinder implements the Tinder scripting language runtime: the
// value model, the Crucible variable environment, the expression
// evaluator, and the flat-line interpreter.
package tinder

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Kind discriminates the variants of Value.
type Kind byte

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindTable
	KindCallable
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	case KindCallable:
		return "callable"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Callable is a host or library function invoked from a Tinder script.
// env is the Crucible active at the call site; args are the evaluated
// positional arguments. A Callable reports failure by returning a
// non-nil error: a *TinderBurn keeps its Kind, a constant-rewrite
// CrucibleError burns as ConstRewrite, and any other error burns as
// TypeError. It cannot raise Yielded, Imported or Halted.
type Callable struct {
	Name  string
	Fn    func(env *Crucible, args []Value) (Value, error)
	Pure  bool // marks a side-effect-free callable; the compiler never folds calls, so nothing consults it at compile time
}

// Handle is an opaque host-provided value (sprite/canvas references and
// similar) that Tinder scripts carry around but never inspect directly.
type Handle struct {
	Kind string
	Data any
}

// Value is the tagged union of every value a Tinder script can observe.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Table  *Table
	Call   *Callable
	Handle *Handle
}

// Table is an insertion-ordered string-keyed map, matching spec.md's
// "mapping from string key to Value (insertion-ordered)".
type Table struct {
	keys   []string
	values map[string]Value
}

// NewTable returns an empty, insertion-ordered table.
func NewTable() *Table {
	return &Table{values: make(map[string]Value)}
}

// Get returns the value at key and whether it was present.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return None(), false
	}
	v, ok := t.values[key]
	return v, ok
}

// Set inserts or overwrites key, preserving original insertion order on
// overwrite.
func (t *Table) Set(key string, v Value) {
	if _, exists := t.values[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Clone returns a shallow copy with its own key/value storage.
func (t *Table) Clone() *Table {
	out := NewTable()
	if t == nil {
		return out
	}
	for _, k := range t.keys {
		out.Set(k, t.values[k])
	}
	return out
}

// tableWire is Table's CBOR wire shape: Table's own fields are
// unexported, so fxamacker/cbor's default reflection would otherwise
// encode it as an empty struct and silently drop every entry on a
// store round trip. Keys travels alongside Values to preserve
// insertion order, matching original_source/tinder/crucible.py's
// serialize() treatment of dict-valued entries.
type tableWire struct {
	Keys   []string
	Values map[string]Value
}

// MarshalCBOR implements cbor.Marshaler.
func (t *Table) MarshalCBOR() ([]byte, error) {
	if t == nil {
		return cbor.Marshal(tableWire{})
	}
	return cbor.Marshal(tableWire{Keys: t.keys, Values: t.values})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (t *Table) UnmarshalCBOR(data []byte) error {
	var wire tableWire
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.keys = wire.Keys
	t.values = wire.Values
	if t.values == nil {
		t.values = make(map[string]Value)
	}
	return nil
}

// Constructors.

func None() Value { return Value{Kind: KindNone} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func ArrayOf(items ...Value) Value {
	return Value{Kind: KindArray, Array: items}
}

func TableOf(t *Table) Value { return Value{Kind: KindTable, Table: t} }

func CallableOf(c *Callable) Value { return Value{Kind: KindCallable, Call: c} }

func HandleOf(h *Handle) Value { return Value{Kind: KindHandle, Handle: h} }

// Truthy implements spec.md §3's truthiness rule: none, false, 0, empty
// string, empty array, and empty table are falsey; everything else is
// truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		return len(v.Array) > 0
	case KindTable:
		return v.Table.Len() > 0
	case KindCallable, KindHandle:
		return true
	default:
		return false
	}
}

// Equal reports value equality. Arrays and tables compare element-wise;
// callables and handles compare by identity of their underlying pointer.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		// Numbers and bools never cross-compare equal, matching the
		// source's reliance on Python's own equality (no coercion).
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Number == other.Number
	case KindString:
		return v.Str == other.Str
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindTable:
		if v.Table.Len() != other.Table.Len() {
			return false
		}
		for _, k := range v.Table.Keys() {
			a, _ := v.Table.Get(k)
			b, ok := other.Table.Get(k)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	case KindCallable:
		return v.Call == other.Call
	case KindHandle:
		return v.Handle == other.Handle
	default:
		return false
	}
}

// String coerces v to its script-visible string form, used by write
// statements and string interpolation. none renders as the empty
// string per spec.md §4.3.
func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return ""
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Number)
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindTable:
		keys := v.Table.Keys()
		sort.Strings(keys) // deterministic repr only; lookup order is insertion order
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			val, _ := v.Table.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindCallable:
		if v.Call != nil && v.Call.Name != "" {
			return "<callable " + v.Call.Name + ">"
		}
		return "<callable>"
	case KindHandle:
		if v.Handle != nil {
			return "<handle " + v.Handle.Kind + ">"
		}
		return "<handle>"
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
