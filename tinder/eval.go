package tinder

import (
	"strconv"
	"strings"
)

// Eval evaluates e against env, consulting consts for literal lookups.
// It implements spec.md §4.3 in full: operator precedence is already
// baked into the Expr tree shape by the compiler, so evaluation here is
// a straightforward recursive walk; this function only encodes
// semantics (membership exact behavior, dot-chain, indirect, calls,
// interpolation), not precedence.
func Eval(e *Expr, consts []Value, env *Crucible) (Value, error) {
	if e == nil {
		return None(), nil
	}
	switch e.Kind {
	case ExprLiteral:
		if e.ConstIndex < 0 || e.ConstIndex >= len(consts) {
			return None(), burn("BadConstant", e.Line, "constant index %d out of range", e.ConstIndex)
		}
		return consts[e.ConstIndex], nil

	case ExprIdentifier:
		v, err := env.Get(e.Name)
		if err != nil {
			return None(), burn("MissingVariable", e.Line, "variable '%s' not found", e.Name)
		}
		return v, nil

	case ExprIndirect:
		target, err := Eval(e.Inner, consts, env)
		if err != nil {
			return None(), err
		}
		name, ok := indirectName(target)
		if !ok {
			return None(), burn("BadIndirect", e.Line, "indirect target must resolve to a string or number, got %s", target.Kind)
		}
		v, err := env.Get(name)
		if err != nil {
			return None(), burn("MissingVariable", e.Line, "indirect variable '%s' not found", name)
		}
		return v, nil

	case ExprGroup:
		return Eval(e.Inner, consts, env)

	case ExprUnary:
		right, err := Eval(e.Inner, consts, env)
		if err != nil {
			return None(), err
		}
		switch e.Unary {
		case OpNeg:
			if right.Kind != KindNumber {
				return None(), burn("TypeError", e.Line, "unary '-' requires a number, got %s", right.Kind)
			}
			return Number(-right.Number), nil
		case OpNot:
			return Bool(!right.Truthy()), nil
		case OpLen:
			switch right.Kind {
			case KindArray:
				return Number(float64(len(right.Array))), nil
			case KindTable:
				return Number(float64(right.Table.Len())), nil
			case KindString:
				return Number(float64(len(right.Str))), nil
			default:
				return Number(0), nil
			}
		}
		return None(), burn("TypeError", e.Line, "unknown unary operator")

	case ExprBinary:
		return evalBinary(e, consts, env)

	case ExprArray:
		items := make([]Value, len(e.Items))
		for i, it := range e.Items {
			v, err := Eval(it, consts, env)
			if err != nil {
				return None(), err
			}
			items[i] = v
		}
		return ArrayOf(items...), nil

	case ExprTableLit:
		t := NewTable()
		for i, k := range e.Keys {
			v, err := Eval(e.Values[i], consts, env)
			if err != nil {
				return None(), err
			}
			t.Set(k, v)
		}
		return TableOf(t), nil

	case ExprDotAccess:
		return evalDotChain(e, consts, env)

	case ExprCall:
		callee, err := Eval(e.Callee, consts, env)
		if err != nil {
			return None(), err
		}
		if callee.Kind != KindCallable {
			return None(), burn("TypeError", e.Line, "call target is not callable")
		}
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			v, err := Eval(a, consts, env)
			if err != nil {
				return None(), err
			}
			args[i] = v
		}
		return callee.Call.Fn(env, args)

	case ExprInterpolation:
		return evalInterpolation(e, env)
	}
	return None(), burn("TypeError", e.Line, "unknown expression kind %v", e.Kind)
}

func indirectName(v Value) (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return formatNumber(v.Number), true
	default:
		return "", false
	}
}

func evalInterpolation(e *Expr, env *Crucible) (Value, error) {
	var out string
	for i, frag := range e.Fragments {
		out += frag
		if i < len(e.Names) {
			v, err := env.Get(e.Names[i])
			if err != nil {
				v = None()
			}
			out += v.String()
		}
	}
	return String(out), nil
}

func evalDotChain(e *Expr, consts []Value, env *Crucible) (Value, error) {
	cur, err := Eval(e.Base, consts, env)
	if err != nil {
		return None(), err
	}
	for i, seg := range e.Segments {
		if cur.Kind == KindCallable {
			// A callable terminates the chain; no further dot access
			// through its eventual return value.
			return cur, nil
		}
		next, ok := dotStep(cur, seg)
		if !ok {
			if i == 0 {
				base := e.Base.Kind.String()
				if e.Base.Kind == ExprIdentifier {
					base = e.Base.Name
				}
				return None(), burn("MissingVariable", e.Line, "'%s' has no member '%s'", base, seg)
			}
			return None(), nil
		}
		cur = next
	}
	return cur, nil
}

func dotStep(v Value, segment string) (Value, bool) {
	if n, err := strconv.Atoi(segment); err == nil {
		if v.Kind != KindArray {
			return None(), false
		}
		if n < 0 || n >= len(v.Array) {
			return None(), false
		}
		return v.Array[n], true
	}
	if v.Kind != KindTable {
		return None(), false
	}
	return v.Table.Get(segment)
}

func evalBinary(e *Expr, consts []Value, env *Crucible) (Value, error) {
	// "and"/"or" short-circuit, so the right side is evaluated lazily.
	if e.Op == OpAnd {
		left, err := Eval(e.Left, consts, env)
		if err != nil {
			return None(), err
		}
		if !left.Truthy() {
			return left, nil
		}
		return Eval(e.Right, consts, env)
	}
	if e.Op == OpOr {
		left, err := Eval(e.Left, consts, env)
		if err != nil {
			return None(), err
		}
		if left.Truthy() {
			return left, nil
		}
		right, err := Eval(e.Right, consts, env)
		if err != nil {
			return None(), err
		}
		if right.Truthy() {
			return right, nil
		}
		return None(), nil
	}

	left, err := Eval(e.Left, consts, env)
	if err != nil {
		return None(), err
	}
	right, err := Eval(e.Right, consts, env)
	if err != nil {
		return None(), err
	}

	switch e.Op {
	case OpIn:
		return membershipIn(left, right), nil
	case OpAt:
		return membershipAt(left, right), nil
	case OpFrom:
		return membershipFrom(left, right), nil
	case OpIterAt:
		return iterValueAt(left, right), nil
	case OpIterKeyAt:
		return iterKeyAt(left, right), nil
	case OpIterNatural:
		return iterNatural(left, right), nil
	case OpEq:
		return Bool(left.Equal(right)), nil
	case OpNeq:
		return Bool(!left.Equal(right)), nil
	}

	switch e.Op {
	case OpAdd:
		if left.Kind == KindString || right.Kind == KindString {
			return String(left.String() + right.String()), nil
		}
		return arith(e, left, right, func(a, b float64) float64 { return a + b })
	case OpSub:
		return arith(e, left, right, func(a, b float64) float64 { return a - b })
	case OpMul:
		return arith(e, left, right, func(a, b float64) float64 { return a * b })
	case OpDiv:
		if right.Kind == KindNumber && right.Number == 0 {
			return None(), burn("TypeError", e.Line, "division by zero")
		}
		return arith(e, left, right, func(a, b float64) float64 { return a / b })
	case OpIntDiv:
		if right.Kind == KindNumber && right.Number == 0 {
			return None(), burn("TypeError", e.Line, "division by zero")
		}
		return arith(e, left, right, func(a, b float64) float64 { return float64(int64(a / b)) })
	case OpMod:
		if right.Kind == KindNumber && right.Number == 0 {
			return None(), burn("TypeError", e.Line, "division by zero")
		}
		return arith(e, left, right, func(a, b float64) float64 {
			m := int64(a) % int64(b)
			return float64(m)
		})
	case OpLess:
		return compareNumbers(e, left, right, func(a, b float64) bool { return a < b })
	case OpGreater:
		return compareNumbers(e, left, right, func(a, b float64) bool { return a > b })
	case OpLessEq:
		return compareNumbers(e, left, right, func(a, b float64) bool { return a <= b })
	case OpGreaterEq:
		return compareNumbers(e, left, right, func(a, b float64) bool { return a >= b })
	}
	return None(), burn("TypeError", e.Line, "unknown binary operator %v", e.Op)
}

func arith(e *Expr, left, right Value, f func(a, b float64) float64) (Value, error) {
	if left.Kind != KindNumber || right.Kind != KindNumber {
		return None(), burn("TypeError", e.Line, "arithmetic requires numbers, got %s and %s", left.Kind, right.Kind)
	}
	return Number(f(left.Number, right.Number)), nil
}

func compareNumbers(e *Expr, left, right Value, f func(a, b float64) bool) (Value, error) {
	if left.Kind != KindNumber || right.Kind != KindNumber {
		return None(), burn("TypeError", e.Line, "comparison requires numbers, got %s and %s", left.Kind, right.Kind)
	}
	return Bool(f(left.Number, right.Number)), nil
}

// membershipIn implements "x in Y" exactly per spec.md §4.3: sequence
// containment, mapping key containment, or string substring
// containment, returning x on success and none otherwise.
func membershipIn(x, y Value) Value {
	switch y.Kind {
	case KindArray:
		for _, item := range y.Array {
			if item.Equal(x) {
				return x
			}
		}
		return None()
	case KindTable:
		if x.Kind != KindString {
			return None()
		}
		if _, ok := y.Table.Get(x.Str); ok {
			return x
		}
		return None()
	case KindString:
		if x.Kind != KindString {
			return None()
		}
		if strings.Contains(y.Str, x.Str) {
			return x
		}
		return None()
	default:
		return None()
	}
}

// membershipAt implements "x at Y": the index/key where x is found.
func membershipAt(x, y Value) Value {
	switch y.Kind {
	case KindArray:
		for i, item := range y.Array {
			if item.Equal(x) {
				return Number(float64(i))
			}
		}
		return None()
	case KindTable:
		for _, k := range y.Table.Keys() {
			v, _ := y.Table.Get(k)
			if v.Equal(x) {
				return String(k)
			}
		}
		return None()
	default:
		return None()
	}
}

// membershipFrom implements "x from Y": the value at index/key x.
func membershipFrom(x, y Value) Value {
	switch y.Kind {
	case KindArray:
		if x.Kind != KindNumber {
			return None()
		}
		i := int(x.Number)
		if i < 0 || i >= len(y.Array) {
			return None()
		}
		return y.Array[i]
	case KindTable:
		if x.Kind != KindString {
			return None()
		}
		if v, ok := y.Table.Get(x.Str); ok {
			return v
		}
		if v, ok := y.Table.Get("_"); ok {
			return v
		}
		return None()
	default:
		return None()
	}
}

// evalJumpTarget evaluates a jump/catch target the way Eval does,
// except an indirect node resolves to its single inner value instead of
// performing Eval's usual second Crucible lookup: spec.md §4.3 treats
// @E in jump position as the resolved value itself, a label name or
// line number, not a name to look up again. This matters for
// `jump @k from {...}`, where @k's resolved value must become the
// membership key directly.
func evalJumpTarget(e *Expr, consts []Value, env *Crucible) (Value, error) {
	if e == nil {
		return None(), nil
	}
	switch e.Kind {
	case ExprIndirect:
		return Eval(e.Inner, consts, env)
	case ExprGroup:
		return evalJumpTarget(e.Inner, consts, env)
	case ExprBinary:
		switch e.Op {
		case OpFrom, OpIn, OpAt:
			left, err := evalJumpTarget(e.Left, consts, env)
			if err != nil {
				return None(), err
			}
			right, err := Eval(e.Right, consts, env)
			if err != nil {
				return None(), err
			}
			switch e.Op {
			case OpFrom:
				return membershipFrom(left, right), nil
			case OpIn:
				return membershipIn(left, right), nil
			default:
				return membershipAt(left, right), nil
			}
		default:
			return Eval(e, consts, env)
		}
	default:
		return Eval(e, consts, env)
	}
}

// iterValueAt and iterKeyAt give foreach-desugared loops positional
// access across both arrays and tables: arrays yield element/index,
// tables yield value/key in the table's insertion order.
func iterValueAt(y, idx Value) Value {
	if idx.Kind != KindNumber {
		return None()
	}
	i := int(idx.Number)
	switch y.Kind {
	case KindArray:
		if i < 0 || i >= len(y.Array) {
			return None()
		}
		return y.Array[i]
	case KindTable:
		keys := y.Table.Keys()
		if i < 0 || i >= len(keys) {
			return None()
		}
		v, _ := y.Table.Get(keys[i])
		return v
	default:
		return None()
	}
}

func iterKeyAt(y, idx Value) Value {
	if idx.Kind != KindNumber {
		return None()
	}
	i := int(idx.Number)
	switch y.Kind {
	case KindArray:
		return Number(idx.Number)
	case KindTable:
		keys := y.Table.Keys()
		if i < 0 || i >= len(keys) {
			return None()
		}
		return String(keys[i])
	default:
		return None()
	}
}

// iterNatural implements the single-variable foreach binding: the
// element at idx for an array cursor, the key at idx for a table
// cursor.
func iterNatural(y, idx Value) Value {
	if y.Kind == KindTable {
		return iterKeyAt(y, idx)
	}
	return iterValueAt(y, idx)
}
