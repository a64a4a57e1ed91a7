package firestarter

import "github.com/Hyomoto/tinder/tinder"

// fold implements spec.md §4.2 step 5: an expression with no
// identifier reads, indirects, or calls is evaluated at compile time
// and replaced with a constant-pool literal. Calls are never folded
// here — doing so safely requires consulting a host library's
// statically-safe flag against a bound Crucible, which the compiler
// does not have at this point. `const` does not evaluate calls either:
// evalConstDirective accepts only an expression that folds to a
// literal here.
func fold(e *tinder.Expr, cp *constPool) *tinder.Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case tinder.ExprLiteral, tinder.ExprIdentifier, tinder.ExprCall, tinder.ExprInterpolation:
		return e

	case tinder.ExprIndirect:
		e.Inner = fold(e.Inner, cp)
		return e

	case tinder.ExprGroup:
		e.Inner = fold(e.Inner, cp)
		if e.Inner.Kind == tinder.ExprLiteral {
			return e.Inner
		}
		return e

	case tinder.ExprUnary:
		e.Inner = fold(e.Inner, cp)
		return foldIfLiteral(e, cp, e.Inner.Kind == tinder.ExprLiteral)

	case tinder.ExprBinary:
		e.Left = fold(e.Left, cp)
		e.Right = fold(e.Right, cp)
		return foldIfLiteral(e, cp, e.Left.Kind == tinder.ExprLiteral && e.Right.Kind == tinder.ExprLiteral)

	case tinder.ExprArray:
		allLiteral := true
		for i, it := range e.Items {
			e.Items[i] = fold(it, cp)
			allLiteral = allLiteral && e.Items[i].Kind == tinder.ExprLiteral
		}
		return foldIfLiteral(e, cp, allLiteral)

	case tinder.ExprTableLit:
		allLiteral := true
		for i, v := range e.Values {
			e.Values[i] = fold(v, cp)
			allLiteral = allLiteral && e.Values[i].Kind == tinder.ExprLiteral
		}
		return foldIfLiteral(e, cp, allLiteral)

	case tinder.ExprDotAccess:
		e.Base = fold(e.Base, cp)
		return e
	}
	return e
}

func foldIfLiteral(e *tinder.Expr, cp *constPool, eligible bool) *tinder.Expr {
	if !eligible {
		return e
	}
	v, err := tinder.Eval(e, cp.values, tinder.NewCrucible(0, nil))
	if err != nil {
		return e
	}
	return literalExpr(cp, v, e.Line)
}

// evalConstDirective evaluates a `const` declaration's expression at
// compile time, per spec.md §4.2: "const declarations are always
// evaluated and their value recorded into the constant pool." Since
// the compiler has no bound Crucible yet, the expression must be fully
// foldable on its own terms.
func evalConstDirective(e *tinder.Expr, cp *constPool, ln int) (tinder.Value, error) {
	folded := fold(e, cp)
	if folded.Kind != tinder.ExprLiteral {
		return tinder.None(), compileErr(ln, "const expression must be statically evaluable (no variable reads or calls)")
	}
	return cp.values[folded.ConstIndex], nil
}
