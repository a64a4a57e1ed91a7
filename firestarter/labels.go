package firestarter

import (
	"strings"

	"github.com/Hyomoto/tinder/tinder"
)

// resolveLabels is spec.md §4.2 step 3's second label-resolution pass,
// run once the flat line table and the label index are both complete.
// A bare identifier or string-literal jump target is "static" by
// construction: original_source/tinder's own jump table binds every
// label name as a plain lookup, so a plain name in jump position is
// always meant as a label reference, never a variable read. Such a
// target is rewritten into a literal label-name constant so the
// interpreter resolves it through Script.Labels instead of attempting
// a Crucible lookup, and is a fatal compile error when it names no
// declared label. Anything else — @indirect, a binary/from expression,
// a call, a dotted path — is a runtime-computed target and is left
// untouched, its resolution deferred to execution exactly as spec.md
// allows. `catch ... at label` targets are always static, so every one
// is checked outright.
func resolveLabels(script *tinder.CompiledScript, cp *constPool) error {
	for idx := range script.Lines {
		instr := &script.Lines[idx]
		switch instr.Kind {
		case tinder.InstrJump:
			resolved, err := resolveStaticTarget(instr.JumpTarget, script, cp)
			if err != nil {
				return err
			}
			instr.JumpTarget = resolved

		case tinder.InstrCatch:
			if _, ok := script.Labels[instr.CatchLabel]; !ok {
				return compileErr(instr.Line, "catch target '%s' is not a declared label", instr.CatchLabel)
			}
		}
	}
	return nil
}

// resolveStaticTarget rewrites a bare-identifier or string-literal jump
// target that names a declared label into a literal constant, fails
// compilation when such a static-looking target names no label at all,
// and passes every other expression kind through unchanged as a
// deferred runtime target.
func resolveStaticTarget(target *tinder.Expr, script *tinder.CompiledScript, cp *constPool) (*tinder.Expr, error) {
	if target == nil {
		return nil, nil
	}
	switch target.Kind {
	case tinder.ExprIdentifier:
		if strings.Contains(target.Name, ".") {
			// A dotted path is always a variable read, never a label name.
			return target, nil
		}
		if _, ok := script.Labels[target.Name]; !ok {
			return nil, compileErr(target.Line, "jump target '%s' is not a declared label", target.Name)
		}
		return literalExpr(cp, tinder.String(target.Name), target.Line), nil

	case tinder.ExprLiteral:
		if target.ConstIndex < 0 || target.ConstIndex >= len(cp.values) {
			return target, nil
		}
		if v := cp.values[target.ConstIndex]; v.Kind == tinder.KindString {
			if _, ok := script.Labels[v.Str]; !ok {
				return nil, compileErr(target.Line, "jump target label '%s' is not a declared label", v.Str)
			}
		}
		return target, nil

	default:
		return target, nil
	}
}
