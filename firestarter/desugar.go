package firestarter

import (
	"fmt"

	"github.com/Hyomoto/tinder/grammar"
	"github.com/Hyomoto/tinder/tinder"
)

// blockKind tags an open block-structured construct on emitter.stack
// while the flat line sequence is desugared into instructions.
type blockKind byte

const (
	blockIf blockKind = iota
	blockFor
	blockForeach
)

type blockFrame struct {
	kind blockKind

	// if-chain
	endLabel  string // shared label every branch's body jumps to
	nextLabel string // label for the next branch's guard; "" once else seen

	// for/foreach
	headerLabel string // continue target
	exitLabel   string // break target (== endLabel)
	stepInstr   *tinder.Instruction
}

// emitter accumulates a CompiledScript while walking a flat line list.
type emitter struct {
	script *tinder.CompiledScript
	cp     *constPool
	stack  []*blockFrame
	gen    int
}

func newEmitter(grammarVersion, outputVar string) *emitter {
	return &emitter{script: tinder.NewCompiledScript(grammarVersion, outputVar), cp: newConstPool()}
}

func (e *emitter) newLabel(prefix string) string {
	e.gen++
	return fmt.Sprintf("__%s_%d__", prefix, e.gen)
}

func (e *emitter) emit(instr tinder.Instruction) int {
	idx := len(e.script.Lines)
	e.script.Lines = append(e.script.Lines, instr)
	e.script.SourceMap = append(e.script.SourceMap, instr.Line)
	return idx
}

func (e *emitter) defineLabel(name string) {
	e.script.Labels[name] = tinder.LabelInfo{Line: len(e.script.Lines)}
}

func (e *emitter) labelExpr(name string, ln int) *tinder.Expr {
	return literalExpr(e.cp, tinder.String(name), ln)
}

func (e *emitter) identExpr(name string, ln int) *tinder.Expr {
	return &tinder.Expr{Kind: tinder.ExprIdentifier, Name: name, Line: ln}
}

func (e *emitter) top() *blockFrame {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

func (e *emitter) push(f *blockFrame) { e.stack = append(e.stack, f) }

func (e *emitter) pop() *blockFrame {
	f := e.top()
	if f == nil {
		return nil
	}
	e.stack = e.stack[:len(e.stack)-1]
	return f
}

// innermostLoop finds the nearest enclosing for/foreach frame for
// break/continue, per spec.md §4.2 step 4.
func (e *emitter) innermostLoop() *blockFrame {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].kind != blockIf {
			return e.stack[i]
		}
	}
	return nil
}

func notExpr(cond *tinder.Expr, ln int) *tinder.Expr {
	return &tinder.Expr{Kind: tinder.ExprUnary, Unary: tinder.OpNot, Inner: cond, Line: ln}
}

// desugarScript walks the flat line sequence and emits a complete
// CompiledScript, implementing spec.md §4.2 steps 1-4: block
// delimiters lower into guard jumps and labels; break/continue lower
// into jumps at the innermost loop's exit/header labels.
func desugarScript(lines []line, grammarVersion, outputVar string) (*tinder.CompiledScript, error) {
	e := newEmitter(grammarVersion, outputVar)

	for _, l := range lines {
		ln := l.num
		switch l.rule {
		case "":
			continue

		case "Label":
			name := l.m.Children[0].Text
			if isDunder(name) {
				return nil, compileErr(ln, "label '%s' may not use dunder naming", name)
			}
			e.defineLabel(name)
			if tail := l.m.Child("OrTail"); tail != nil {
				target := tail.Children[0].Text
				info := e.script.Labels[name]
				info.Fallthrough = target
				e.script.Labels[name] = info
				e.emit(tinder.Instruction{Kind: tinder.InstrLabelHit, LabelName: name, Fallthrough: target, Line: ln})
			}

		case "ImportDirective":
			lib := l.m.Children[0].Text
			alias := ""
			if len(l.m.Children) > 1 {
				alias = l.m.Children[1].Children[0].Text
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrImport, Import: &tinder.ImportSpec{Library: lib, Alias: alias}, Line: ln})

		case "FromImportDirective":
			lib := l.m.Children[0].Text
			symbols := identifierList(l.m.Children[1])
			e.emit(tinder.Instruction{Kind: tinder.InstrImport, Import: &tinder.ImportSpec{Library: lib, Symbols: symbols}, Line: ln})

		case "ConstDirective":
			name := l.m.Children[0].Text
			if isDunder(name) {
				return nil, compileErr(ln, "const '%s' may not use dunder naming", name)
			}
			built, err := buildExpr(l.m.Children[1], e.cp, ln)
			if err != nil {
				return nil, err
			}
			val, err := evalConstDirective(built, e.cp, ln)
			if err != nil {
				return nil, err
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrConst, ConstName: name, ConstExpr: literalExpr(e.cp, val, ln), Line: ln})

		case "CatchDirective":
			exc := unquoteLiteral(l.m.Children[0].Text)
			label := l.m.Children[1].Text
			e.emit(tinder.Instruction{Kind: tinder.InstrCatch, ExceptionName: exc, CatchLabel: label, Line: ln})

		case "IfHeader":
			cond, err := buildExpr(l.m.Children[0], e.cp, ln)
			if err != nil {
				return nil, err
			}
			end := e.newLabel("if_end")
			next := e.newLabel("if_next")
			e.push(&blockFrame{kind: blockIf, endLabel: end, nextLabel: next})
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, Condition: fold(notExpr(cond, ln), e.cp), JumpTarget: e.labelExpr(next, ln), Line: ln})

		case "ElseIfHeader":
			f := e.top()
			if f == nil || f.kind != blockIf {
				return nil, compileErr(ln, "'else if' without a matching 'if'")
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: e.labelExpr(f.endLabel, ln), Line: ln})
			e.defineLabel(f.nextLabel)
			cond, err := buildExpr(l.m.Children[0], e.cp, ln)
			if err != nil {
				return nil, err
			}
			next := e.newLabel("if_next")
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, Condition: fold(notExpr(cond, ln), e.cp), JumpTarget: e.labelExpr(next, ln), Line: ln})
			f.nextLabel = next

		case "ElseHeader":
			f := e.top()
			if f == nil || f.kind != blockIf {
				return nil, compileErr(ln, "'else' without a matching 'if'")
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: e.labelExpr(f.endLabel, ln), Line: ln})
			e.defineLabel(f.nextLabel)
			f.nextLabel = ""

		case "EndIf":
			f := e.pop()
			if f == nil || f.kind != blockIf {
				return nil, compileErr(ln, "'endif' without a matching 'if'")
			}
			e.defineLabel(f.endLabel)
			if f.nextLabel != "" {
				e.script.Labels[f.nextLabel] = e.script.Labels[f.endLabel]
			}

		case "ForHeader":
			spec := l.m.Children[0]
			header := e.newLabel("for_header")
			exit := e.newLabel("for_exit")
			var stepInstr *tinder.Instruction
			var condNode *grammar.Match
			if spec.Rule == "ForInitCondStep" {
				initInstr, err := buildSimpleInstr(spec.Children[0], e.cp, ln)
				if err != nil {
					return nil, err
				}
				e.emit(initInstr)
				condNode = spec.Children[1]
				step, err := buildSimpleInstr(spec.Children[2], e.cp, ln)
				if err != nil {
					return nil, err
				}
				stepInstr = &step
			} else {
				condNode = spec
			}
			e.defineLabel(header)
			cond, err := buildExpr(condNode, e.cp, ln)
			if err != nil {
				return nil, err
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, Condition: fold(notExpr(cond, ln), e.cp), JumpTarget: e.labelExpr(exit, ln), Line: ln})
			e.push(&blockFrame{kind: blockFor, headerLabel: header, exitLabel: exit, endLabel: exit, stepInstr: stepInstr})

		case "ForeachHeader":
			vars := l.m.Children[0]
			firstVar := vars.Children[0].Text
			secondVar := ""
			if len(vars.Children) > 1 {
				secondVar = vars.Children[1].Children[0].Text
			}
			coll, err := buildExpr(l.m.Children[1], e.cp, ln)
			if err != nil {
				return nil, err
			}
			header := e.newLabel("foreach_header")
			exit := e.newLabel("foreach_exit")
			e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{dunderIter}, Values: []*tinder.Expr{fold(coll, e.cp)}, Line: ln})
			e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{dunderLength}, Values: []*tinder.Expr{
				{Kind: tinder.ExprUnary, Unary: tinder.OpLen, Inner: e.identExpr(dunderIter, ln), Line: ln},
			}, Line: ln})
			e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{dunderIndex}, Values: []*tinder.Expr{literalExpr(e.cp, tinder.Number(0), ln)}, Line: ln})
			e.defineLabel(header)
			cond := &tinder.Expr{Kind: tinder.ExprBinary, Left: e.identExpr(dunderIndex, ln), Op: tinder.OpLess, Right: e.identExpr(dunderLength, ln), Line: ln}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, Condition: fold(notExpr(cond, ln), e.cp), JumpTarget: e.labelExpr(exit, ln), Line: ln})
			if secondVar == "" {
				e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{firstVar}, Values: []*tinder.Expr{
					{Kind: tinder.ExprBinary, Left: e.identExpr(dunderIter, ln), Op: tinder.OpIterNatural, Right: e.identExpr(dunderIndex, ln), Line: ln},
				}, Line: ln})
			} else {
				e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{firstVar}, Values: []*tinder.Expr{
					{Kind: tinder.ExprBinary, Left: e.identExpr(dunderIter, ln), Op: tinder.OpIterKeyAt, Right: e.identExpr(dunderIndex, ln), Line: ln},
				}, Line: ln})
				e.emit(tinder.Instruction{Kind: tinder.InstrSet, Names: []string{secondVar}, Values: []*tinder.Expr{
					{Kind: tinder.ExprBinary, Left: e.identExpr(dunderIter, ln), Op: tinder.OpIterAt, Right: e.identExpr(dunderIndex, ln), Line: ln},
				}, Line: ln})
			}
			e.push(&blockFrame{kind: blockForeach, headerLabel: header, exitLabel: exit, endLabel: exit})

		case "EndFor":
			f := e.pop()
			if f == nil || f.kind == blockIf {
				return nil, compileErr(ln, "'endfor' without a matching 'for'/'foreach'")
			}
			if f.kind == blockFor && f.stepInstr != nil {
				e.emit(*f.stepInstr)
			}
			if f.kind == blockForeach {
				e.emit(tinder.Instruction{Kind: tinder.InstrInc, Target: dunderIndex, Line: ln})
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: e.labelExpr(f.headerLabel, ln), Line: ln})
			e.defineLabel(f.exitLabel)

		case "BreakStmt":
			loop := e.innermostLoop()
			if loop == nil {
				return nil, compileErr(ln, "'break' outside a loop")
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: e.labelExpr(loop.exitLabel, ln), Line: ln})

		case "ContinueStmt":
			loop := e.innermostLoop()
			if loop == nil {
				return nil, compileErr(ln, "'continue' outside a loop")
			}
			if loop.kind == blockFor && loop.stepInstr != nil {
				e.emit(*loop.stepInstr)
			}
			if loop.kind == blockForeach {
				e.emit(tinder.Instruction{Kind: tinder.InstrInc, Target: dunderIndex, Line: ln})
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: e.labelExpr(loop.headerLabel, ln), Line: ln})

		case "Statement":
			instr, err := buildStatement(l.m, ln, e.cp)
			if err != nil {
				return nil, err
			}
			e.emit(instr)

		case "ImplicitWrite":
			v, err := buildExpr(l.m, e.cp, ln)
			if err != nil {
				return nil, err
			}
			e.emit(tinder.Instruction{Kind: tinder.InstrWrite, Text: fold(v, e.cp), Line: ln})

		default:
			return nil, compileErr(ln, "unrecognized line production %q", l.rule)
		}
	}

	if len(e.stack) > 0 {
		return nil, compileErr(lines[len(lines)-1].num, "unterminated block construct")
	}

	if err := resolveLabels(e.script, e.cp); err != nil {
		return nil, err
	}

	e.script.Constants = e.cp.values
	return e.script, nil
}

func identifierList(m *grammar.Match) []string {
	out := []string{m.Children[0].Text}
	for _, rest := range m.AllChildren("IdentListRest") {
		out = append(out, rest.Children[0].Text)
	}
	return out
}

func buildExprList(m *grammar.Match, cp *constPool, ln int) ([]*tinder.Expr, error) {
	first, err := buildExpr(m.Children[0], cp, ln)
	if err != nil {
		return nil, err
	}
	out := []*tinder.Expr{first}
	for _, rest := range m.AllChildren("ExprListRest") {
		v, err := buildExpr(rest.Children[0], cp, ln)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// buildSimpleInstr builds a SetStmt/IncStmt/DecStmt instruction, used
// both for ordinary statement lines and for a for-loop's init/step
// clauses (spec.md's SimpleStatement production).
func buildSimpleInstr(m *grammar.Match, cp *constPool, ln int) (tinder.Instruction, error) {
	switch m.Rule {
	case "SetStmt":
		names := identifierList(m.Children[0])
		tail := m.Children[1]
		instr := tinder.Instruction{Kind: tinder.InstrSet, Names: names, Line: ln}
		switch tail.Rule {
		case "SetTo":
			vals, err := buildExprList(tail.Children[0], cp, ln)
			if err != nil {
				return instr, err
			}
			for i := range vals {
				vals[i] = fold(vals[i], cp)
			}
			instr.Values = vals
		case "SetFrom":
			v, err := buildExpr(tail.Children[0], cp, ln)
			if err != nil {
				return instr, err
			}
			instr.FromExpr = fold(v, cp)
		}
		return instr, nil

	case "IncStmt", "DecStmt":
		target := m.Children[0].Text
		kind := tinder.InstrInc
		if m.Rule == "DecStmt" {
			kind = tinder.InstrDec
		}
		instr := tinder.Instruction{Kind: kind, Target: target, Line: ln}
		if len(m.Children) > 1 {
			by, err := buildExpr(m.Children[1].Children[0], cp, ln)
			if err != nil {
				return instr, err
			}
			instr.By = fold(by, cp)
		}
		return instr, nil
	}
	return tinder.Instruction{}, compileErr(ln, "not a simple statement: %s", m.Rule)
}

// buildStatement builds any of the twelve statement forms, attaching a
// trailing `if <expr>` suffix as the instruction's Condition per
// spec.md: "any statement may end with `if <expr>`."
func buildStatement(m *grammar.Match, ln int, cp *constPool) (tinder.Instruction, error) {
	body := m.Children[0]
	var instr tinder.Instruction
	var err error

	switch body.Rule {
	case "SetStmt", "IncStmt", "DecStmt":
		instr, err = buildSimpleInstr(body, cp, ln)

	case "PutStmt":
		var val *tinder.Expr
		val, err = buildExpr(body.Children[0], cp, ln)
		if err == nil {
			instr = tinder.Instruction{Kind: tinder.InstrPut, Value: fold(val, cp), Into: body.Children[2].Text, Line: ln}
			if body.Children[1].Text == "after" {
				instr.Side = tinder.PutAfter
			}
		}

	case "SwapStmt":
		instr = tinder.Instruction{Kind: tinder.InstrSwap, SwapA: body.Children[0].Text, SwapB: body.Children[1].Text, Line: ln}

	case "WriteStmt", "InputStmt":
		var txt *tinder.Expr
		txt, err = buildExpr(body.Children[0], cp, ln)
		if err == nil {
			kind := tinder.InstrWrite
			if body.Rule == "InputStmt" {
				kind = tinder.InstrInput
			}
			instr = tinder.Instruction{Kind: kind, Text: fold(txt, cp), Line: ln}
			if len(body.Children) > 1 {
				instr.Dest = body.Children[1].Children[0].Text
			}
		}

	case "CallStmt":
		var ce *tinder.Expr
		ce, err = buildExpr(body.Children[0], cp, ln)
		if err == nil {
			instr = tinder.Instruction{Kind: tinder.InstrCall, CallExpr: fold(ce, cp), Line: ln}
		}

	case "JumpStmt":
		var target *tinder.Expr
		target, err = buildExpr(body.Children[0], cp, ln)
		if err == nil {
			instr = tinder.Instruction{Kind: tinder.InstrJump, JumpTarget: fold(target, cp), Line: ln}
			if len(body.Children) > 1 {
				var tbl *tinder.Expr
				tbl, err = buildExpr(body.Children[1].Children[0], cp, ln)
				if err == nil {
					instr.JumpTarget = fold(&tinder.Expr{Kind: tinder.ExprBinary, Left: target, Op: tinder.OpFrom, Right: tbl, Line: ln}, cp)
				}
			}
		}

	case "ReturnStmt":
		instr = tinder.Instruction{Kind: tinder.InstrReturn, Line: ln}

	case "YieldStmt":
		instr = tinder.Instruction{Kind: tinder.InstrYield, Line: ln}
		if len(body.Children) > 0 {
			var v *tinder.Expr
			v, err = buildExpr(body.Children[0], cp, ln)
			if err == nil {
				instr.Text = fold(v, cp)
			}
		}

	case "StopStmt":
		instr = tinder.Instruction{Kind: tinder.InstrStop, Line: ln}

	default:
		return instr, compileErr(ln, "unrecognized statement %q", body.Rule)
	}
	if err != nil {
		return instr, err
	}

	if len(m.Children) > 1 {
		cond, cerr := buildExpr(m.Children[1].Children[0], cp, ln)
		if cerr != nil {
			return instr, cerr
		}
		instr.Condition = fold(cond, cp)
	}
	return instr, nil
}
