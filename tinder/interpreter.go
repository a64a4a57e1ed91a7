package tinder

import "context"

// Interpreter executes a CompiledScript's flat line list against a
// host-owned Crucible, implementing spec.md §4.4's execution loop
// contract. It re-architects the source's exception-based yield/halt
// as an explicit StepOutcome return (spec.md §9), grounded on the
// teacher's outcome-returning VM dispatch loop.
type Interpreter struct {
	Script *CompiledScript
	Env    *Crucible

	pc            int
	returnStack   []int
	interrupts    map[string]string
	budget        int
	executed      int
	arrivedByJump bool
	pendingInput  string // variable name awaiting the next resume's InputValue
}

// Option configures an Interpreter at construction.
type Option func(*Interpreter)

// WithBudget bounds the number of instructions a single Interpreter
// may execute across its lifetime (spec.md §5's "host-supplied
// instruction-count budget"). n <= 0 means unbounded. When a catch
// handler takes the resulting BudgetExceeded burn, the count restarts
// from zero so the handler itself can run.
func WithBudget(n int) Option {
	return func(i *Interpreter) { i.budget = n }
}

// NewInterpreter returns an Interpreter positioned at line 0, with
// dunders initialized per spec.md §4.2 step 7: __LINE__=0,
// __STACK__=empty, other dunders unset.
func NewInterpreter(script *CompiledScript, env *Crucible, opts ...Option) *Interpreter {
	i := &Interpreter{
		Script:     script,
		Env:        env,
		interrupts: make(map[string]string, len(script.Interrupts)),
	}
	for k, v := range script.Interrupts {
		i.interrupts[k] = v
	}
	for opt := range opts {
		opts[opt](i)
	}
	env.Set("__LINE__", Number(0))
	env.Set("__STACK__", ArrayOf())
	return i
}

// PC returns the current program counter.
func (i *Interpreter) PC() int { return i.pc }

// SetPC forces the program counter from the host side. Run overwrites
// __LINE__ before every instruction and never reads it back, so a
// script that writes __LINE__ does not move the program counter.
func (i *Interpreter) SetPC(line int) { i.pc = line }

func (i *Interpreter) syncStack() {
	frames := make([]Value, len(i.returnStack))
	for idx, pc := range i.returnStack {
		frames[idx] = Number(float64(pc))
	}
	i.Env.Set("__STACK__", ArrayOf(frames...))
}

// Run executes until a signal fires or the script completes normally,
// applying resume first if this is a re-entry after Yielded or
// Imported. ctx is checked between instructions so a host may cancel a
// runaway script without relying solely on the instruction budget.
func (i *Interpreter) Run(ctx context.Context, resume *ResumeCarry) StepOutcome {
	if resume != nil {
		if resume.HasInput && i.pendingInput != "" {
			i.Env.Set(i.pendingInput, resume.InputValue)
			i.pendingInput = ""
		}
		if resume.ImportBindings != nil {
			i.Env.Update(resume.ImportBindings)
		}
	}

	for {
		if ctx != nil && ctx.Err() != nil {
			return Halted{}
		}
		if i.pc >= len(i.Script.Lines) {
			return Normal{}
		}
		if i.budget > 0 && i.executed >= i.budget {
			out, handled := i.handleError(burn("BudgetExceeded", i.pc, "instruction budget of %d exhausted", i.budget))
			if !handled {
				return out
			}
			i.executed = 0
			continue
		}
		i.executed++

		instr := &i.Script.Lines[i.pc]
		srcLine := i.pc
		if i.pc < len(i.Script.SourceMap) {
			srcLine = i.Script.SourceMap[i.pc]
		}
		i.Env.Set("__LINE__", Number(float64(srcLine)))

		if instr.Condition != nil {
			cond, err := Eval(instr.Condition, i.Script.Constants, i.Env)
			if err != nil {
				if out, handled := i.handleError(err); handled {
					continue
				} else {
					return out
				}
			}
			if !cond.Truthy() {
				i.Env.Set("__CONDITION__", Bool(false))
				i.pc++
				continue
			}
		}
		i.Env.Set("__CONDITION__", Bool(true))

		hitByJump := i.arrivedByJump
		i.arrivedByJump = false

		outcome, jumped, err := i.execute(instr, hitByJump)
		if err != nil {
			if out, handled := i.handleError(err); handled {
				continue
			} else {
				return out
			}
		}
		if !jumped {
			i.pc++
		}
		if outcome != nil {
			return outcome
		}
	}
}

func (i *Interpreter) labelLine(name string) int {
	if info, ok := i.Script.Labels[name]; ok {
		return info.Line
	}
	return len(i.Script.Lines)
}

// handleError consults the live interrupt table by TinderBurn.Kind; a
// registered handler redirects PC and resumes the loop (handled=true),
// otherwise the burn propagates to the host as a Burn outcome. A catch
// registered against the umbrella "TinderBurn" name matches any Kind
// that has no more specific handler registered, per spec scenario 5.
func (i *Interpreter) handleError(err error) (StepOutcome, bool) {
	tb, ok := err.(*TinderBurn)
	if !ok {
		kind := "TypeError"
		if ce, ok := err.(*CrucibleError); ok && ce.Op == "write" && ce.Message == "constant rewrite" {
			kind = "ConstRewrite"
		}
		tb = burnFrom(kind, i.pc, err)
	}
	if label, ok := i.interrupts[tb.Kind]; ok {
		i.pc = i.labelLine(label)
		return nil, true
	}
	if label, ok := i.interrupts["TinderBurn"]; ok {
		i.pc = i.labelLine(label)
		return nil, true
	}
	return Burn{Err: tb}, false
}

// execute runs a single instruction, returning (signal, pcAltered, err).
// pcAltered mirrors spec.md §4.4's "unless the instruction altered PC,
// advance PC by 1".
func (i *Interpreter) execute(instr *Instruction, hitByJump bool) (StepOutcome, bool, error) {
	consts := i.Script.Constants
	switch instr.Kind {
	case InstrWrite:
		v, err := Eval(instr.Text, consts, i.Env)
		if err != nil {
			return nil, false, err
		}
		dest := instr.Dest
		if dest == "" {
			dest = i.Script.OutputVar
		}
		return nil, false, i.appendOutput(dest, v.String())

	case InstrInput:
		v, err := Eval(instr.Text, consts, i.Env)
		if err != nil {
			return nil, false, err
		}
		if err := i.appendOutput(i.Script.OutputVar, v.String()); err != nil {
			return nil, false, err
		}
		i.pendingInput = instr.Dest
		return Yielded{CarryVar: instr.Dest}, false, nil

	case InstrSet:
		if err := i.execSet(instr); err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case InstrInc, InstrDec:
		if err := i.execIncDec(instr); err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case InstrPut:
		if err := i.execPut(instr); err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case InstrSwap:
		if err := i.execSwap(instr); err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case InstrCall:
		_, err := Eval(instr.CallExpr, consts, i.Env)
		if err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case InstrJump:
		target, err := i.resolveJumpTarget(instr.JumpTarget)
		if err != nil {
			return nil, false, err
		}
		i.returnStack = append(i.returnStack, i.pc+1)
		i.syncStack()
		i.pc = target
		i.arrivedByJump = true
		i.Env.Set("__JUMPED__", Bool(true))
		return nil, true, nil

	case InstrReturn:
		if len(i.returnStack) == 0 {
			return nil, false, burn("EmptyReturnStack", instr.Line, "return with empty call stack")
		}
		top := i.returnStack[len(i.returnStack)-1]
		i.returnStack = i.returnStack[:len(i.returnStack)-1]
		i.syncStack()
		i.pc = top
		i.arrivedByJump = true
		return nil, true, nil

	case InstrYield:
		var carry Value = None()
		if instr.Text != nil {
			v, err := Eval(instr.Text, consts, i.Env)
			if err != nil {
				return nil, false, err
			}
			carry = v
		}
		return Yielded{Carry: carry}, false, nil

	case InstrStop:
		return Halted{}, false, nil

	case InstrImport:
		return Imported{Library: instr.Import.Library, Alias: instr.Import.Alias, Symbols: instr.Import.Symbols}, false, nil

	case InstrConst:
		v, err := Eval(instr.ConstExpr, consts, i.Env)
		if err != nil {
			return nil, false, err
		}
		if err := i.Env.DefineConst(instr.ConstName, v); err != nil {
			return nil, false, burn("ConstRewrite", instr.Line, "%v", err)
		}
		return nil, false, nil

	case InstrCatch:
		i.interrupts[instr.ExceptionName] = instr.CatchLabel
		return nil, false, nil

	case InstrLabelHit:
		if hitByJump || instr.Fallthrough == "" {
			return nil, false, nil
		}
		i.pc = i.labelLine(instr.Fallthrough)
		return nil, true, nil
	}
	return nil, false, burn("TypeError", instr.Line, "unknown instruction kind %v", instr.Kind)
}

func (i *Interpreter) appendOutput(dest string, text string) error {
	current := ""
	if v, err := i.Env.Get(dest); err == nil && v.Kind == KindString {
		current = v.Str
	}
	return i.Env.Set(dest, String(current+text+"\n"))
}

func (i *Interpreter) execSet(instr *Instruction) error {
	if instr.FromExpr != nil {
		src, err := Eval(instr.FromExpr, i.Script.Constants, i.Env)
		if err != nil {
			return err
		}
		for idx, name := range instr.Names {
			var v Value
			switch src.Kind {
			case KindArray:
				if idx < len(src.Array) {
					v = src.Array[idx]
				} else {
					v = None()
				}
			case KindTable:
				if found, ok := src.Table.Get(name); ok {
					v = found
				} else {
					v = None()
				}
			default:
				v = None()
			}
			if err := i.Env.Set(name, v); err != nil {
				return err
			}
		}
		return nil
	}
	values := make([]Value, len(instr.Values))
	for idx, ve := range instr.Values {
		v, err := Eval(ve, i.Script.Constants, i.Env)
		if err != nil {
			return err
		}
		values[idx] = v
	}
	for idx, name := range instr.Names {
		var v Value
		switch {
		case idx < len(values):
			v = values[idx]
		case len(values) > 0:
			v = values[len(values)-1]
		default:
			v = None()
		}
		if err := i.Env.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) execIncDec(instr *Instruction) error {
	cur, err := i.Env.Get(instr.Target)
	if err != nil {
		return burn("MissingVariable", instr.Line, "variable '%s' not found", instr.Target)
	}
	if cur.Kind != KindNumber {
		return burn("TypeError", instr.Line, "inc/dec requires a number, got %s", cur.Kind)
	}
	step := 1.0
	if instr.By != nil {
		v, err := Eval(instr.By, i.Script.Constants, i.Env)
		if err != nil {
			return err
		}
		if v.Kind != KindNumber {
			return burn("TypeError", instr.Line, "inc/dec step must be a number, got %s", v.Kind)
		}
		step = v.Number
	}
	if instr.Kind == InstrDec {
		step = -step
	}
	return i.Env.Set(instr.Target, Number(cur.Number+step))
}

func (i *Interpreter) execPut(instr *Instruction) error {
	cur, err := i.Env.Get(instr.Into)
	if err != nil {
		return burn("MissingVariable", instr.Line, "variable '%s' not found", instr.Into)
	}
	if cur.Kind != KindArray {
		return burn("TypeError", instr.Line, "put requires a sequence, got %s", cur.Kind)
	}
	v, err := Eval(instr.Value, i.Script.Constants, i.Env)
	if err != nil {
		return err
	}
	var next []Value
	if instr.Side == PutBefore {
		next = append([]Value{v}, cur.Array...)
	} else {
		next = append(append([]Value{}, cur.Array...), v)
	}
	return i.Env.Set(instr.Into, ArrayOf(next...))
}

func (i *Interpreter) execSwap(instr *Instruction) error {
	a, err := i.Env.Get(instr.SwapA)
	if err != nil {
		return burn("MissingVariable", instr.Line, "variable '%s' not found", instr.SwapA)
	}
	b, err := i.Env.Get(instr.SwapB)
	if err != nil {
		return burn("MissingVariable", instr.Line, "variable '%s' not found", instr.SwapB)
	}
	if err := i.Env.Set(instr.SwapA, b); err != nil {
		return err
	}
	return i.Env.Set(instr.SwapB, a)
}

func (i *Interpreter) resolveJumpTarget(target *Expr) (int, error) {
	v, err := evalJumpTarget(target, i.Script.Constants, i.Env)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case KindNumber:
		line := int(v.Number)
		if line < 0 || line > len(i.Script.Lines) {
			return 0, burn("BadIndirect", target.Line, "jump target line %d out of range", line)
		}
		return line, nil
	case KindString:
		info, ok := i.Script.Labels[v.Str]
		if !ok {
			return 0, burn("BadIndirect", target.Line, "jump target label '%s' not found", v.Str)
		}
		return info.Line, nil
	case KindNone:
		return 0, burn("BadIndirect", target.Line, "jump target resolved to none")
	default:
		return 0, burn("BadIndirect", target.Line, "jump target must be a string or number, got %s", v.Kind)
	}
}
