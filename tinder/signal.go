package tinder

// StepOutcome is the closed sum of results a Run can return, the
// Go re-architecture of the source's exception-based yield/halt/import
// control flow (spec.md §9 Design Notes) into an explicit tagged
// variant, grounded on the teacher's outcome-returning VM dispatch loop
// rather than panics. A host switches exhaustively on the concrete
// type.
type StepOutcome interface {
	outcome()
}

// Normal reports that execution reached the end of the line table.
type Normal struct{}

func (Normal) outcome() {}

// Halted reports a Stop instruction fired.
type Halted struct{}

func (Halted) outcome() {}

// Yielded reports a Yield or Input instruction fired. For Yield, Carry
// is the value of its optional expression (none when absent); for
// Input, CarryVar names the variable the next resume's InputValue
// fills.
type Yielded struct {
	Carry   Value
	CarryVar string
}

func (Yielded) outcome() {}

// Imported reports an Import directive requesting a library. The host
// resolves Library and injects bindings into the Crucible before
// re-entering Run: the namespace under Alias (or the library name) for
// `import`, or each of Symbols by its own name for `from ... import`.
type Imported struct {
	Library string
	Alias   string
	Symbols []string
}

func (Imported) outcome() {}

// Burn reports a TinderBurn that was not caught by any registered
// interrupt handler and propagated to the host.
type Burn struct {
	Err *TinderBurn
}

func (Burn) outcome() {}

// ResumeCarry is supplied by the host on re-entry after a Yielded or
// Imported outcome.
type ResumeCarry struct {
	// InputValue fills the variable named by the preceding Input
	// instruction's target.
	InputValue Value
	HasInput   bool
	// ImportBindings are injected into the current Crucible frame
	// following an Imported outcome.
	ImportBindings map[string]Value
}
