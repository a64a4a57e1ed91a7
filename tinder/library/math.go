package library

import (
	"fmt"
	"math"

	"github.com/Hyomoto/tinder/tinder"
)

// mathLibrary is every entry marked Pure. Calls into it are still
// evaluated at runtime: neither a `const` declaration nor firestarter's
// fold pass evaluates a call ahead of time.
func mathLibrary() *Library {
	return newLibrary("math", map[string]tinder.Value{
		"pi":    tinder.Number(math.Pi),
		"e":     tinder.Number(math.E),
		"abs":   callable("math.abs", true, mathUnary(math.Abs)),
		"floor": callable("math.floor", true, mathUnary(math.Floor)),
		"ceil":  callable("math.ceil", true, mathUnary(math.Ceil)),
		"round": callable("math.round", true, mathUnary(math.Round)),
		"sqrt":  callable("math.sqrt", true, mathUnary(math.Sqrt)),
		"pow":   callable("math.pow", true, mathPow),
		"min":   callable("math.min", true, mathMin),
		"max":   callable("math.max", true, mathMax),
	})
}

func mathUnary(fn func(float64) float64) func(*tinder.Crucible, []tinder.Value) (tinder.Value, error) {
	return func(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
		n, err := requireNumber(args, 0)
		if err != nil {
			return tinder.None(), err
		}
		return tinder.Number(fn(n)), nil
	}
}

func mathPow(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	base, err := requireNumber(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	exp, err := requireNumber(args, 1)
	if err != nil {
		return tinder.None(), err
	}
	return tinder.Number(math.Pow(base, exp)), nil
}

func mathMin(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	if len(args) == 0 {
		return tinder.None(), fmt.Errorf("math.min: expected at least one argument")
	}
	best, err := requireNumber(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	for i := 1; i < len(args); i++ {
		n, err := requireNumber(args, i)
		if err != nil {
			return tinder.None(), err
		}
		if n < best {
			best = n
		}
	}
	return tinder.Number(best), nil
}

func mathMax(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	if len(args) == 0 {
		return tinder.None(), fmt.Errorf("math.max: expected at least one argument")
	}
	best, err := requireNumber(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	for i := 1; i < len(args); i++ {
		n, err := requireNumber(args, i)
		if err != nil {
			return tinder.None(), err
		}
		if n > best {
			best = n
		}
	}
	return tinder.Number(best), nil
}

func requireNumber(args []tinder.Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("expected %d argument(s), got %d", i+1, len(args))
	}
	v := args[i]
	if v.Kind != tinder.KindNumber {
		return 0, fmt.Errorf("expected a number argument, got %s", v.Kind)
	}
	return v.Number, nil
}
