package library

import (
	"fmt"
	"strings"

	"github.com/Hyomoto/tinder/tinder"
)

// textLibrary is marked impure throughout: nothing here is unsafe to
// call at runtime, but none of it is folded ahead of time either, so a
// script can see `split`/`join` exercise the call instruction the same
// way a host's own native functions would.
func textLibrary() *Library {
	return newLibrary("text", map[string]tinder.Value{
		"upper":    callable("text.upper", false, textUnary(strings.ToUpper)),
		"lower":    callable("text.lower", false, textUnary(strings.ToLower)),
		"trim":     callable("text.trim", false, textUnary(strings.TrimSpace)),
		"len":      callable("text.len", false, textLen),
		"split":    callable("text.split", false, textSplit),
		"join":     callable("text.join", false, textJoin),
		"contains": callable("text.contains", false, textContains),
		"replace":  callable("text.replace", false, textReplace),
	})
}

func textUnary(fn func(string) string) func(*tinder.Crucible, []tinder.Value) (tinder.Value, error) {
	return func(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
		s, err := requireString(args, 0)
		if err != nil {
			return tinder.None(), err
		}
		return tinder.String(fn(s)), nil
	}
}

func textLen(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	s, err := requireString(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	return tinder.Number(float64(len([]rune(s)))), nil
}

func textSplit(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	s, err := requireString(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	sep, err := requireString(args, 1)
	if err != nil {
		return tinder.None(), err
	}
	parts := strings.Split(s, sep)
	items := make([]tinder.Value, len(parts))
	for i, p := range parts {
		items[i] = tinder.String(p)
	}
	return tinder.ArrayOf(items...), nil
}

func textJoin(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	if len(args) < 1 || args[0].Kind != tinder.KindArray {
		return tinder.None(), fmt.Errorf("text.join: expected an array as the first argument")
	}
	sep, err := requireString(args, 1)
	if err != nil {
		return tinder.None(), err
	}
	parts := make([]string, len(args[0].Array))
	for i, v := range args[0].Array {
		parts[i] = v.String()
	}
	return tinder.String(strings.Join(parts, sep)), nil
}

func textContains(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	s, err := requireString(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	needle, err := requireString(args, 1)
	if err != nil {
		return tinder.None(), err
	}
	return tinder.Bool(strings.Contains(s, needle)), nil
}

func textReplace(_ *tinder.Crucible, args []tinder.Value) (tinder.Value, error) {
	s, err := requireString(args, 0)
	if err != nil {
		return tinder.None(), err
	}
	old, err := requireString(args, 1)
	if err != nil {
		return tinder.None(), err
	}
	new, err := requireString(args, 2)
	if err != nil {
		return tinder.None(), err
	}
	return tinder.String(strings.ReplaceAll(s, old, new)), nil
}

func requireString(args []tinder.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("expected %d argument(s), got %d", i+1, len(args))
	}
	v := args[i]
	if v.Kind != tinder.KindString {
		return "", fmt.Errorf("expected a string argument, got %s", v.Kind)
	}
	return v.Str, nil
}
