package tools

import (
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// Argument extraction helpers. JSON numbers arrive as float64; these coerce
// to the type the tool declared and return a ValidationError on the wrong
// shape, so a malformed LLM argument short-circuits into a failed result
// instead of a panic.

func stringArg(args map[string]any, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", schema.NewValidationError("missing required argument %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", schema.NewValidationError("argument %q must be a string", key)
	}
	if required && s == "" {
		return "", schema.NewValidationError("argument %q must not be empty", key)
	}
	return s, nil
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, schema.NewValidationError("argument %q must be a number", key)
	}
}

func boolArg(args map[string]any, key string, def bool) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, schema.NewValidationError("argument %q must be a boolean", key)
	}
	return b, nil
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
