package normalize

import (
	"strconv"
	"strings"
)

// getMap reads a nested object field defensively; returns nil if the key is
// absent or not an object.
func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	return v
}

// getString reads a string field defensively, falling back to "".
func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// firstNonEmptyString tries each (map, key) pair in order and returns the
// first non-empty string found, or def if none match.
func firstNonEmptyString(def string, pairs ...[2]any) string {
	for _, pair := range pairs {
		m, _ := pair[0].(map[string]any)
		key, _ := pair[1].(string)
		if s := getString(m, key); s != "" {
			return s
		}
	}
	return def
}

// toNumber coerces a JSON value (from encoding/json, so float64 or string)
// into a *float64. Unparseable values yield nil, never an error.
func toNumber(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// toBoolean implements the truthiness rules from spec.md §4.2: native
// bools, the integer 1, the canonical truthy/falsy string literals, and
// any other non-empty string is ALSO truthy (a snapshot filename counts
// as "has snapshot").
func toBoolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		lower := strings.ToLower(strings.TrimSpace(t))
		switch lower {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n", "":
			return false
		default:
			return true
		}
	default:
		return false
	}
}

// orBool returns a || b, spelled out because Go lacks varargs logical-or.
func orBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
