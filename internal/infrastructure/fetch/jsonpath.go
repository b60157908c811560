package fetch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks a decoded JSON document along a dotted path. Numeric segments index
// arrays, e.g. "0.detail.colors.0.name".
func Lookup(doc any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

// LookupString returns the value at path rendered as text, or "" when absent
// or not a scalar.
func LookupString(doc any, path string) string {
	v, ok := Lookup(doc, path)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}

// MapFields resolves every configured field path against doc. Fields whose
// path does not resolve are omitted.
func MapFields(doc any, fields map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for field, path := range fields {
		if v, ok := Lookup(doc, path); ok {
			out[field] = v
		}
	}
	return out
}
