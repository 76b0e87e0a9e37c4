package upstream

import (
	"fmt"
	"strings"
)

// FieldPath addresses a value inside a decoded JSON document, e.g.
// FieldPath{"d", "rescode"}.
type FieldPath []string

func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

// Lookup walks doc along the path. Only JSON objects are traversed.
func (p FieldPath) Lookup(doc any) (any, bool) {
	cur := doc
	for _, key := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// FirstString applies the strategies in order and returns the first
// non-empty scalar found, rendered as a string, and the path that matched.
func FirstString(doc any, strategies []FieldPath) (string, FieldPath, bool) {
	for _, path := range strategies {
		v, ok := path.Lookup(doc)
		if !ok {
			continue
		}
		s, ok := scalarString(v)
		if !ok || s == "" {
			continue
		}
		return s, path, true
	}
	return "", nil, false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool, int, int64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
