// Package payload provides read-only access to a normalized appraisal
// document: dotted-path lookup, the shared missingness predicate and
// truthiness.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Document is the decoded payload tree. Sections map to nested mappings,
// sequences or scalars exactly as decoded from JSON.
type Document = map[string]any

// Decode reads a JSON object from r.
func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode payload: document must be a JSON object")
	}
	return doc, nil
}

// Normalize converts a Go-native tree into its JSON-decoded form (float64
// numbers, []any, map[string]any) through a JSON round trip.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	var out any
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	return out, nil
}

// Get resolves a dotted path against doc. Any missing intermediate key or
// non-mapping intermediate yields nil.
func Get(doc Document, path string) any {
	var current any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := AsMap(current)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// AsMap returns v as a string-keyed mapping when it is one.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// AsList returns v as a sequence when it is one.
func AsList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// IsMissing reports whether v carries no usable value: nil, a blank
// string, or a collection whose every element is itself missing. Booleans
// and numbers are never missing.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case json.Number:
		return val == ""
	}
	if m, ok := AsMap(v); ok {
		for _, child := range m {
			if !IsMissing(child) {
				return false
			}
		}
		return true
	}
	if l, ok := AsList(v); ok {
		for _, child := range l {
			if !IsMissing(child) {
				return false
			}
		}
		return true
	}
	return false
}

// Truthy applies the conventional "empty is false" rule: nil, false, zero,
// and empty strings or collections are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := Number(v); ok {
		return n != 0
	}
	if m, ok := AsMap(v); ok {
		return len(m) > 0
	}
	if l, ok := AsList(v); ok {
		return len(l) > 0
	}
	return true
}

// Number converts any Go numeric type or json.Number to float64.
// Booleans are not numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Display renders a scalar for human-readable messages. Whole numbers drop
// their fractional part.
func Display(v any) string {
	if n, ok := Number(v); ok {
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
