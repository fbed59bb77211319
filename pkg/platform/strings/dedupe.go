// Package strings provides string normalization utilities shared by the
// rule checkers.
package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  subject.zip ", "contract.price", "subject.zip", ""})
//	// Returns: []string{"subject.zip", "contract.price"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Fold trims s and applies Unicode case folding, so values that differ only
// in case or surrounding whitespace compare equal.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// LastNameToken returns the final usable token of a personal name, case
// folded and upper-cased for comparison. Tokens are split on whitespace,
// hyphens and ampersands; surrounding punctuation is dropped. It returns ""
// when no token remains.
//
// Example:
//
//	LastNameToken("Alex & Jamie Morgan,") // "MORGAN"
func LastNameToken(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '&'
	})
	for i := len(parts) - 1; i >= 0; i-- {
		token := strings.TrimFunc(parts[i], func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token != "" {
			return strings.ToUpper(cases.Fold().String(token))
		}
	}
	return ""
}
