// Package testutil provides payload builders and assertion helpers shared
// by the validation tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"uadcheck/internal/domain"
)

// MustMarshal marshals a value to JSON string, failing the test on error.
func MustMarshal(t *testing.T, v any) string {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err, "failed to marshal value")
	return string(body)
}

// UnmarshalResult decodes a serialized validation result.
func UnmarshalResult(t *testing.T, data []byte) *domain.Result {
	t.Helper()
	var result domain.Result
	require.NoError(t, json.Unmarshal(data, &result), "failed to unmarshal result")
	return &result
}

// FindingsFor returns the findings produced by rule.
func FindingsFor(findings []domain.Finding, rule string) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

// Fields returns the field of every finding in order.
func Fields(findings []domain.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Field)
	}
	return out
}
