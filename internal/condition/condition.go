// Package condition resolves UAD condition ratings (C1 through C6) into
// numeric ranks and summarizes sets of ranks.
package condition

import (
	"math"
	"regexp"
	"strings"

	"uadcheck/internal/payload"
)

// Codes maps each canonical condition code to its rank.
var Codes = map[string]int{
	"C1": 1,
	"C2": 2,
	"C3": 3,
	"C4": 4,
	"C5": 5,
	"C6": 6,
}

const (
	MinRank = 1
	MaxRank = 6
)

var codePattern = regexp.MustCompile(`(?i)C([1-6])`)

// NormalizeCode extracts a canonical code from free text such as "c3" or
// "Condition C3 - average". It returns "" when no code is present.
func NormalizeCode(s string) string {
	m := codePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return ""
	}
	return "C" + m[1]
}

// Rank resolves v into a rank in [MinRank, MaxRank]. Accepted forms are a
// code string, a number (truncated), or a mapping carrying condition_rank,
// condition or code. Mappings try condition_rank first.
func Rank(v any) (int, bool) {
	switch val := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		code := NormalizeCode(val)
		if code == "" {
			return 0, false
		}
		rank, ok := Codes[code]
		return rank, ok
	}
	if n, ok := payload.Number(v); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		r := int(n)
		if r < MinRank || r > MaxRank {
			return 0, false
		}
		return r, true
	}
	if m, ok := payload.AsMap(v); ok {
		if r, ok := Rank(m["condition_rank"]); ok {
			return r, true
		}
		code := m["condition"]
		if !payload.Truthy(code) {
			code = m["code"]
		}
		return Rank(code)
	}
	return 0, false
}

// Code returns the canonical code for rank, or "" when out of range.
func Code(rank int) string {
	for code, r := range Codes {
		if r == rank {
			return code
		}
	}
	return ""
}

// Stats returns the mean and population standard deviation of ranks.
// An empty set yields zeros.
func Stats(ranks []int) (mean, stddev float64) {
	if len(ranks) == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range ranks {
		sum += float64(r)
	}
	mean = sum / float64(len(ranks))
	if len(ranks) == 1 {
		return mean, 0
	}
	var variance float64
	for _, r := range ranks {
		d := float64(r) - mean
		variance += d * d
	}
	variance /= float64(len(ranks))
	return mean, math.Sqrt(variance)
}
