package rules

import (
	"fmt"
	"math"
	"strconv"

	"uadcheck/internal/condition"
	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
)

// ConditionConsistency flags comparables whose condition rank is more than
// tolerance away from the subject's. Unresolvable ranks are skipped.
func ConditionConsistency(doc payload.Document, tolerance float64) []domain.Finding {
	sc, ok := payload.AsMap(doc["sales_comparison"])
	if !ok {
		return nil
	}
	subjectRank, ok := condition.Rank(sc["subject"])
	if !ok {
		return nil
	}
	comparables, _ := payload.AsList(sc["comparables"])

	var findings []domain.Finding
	for i, comp := range comparables {
		rank, ok := condition.Rank(comp)
		if !ok {
			continue
		}
		delta := math.Abs(float64(rank - subjectRank))
		if delta <= tolerance {
			continue
		}
		findings = append(findings, domain.Finding{
			Field: fmt.Sprintf("sales_comparison.comparables[%d].condition_rank", i),
			Message: fmt.Sprintf(
				"Comparable %s condition %s is outside tolerance %s of subject condition %s (Δ=%.2f).",
				comparableID(comp, i), condition.Code(rank), strconv.FormatFloat(tolerance, 'f', -1, 64),
				condition.Code(subjectRank), delta,
			),
			Severity: domain.SeverityError,
			Rule:     domain.RuleConditionOutlier,
		})
	}
	return findings
}

func comparableID(comp any, index int) string {
	if m, ok := payload.AsMap(comp); ok {
		for _, key := range []string{"id", "label"} {
			if id := payload.Display(m[key]); id != "" {
				return id
			}
		}
	}
	return "#" + strconv.Itoa(index+1)
}
