package rules

import (
	"fmt"

	"uadcheck/internal/domain"
	"uadcheck/internal/expr"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
)

// FieldRequirements flags every currently required registry field whose
// value is missing. Recommendations are reported as warnings.
func FieldRequirements(doc payload.Document, reg *registry.FieldRegistry, ctx expr.Context) []domain.Finding {
	if reg == nil {
		return nil
	}
	var findings []domain.Finding
	for _, field := range reg.Fields {
		if !field.Required(ctx) {
			continue
		}
		if !payload.IsMissing(payload.Get(doc, field.Code)) {
			continue
		}
		severity := domain.SeverityError
		if field.UADType != registry.Requirement {
			severity = domain.SeverityWarn
		}
		findings = append(findings, domain.Finding{
			Field:    field.Code,
			Message:  fmt.Sprintf("Field '%s' is required", field.Code),
			Severity: severity,
			Rule:     domain.RuleFieldRequirement,
		})
	}
	return findings
}
