package rules

import (
	"fmt"
	"strings"

	"uadcheck/internal/domain"
	"uadcheck/internal/expr"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
	pstrings "uadcheck/pkg/platform/strings"
)

const (
	defaultOwnerRemediation  = "Confirm vesting with the title commitment or document the ownership change."
	defaultAppraisalTypeHint = "Escalate to a reviewer or record an acknowledgement before delivery."
	assignmentTypeRefinance  = "refinance"
	borrowerNameField        = "subject.borrower_name"
	appraisalTypeField       = "reconciliation.appraisal_type"
)

// CrossRules evaluates the registry's cross-field rules in declared order.
func CrossRules(doc payload.Document, reg *registry.FieldRegistry, ctx expr.Context) []domain.Finding {
	if reg == nil {
		return nil
	}
	var findings []domain.Finding
	for _, rule := range reg.CrossRules {
		var f *domain.Finding
		switch r := rule.(type) {
		case *registry.GenericRule:
			f = genericRule(r, ctx)
		case *registry.RefinanceOwnerMatch:
			f = refinanceOwnerMatch(r, doc)
		case *registry.ReconciliationAppraisalType:
			f = appraisalTypeGate(r, doc)
		}
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

func genericRule(r *registry.GenericRule, ctx expr.Context) *domain.Finding {
	if !r.Violated(ctx) {
		return nil
	}
	rule := firstNonEmpty(r.ID, domain.RuleCrossRule)
	field := firstNonEmpty(r.Field, r.Desc, rule)
	message := r.Desc
	if message == "" {
		message = r.Expr
	}
	return &domain.Finding{
		Field:    field,
		Message:  message,
		Severity: r.Severity,
		Rule:     rule,
	}
}

// refinanceOwnerMatch compares last names of the borrower and the public
// record owner on refinance assignments. Names without a usable token are
// skipped.
func refinanceOwnerMatch(r *registry.RefinanceOwnerMatch, doc payload.Document) *domain.Finding {
	if pstrings.Fold(textAt(doc, "contract.assignment_type")) != assignmentTypeRefinance {
		return nil
	}
	borrower := textAt(doc, borrowerNameField)
	if borrower == "" {
		borrower = textAt(doc, "title.current_owner")
	}
	owner := textAt(doc, "subject.public_record_owner")

	borrowerLast := pstrings.LastNameToken(borrower)
	ownerLast := pstrings.LastNameToken(owner)
	if borrowerLast == "" || ownerLast == "" || borrowerLast == ownerLast {
		return nil
	}

	remediation := r.Remediation
	if remediation == "" {
		remediation = defaultOwnerRemediation
	}
	return &domain.Finding{
		Field: borrowerNameField,
		Message: fmt.Sprintf(
			"Refinance borrower last name does not match the public record owner. Borrower: %s. Public record owner: %s. %s",
			borrower, owner, remediation,
		),
		Severity: r.Severity,
		Rule:     firstNonEmpty(r.ID, domain.RuleRefinanceOwnership),
	}
}

type appraisalTypeFamily int

const (
	familyOther appraisalTypeFamily = iota
	familyAsIs
	familySubjectTo
)

func classifyAppraisalType(value string) appraisalTypeFamily {
	v := pstrings.CollapseSpace(pstrings.Fold(value))
	switch {
	case v == "as is" || v == "as-is" || v == "asis" || strings.HasPrefix(v, "as is"):
		return familyAsIs
	case strings.HasPrefix(v, "subject to"):
		return familySubjectTo
	default:
		return familyOther
	}
}

// appraisalTypeGate flags appraisals that are not "as is" until a reviewer
// has escalated or acknowledged them.
func appraisalTypeGate(r *registry.ReconciliationAppraisalType, doc payload.Document) *domain.Finding {
	value := textAt(doc, appraisalTypeField)
	if value == "" {
		return nil
	}
	family := classifyAppraisalType(value)
	if family == familyAsIs {
		return nil
	}
	if payload.Truthy(payload.Get(doc, "review.escalated")) || payload.Truthy(payload.Get(doc, "review.acknowledged")) {
		return nil
	}

	hint := r.Remediation
	if hint == "" {
		hint = defaultAppraisalTypeHint
	}
	var message string
	if family == familySubjectTo {
		message = fmt.Sprintf("Appraisal type '%s' is conditional on repairs or completion. %s", value, hint)
	} else {
		message = fmt.Sprintf("Appraisal type '%s' is not an as-is value. %s", value, hint)
	}
	// The gate is review-only whatever severity the registry entry carries.
	return &domain.Finding{
		Field:    appraisalTypeField,
		Message:  message,
		Severity: domain.SeverityCondition,
		Rule:     firstNonEmpty(r.ID, domain.RuleAppraisalTypeGate),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
