package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"uadcheck/internal/domain"
	"uadcheck/internal/expr"
)

// Type tags selecting a specialized cross-rule handler.
const (
	TypeRefinanceOwnerMatch         = "refinance_owner_match"
	TypeReconciliationAppraisalType = "reconciliation_appraisal_type"
)

const implicationArrow = "->"

// CrossRule is one entry of the registry's cross_rules list. The concrete
// type selects the handler: *GenericRule, *RefinanceOwnerMatch or
// *ReconciliationAppraisalType.
type CrossRule interface {
	Meta() RuleMeta
	crossRule()
}

// RuleMeta carries the attributes every cross rule shares.
type RuleMeta struct {
	ID          string
	Severity    domain.Severity
	Desc        string
	Remediation string
	Field       string
}

// GenericRule is an expression rule, either a bare boolean that must hold
// or an implication "A -> B" that is violated when A holds and B does not.
type GenericRule struct {
	RuleMeta
	Expr string

	antecedent *expr.Program
	consequent *expr.Program
}

// RefinanceOwnerMatch compares borrower and public record owner last names
// on refinance assignments.
type RefinanceOwnerMatch struct {
	RuleMeta
}

// ReconciliationAppraisalType flags non "as is" appraisals that have not
// been escalated or acknowledged.
type ReconciliationAppraisalType struct {
	RuleMeta
}

func (r *GenericRule) Meta() RuleMeta                 { return r.RuleMeta }
func (r *RefinanceOwnerMatch) Meta() RuleMeta         { return r.RuleMeta }
func (r *ReconciliationAppraisalType) Meta() RuleMeta { return r.RuleMeta }

func (*GenericRule) crossRule()                 {}
func (*RefinanceOwnerMatch) crossRule()         {}
func (*ReconciliationAppraisalType) crossRule() {}

// NewGenericRule compiles src, splitting an implication on its first arrow.
func NewGenericRule(meta RuleMeta, src string) *GenericRule {
	r := &GenericRule{RuleMeta: meta, Expr: strings.TrimSpace(src)}
	if r.Expr == "" {
		return r
	}
	if before, after, ok := strings.Cut(r.Expr, implicationArrow); ok {
		r.antecedent = expr.Compile(strings.TrimSpace(before))
		r.consequent = expr.Compile(strings.TrimSpace(after))
		return r
	}
	r.consequent = expr.Compile(r.Expr)
	return r
}

// IsImplication reports whether the rule has the "A -> B" form.
func (r *GenericRule) IsImplication() bool {
	return r.antecedent != nil
}

// Violated evaluates the rule against ctx. Rules without an expression
// never fire.
func (r *GenericRule) Violated(ctx expr.Context) bool {
	if r.consequent == nil {
		return false
	}
	if r.antecedent != nil {
		return r.antecedent.Eval(ctx) && !r.consequent.Eval(ctx)
	}
	return !r.consequent.Eval(ctx)
}

// ExprErr returns the first compile error of the rule's expressions.
func (r *GenericRule) ExprErr() error {
	if err := r.antecedent.Err(); err != nil {
		return err
	}
	return r.consequent.Err()
}

type crossRuleJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Expr        string `json:"expr"`
	Severity    string `json:"severity"`
	Desc        string `json:"desc"`
	Remediation string `json:"remediation"`
	Field       string `json:"field"`
}

func parseCrossRule(data []byte) (CrossRule, error) {
	var raw crossRuleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	meta := RuleMeta{
		ID:          strings.TrimSpace(raw.ID),
		Desc:        strings.TrimSpace(raw.Desc),
		Remediation: strings.TrimSpace(raw.Remediation),
		Field:       strings.TrimSpace(raw.Field),
	}
	if raw.Severity != "" && !domain.Severity(raw.Severity).Valid() {
		return nil, fmt.Errorf("rule %q: unknown severity %q", meta.ID, raw.Severity)
	}

	switch strings.TrimSpace(raw.Type) {
	case "":
		meta.Severity = domain.ParseSeverity(raw.Severity, domain.SeverityWarn)
		return NewGenericRule(meta, raw.Expr), nil
	case TypeRefinanceOwnerMatch:
		meta.Severity = domain.ParseSeverity(raw.Severity, domain.SeverityCondition)
		return &RefinanceOwnerMatch{RuleMeta: meta}, nil
	case TypeReconciliationAppraisalType:
		meta.Severity = domain.ParseSeverity(raw.Severity, domain.SeverityCondition)
		return &ReconciliationAppraisalType{RuleMeta: meta}, nil
	default:
		return nil, fmt.Errorf("rule %q: unknown type %q", meta.ID, raw.Type)
	}
}
