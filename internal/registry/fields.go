// Package registry models the rule documents that drive validation: the
// field registry with its cross-field rules, the signature dependency
// list and the photo inventory. It also loads them from a file system.
package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"uadcheck/internal/expr"
	dErrors "uadcheck/pkg/domain-errors"
	pstrings "uadcheck/pkg/platform/strings"
)

// UADType is the requirement class of a registry field.
type UADType string

const (
	Requirement    UADType = "Requirement"
	Recommendation UADType = "Recommendation"
)

// DefaultConditionTolerance is the maximum rank distance between the
// subject and a comparable before R-13 flags it.
const DefaultConditionTolerance = 2.0

// FieldRequirement declares a payload field and when it must be present.
type FieldRequirement struct {
	Code         string
	UADType      UADType
	RequiredWhen string

	condition *expr.Program
}

type fieldRequirementJSON struct {
	Code         string  `json:"code"`
	UADType      UADType `json:"uad_type"`
	UAD          UADType `json:"uad"`
	RequiredWhen string  `json:"required_when"`
}

func (f *FieldRequirement) UnmarshalJSON(data []byte) error {
	var raw fieldRequirementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	uadType := raw.UADType
	if uadType == "" {
		uadType = raw.UAD
	}
	if uadType == "" {
		uadType = Requirement
	}
	*f = NewFieldRequirement(strings.TrimSpace(raw.Code), uadType, raw.RequiredWhen)
	return nil
}

// NewFieldRequirement builds a requirement and compiles its condition.
func NewFieldRequirement(code string, uadType UADType, requiredWhen string) FieldRequirement {
	f := FieldRequirement{
		Code:         code,
		UADType:      uadType,
		RequiredWhen: strings.TrimSpace(requiredWhen),
	}
	if f.RequiredWhen != "" {
		f.condition = expr.Compile(f.RequiredWhen)
	}
	return f
}

// Required reports whether the field must be present for ctx. A
// Requirement without a condition is always required; any other field is
// required only while its condition holds.
func (f FieldRequirement) Required(ctx expr.Context) bool {
	if f.RequiredWhen == "" {
		return f.UADType == Requirement
	}
	if f.condition == nil {
		return expr.Evaluate(f.RequiredWhen, ctx)
	}
	return f.condition.Eval(ctx)
}

// ConditionErr returns the compile error of required_when, if any.
func (f FieldRequirement) ConditionErr() error {
	return f.condition.Err()
}

// FieldRegistry is the decoded field registry document.
type FieldRegistry struct {
	Version            string
	Fields             []FieldRequirement
	CrossRules         []CrossRule
	AlignmentFields    []string
	ConditionTolerance float64
}

type fieldRegistryJSON struct {
	Version         string             `json:"version"`
	Fields          []FieldRequirement `json:"fields"`
	CrossRules      []json.RawMessage  `json:"cross_rules"`
	SourceAlignment *struct {
		RequiredFields []string `json:"required_fields"`
	} `json:"source_alignment"`
	ConditionConsistency *struct {
		Tolerance *float64 `json:"tolerance"`
	} `json:"condition_consistency"`
}

// ParseFieldRegistry decodes a field registry document.
func ParseFieldRegistry(data []byte) (*FieldRegistry, error) {
	var raw fieldRegistryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, "decode field registry")
	}

	reg := &FieldRegistry{
		Version:            raw.Version,
		ConditionTolerance: DefaultConditionTolerance,
	}
	for _, f := range raw.Fields {
		if f.Code == "" {
			continue
		}
		reg.Fields = append(reg.Fields, f)
	}
	for i, msg := range raw.CrossRules {
		rule, err := parseCrossRule(msg)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("cross_rules[%d]", i))
		}
		reg.CrossRules = append(reg.CrossRules, rule)
	}
	if raw.SourceAlignment != nil {
		reg.AlignmentFields = pstrings.DedupeAndTrim(raw.SourceAlignment.RequiredFields)
	}
	if cc := raw.ConditionConsistency; cc != nil && cc.Tolerance != nil {
		if *cc.Tolerance < 0 {
			return nil, dErrors.New(dErrors.CodeConfigInvalid, "condition_consistency.tolerance must not be negative")
		}
		reg.ConditionTolerance = *cc.Tolerance
	}
	return reg, nil
}

// AlignmentPaths returns the field paths compared across sources: the
// explicit list when configured, otherwise every Requirement code.
func (r *FieldRegistry) AlignmentPaths() []string {
	if r == nil {
		return nil
	}
	if len(r.AlignmentFields) > 0 {
		return r.AlignmentFields
	}
	var codes []string
	for _, f := range r.Fields {
		if f.UADType == Requirement {
			codes = append(codes, f.Code)
		}
	}
	return pstrings.DedupeAndTrim(codes)
}

// ExpressionErrors lists compile errors from every expression in the
// registry, keyed by the field code or rule id that owns it.
func (r *FieldRegistry) ExpressionErrors() map[string]error {
	if r == nil {
		return nil
	}
	errs := make(map[string]error)
	for _, f := range r.Fields {
		if err := f.ConditionErr(); err != nil {
			errs[f.Code] = err
		}
	}
	for _, rule := range r.CrossRules {
		if g, ok := rule.(*GenericRule); ok {
			if err := g.ExprErr(); err != nil {
				errs[g.ID] = err
			}
		}
	}
	return errs
}
