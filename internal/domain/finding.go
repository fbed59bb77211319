package domain

// Severity classifies a finding. Only SeverityError fails a validation run.
type Severity string

const (
	SeverityError     Severity = "error"
	SeverityWarn      Severity = "warn"
	SeverityCondition Severity = "condition"
)

// ParseSeverity maps a configured severity label onto the closed set,
// returning fallback for blank or unknown labels.
func ParseSeverity(label string, fallback Severity) Severity {
	switch Severity(label) {
	case SeverityError, SeverityWarn, SeverityCondition:
		return Severity(label)
	default:
		return fallback
	}
}

// Valid reports whether s belongs to the closed severity set.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarn, SeverityCondition:
		return true
	}
	return false
}

// Rule identifiers emitted by the built-in checkers.
const (
	RuleSchema             = "schema"
	RuleFieldRequirement   = "uad_requirement"
	RuleCrossRule          = "cross_rule"
	RuleSourceAlignment    = "R-06"
	RuleSignatureDeps      = "R-01"
	RulePhotoInventory     = "R-02"
	RuleConditionOutlier   = "R-13"
	RuleAppraisalTypeGate  = "R-12"
	RuleRefinanceOwnership = "X010"
)

// SourceValue is one source's contribution to a multi-source comparison.
type SourceValue struct {
	Value   any  `json:"value"`
	Missing bool `json:"missing"`
}

// Finding is a single validation outcome for a field or rule. Sources is
// only populated by multi-source comparisons.
type Finding struct {
	Field    string                 `json:"field"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity"`
	Rule     string                 `json:"rule"`
	Sources  map[string]SourceValue `json:"sources,omitempty"`
}
