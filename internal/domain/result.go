package domain

// Status is the overall outcome of a validation run.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Result is the serializable outcome returned to callers.
type Result struct {
	Status         Status    `json:"status"`
	Findings       []Finding `json:"findings"`
	RulesetVersion string    `json:"ruleset_version"`
}

// StatusOf derives the run status: fail iff any finding is an error.
// Warnings and conditions are advisory.
func StatusOf(findings []Finding) Status {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return StatusFail
		}
	}
	return StatusPass
}

// NewResult assembles a Result, deriving the status from findings. A nil
// slice is normalized so the JSON form always carries an array.
func NewResult(findings []Finding, rulesetVersion string) *Result {
	if findings == nil {
		findings = []Finding{}
	}
	return &Result{
		Status:         StatusOf(findings),
		Findings:       findings,
		RulesetVersion: rulesetVersion,
	}
}

// CountBySeverity tallies findings per severity.
func (r *Result) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
