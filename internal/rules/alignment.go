package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
	pstrings "uadcheck/pkg/platform/strings"
)

// MissingPlaceholder stands in for an absent value in messages.
const MissingPlaceholder = "—"

// Source keys used in Finding.Sources.
const (
	SourceAppraisal     = "appraisal"
	SourceLoanDocs      = "loan_docs"
	SourceTitle         = "title"
	SourcePublicRecords = "public_records"
)

type alignmentSource struct {
	key   string
	label string
}

// alignmentSources is the comparison order; the appraisal itself comes
// first and is always present.
var alignmentSources = []alignmentSource{
	{SourceAppraisal, "Appraisal report"},
	{SourceLoanDocs, "Loan docs"},
	{SourceTitle, "Title"},
	{SourcePublicRecords, "Public records"},
}

// SourceAlignment compares each alignment field across the appraisal and
// the secondary documents under payload.sources, flagging fields whose
// present values disagree.
func SourceAlignment(doc payload.Document, reg *registry.FieldRegistry) []domain.Finding {
	docs := sourceDocuments(doc)
	if len(docs) < 2 {
		return nil
	}

	var findings []domain.Finding
	for _, path := range reg.AlignmentPaths() {
		if f := alignField(path, docs); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

type sourceDocument struct {
	alignmentSource
	doc payload.Document
}

func sourceDocuments(doc payload.Document) []sourceDocument {
	docs := []sourceDocument{{alignmentSources[0], doc}}
	sources, _ := payload.AsMap(doc["sources"])
	for _, src := range alignmentSources[1:] {
		if m, ok := payload.AsMap(sources[src.key]); ok {
			docs = append(docs, sourceDocument{src, m})
		}
	}
	return docs
}

func alignField(path string, docs []sourceDocument) *domain.Finding {
	details := make(map[string]domain.SourceValue, len(docs))
	parts := make([]string, 0, len(docs))
	var present []any
	for _, d := range docs {
		value := payload.Get(d.doc, path)
		missing := payload.IsMissing(value)
		if missing {
			details[d.key] = domain.SourceValue{Missing: true}
			parts = append(parts, fmt.Sprintf("%s: %s", d.label, MissingPlaceholder))
			continue
		}
		details[d.key] = domain.SourceValue{Value: value}
		parts = append(parts, fmt.Sprintf("%s: %s", d.label, displayValue(value)))
		present = append(present, alignmentKey(value))
	}

	if len(present) < 2 || allEqual(present) {
		return nil
	}
	return &domain.Finding{
		Field:    path,
		Message:  fmt.Sprintf("Sources disagree on %s. %s.", path, strings.Join(parts, "; ")),
		Severity: domain.SeverityError,
		Rule:     domain.RuleSourceAlignment,
		Sources:  details,
	}
}

// alignmentKey normalizes a value for cross-source comparison: strings are
// trimmed and case folded, numbers become float64.
func alignmentKey(v any) any {
	switch val := v.(type) {
	case string:
		return pstrings.Fold(val)
	case bool:
		return val
	}
	if n, ok := payload.Number(v); ok {
		return n
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return "json:" + string(data)
}

func allEqual(values []any) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func displayValue(v any) string {
	if s := payload.Display(v); s != "" {
		return s
	}
	return MissingPlaceholder
}
