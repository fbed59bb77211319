package rules

import (
	"fmt"
	"sort"
	"strings"

	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
	pstrings "uadcheck/pkg/platform/strings"
)

const photosField = "photos"

// SignatureGateOpen reports whether the report is signed and dated, which
// is when completeness checks apply.
func SignatureGateOpen(doc payload.Document) bool {
	return payload.Truthy(payload.Get(doc, "appraiser.signature_present")) &&
		!payload.IsMissing(payload.Get(doc, "appraiser.signature_date"))
}

// SignatureDependencies reports the first missing signature dependency on
// a signed report. Only one finding is returned so the appraiser gets a
// single actionable item.
func SignatureDependencies(doc payload.Document, req registry.SignatureRequirements) []domain.Finding {
	if !SignatureGateOpen(doc) {
		return nil
	}
	for _, path := range req.Paths() {
		if !payload.IsMissing(payload.Get(doc, path)) {
			continue
		}
		return []domain.Finding{{
			Field: path,
			Message: fmt.Sprintf(
				"Appraiser signature requires certifications, photo inventory, and Sections A–D to be complete before finalizing the report. First missing field: '%s'.",
				path,
			),
			Severity: domain.SeverityError,
			Rule:     domain.RuleSignatureDeps,
		}}
	}
	return nil
}

// PhotoInventory lists every missing photo inventory code on a signed
// report in one finding. A boolean entry counts as missing when false.
func PhotoInventory(doc payload.Document, photos []registry.PhotoRequirement) []domain.Finding {
	if !SignatureGateOpen(doc) {
		return nil
	}
	var missing []string
	for _, photo := range photos {
		value := payload.Get(doc, photo.PayloadPath)
		if present, ok := value.(bool); ok {
			if !present {
				missing = append(missing, photo.Code)
			}
			continue
		}
		if payload.IsMissing(value) {
			missing = append(missing, photo.Code)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	missing = pstrings.DedupeAndTrim(missing)
	sort.Strings(missing)
	return []domain.Finding{{
		Field:    photosField,
		Message:  fmt.Sprintf("Signed report is missing required photo inventory items: %s.", strings.Join(missing, ", ")),
		Severity: domain.SeverityError,
		Rule:     domain.RulePhotoInventory,
	}}
}
