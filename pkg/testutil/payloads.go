package testutil

import "encoding/json"

// Payload is a mutable payload tree for building test inputs.
type Payload = map[string]any

// BasePayload returns a purchase payload that passes every built-in rule.
func BasePayload() Payload {
	return Payload{
		"subject": map[string]any{
			"address": map[string]any{
				"street": "123 Main St",
				"city":   "Denver",
				"state":  "CO",
				"zip":    "80202",
			},
			"parcel_number":       "1234567890",
			"pud_indicator":       false,
			"hoa_frequency":       "None",
			"tax_year":            "2024",
			"real_estate_taxes":   2400,
			"borrower_name":       "Alex Morgan",
			"public_record_owner": "Alex Morgan",
		},
		"contract": map[string]any{
			"assignment_type": "Purchase",
			"contract_price":  525000,
			"contract_date":   "04/01/2024",
		},
	}
}

// RefinancePayload returns BasePayload with a refinance assignment.
func RefinancePayload() Payload {
	p := BasePayload()
	Section(p, "contract")["assignment_type"] = "Refinance"
	return p
}

func photo(caption string, page int, name string) map[string]any {
	return map[string]any{
		"caption":     caption,
		"page_number": page,
		"present":     true,
		"reference":   "https://example.com/photos/" + name + ".jpg",
	}
}

func certification(name, license, state, expires string) map[string]any {
	return map[string]any{
		"name":            name,
		"license_number":  license,
		"state":           state,
		"expiration_date": expires,
	}
}

func section(title string, page int) map[string]any {
	return map[string]any{"title": title, "page_number": page, "comments": "Complete"}
}

// SignedReportPayload returns BasePayload signed by the appraiser with
// complete certifications, photos and sections.
func SignedReportPayload() Payload {
	p := BasePayload()
	p["appraiser"] = map[string]any{
		"signature_present": true,
		"signature_date":    "03/02/2024",
	}
	p["photos"] = map[string]any{
		"front_exterior": photo("Front", 2, "front"),
		"rear_exterior":  photo("Rear", 3, "rear"),
		"street_scene":   photo("Street", 4, "street"),
		"kitchen":        photo("Kitchen", 5, "kitchen"),
		"bathroom":       photo("Bathroom", 6, "bathroom"),
		"living_room":    photo("Living", 7, "living"),
		"other":          photo("Garage", 8, "other"),
	}
	p["certifications"] = map[string]any{
		"appraiser":             certification("Casey Appraiser", "A12345", "IL", "12/31/2025"),
		"supervisory_appraiser": certification("Sam Supervisor", "S67890", "IL", "11/30/2025"),
	}
	p["sections"] = map[string]any{
		"section_a": section("Neighborhood", 9),
		"section_b": section("Site", 10),
		"section_c": section("Improvements", 11),
		"section_d": section("Additional Comments", 12),
	}
	return p
}

// Clone deep-copies a payload through JSON.
func Clone(p Payload) Payload {
	data, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var out Payload
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

// Section returns the named top-level mapping, creating it when absent.
func Section(p Payload, name string) map[string]any {
	if m, ok := p[name].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	p[name] = m
	return m
}

// Sources holds the secondary documents attached by WithSources. A nil
// document is left out.
type Sources struct {
	LoanDocs      map[string]any
	Title         map[string]any
	PublicRecords map[string]any
}

// WithSources returns a copy of p carrying the given secondary documents.
func WithSources(p Payload, s Sources) Payload {
	out := Clone(p)
	sources := map[string]any{}
	if s.LoanDocs != nil {
		sources["loan_docs"] = s.LoanDocs
	}
	if s.Title != nil {
		sources["title"] = s.Title
	}
	if s.PublicRecords != nil {
		sources["public_records"] = s.PublicRecords
	}
	if len(sources) > 0 {
		out["sources"] = sources
	}
	return out
}

// MirrorSource copies the subject and contract sections of p into a
// secondary document that agrees with the appraisal.
func MirrorSource(p Payload) map[string]any {
	c := Clone(p)
	return map[string]any{
		"subject":  c["subject"],
		"contract": c["contract"],
	}
}

// SalesComparison returns a copy of p with the given subject condition and
// comparables.
func SalesComparison(p Payload, subject any, comparables ...map[string]any) Payload {
	out := Clone(p)
	comps := make([]any, 0, len(comparables))
	for _, c := range comparables {
		comps = append(comps, c)
	}
	out["sales_comparison"] = map[string]any{
		"subject":     subject,
		"comparables": comps,
	}
	return out
}

// Comparable builds a comparable entry with a condition code and rank.
func Comparable(id, code string, rank int) map[string]any {
	return map[string]any{"id": id, "condition": code, "condition_rank": rank}
}

// SubjectCondition builds a subject condition entry.
func SubjectCondition(code string, rank int) map[string]any {
	return map[string]any{"condition": code, "condition_rank": rank}
}
