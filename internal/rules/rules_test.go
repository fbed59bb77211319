package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
	"uadcheck/internal/registry/builtin"
	"uadcheck/pkg/testutil"
)

type RulesSuite struct {
	suite.Suite
	ruleset *registry.Ruleset
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func (s *RulesSuite) SetupSuite() {
	rs, err := registry.NewLoader(builtin.FS()).Load(context.Background(), registry.DefaultSchemaPath, registry.DefaultRegistryPath)
	s.Require().NoError(err)
	s.ruleset = rs
}

func (s *RulesSuite) normalized(p testutil.Payload) payload.Document {
	out, err := payload.Normalize(p)
	s.Require().NoError(err)
	doc, ok := out.(map[string]any)
	s.Require().True(ok)
	return doc
}

func (s *RulesSuite) fieldFindings(p testutil.Payload) []domain.Finding {
	doc := s.normalized(p)
	return FieldRequirements(doc, s.ruleset.Fields, NewContext(doc))
}

func (s *RulesSuite) crossFindings(p testutil.Payload) []domain.Finding {
	doc := s.normalized(p)
	return CrossRules(doc, s.ruleset.Fields, NewContext(doc))
}

// =============================================================================
// Field requirements
// =============================================================================

func (s *RulesSuite) TestFieldRequirements() {
	s.Run("complete purchase payload has no findings", func() {
		s.Empty(s.fieldFindings(testutil.BasePayload()))
	})

	s.Run("purchase requires contract price and date", func() {
		p := testutil.BasePayload()
		delete(testutil.Section(p, "contract"), "contract_price")
		delete(testutil.Section(p, "contract"), "contract_date")

		findings := s.fieldFindings(p)
		s.ElementsMatch([]string{"contract.contract_price", "contract.contract_date"}, testutil.Fields(findings))
		for _, f := range findings {
			s.Equal(domain.SeverityError, f.Severity)
			s.Equal(domain.RuleFieldRequirement, f.Rule)
			s.Contains(f.Message, f.Field)
		}
	})

	s.Run("refinance skips contract price and date", func() {
		p := testutil.RefinancePayload()
		delete(testutil.Section(p, "contract"), "contract_price")
		delete(testutil.Section(p, "contract"), "contract_date")
		s.Empty(s.fieldFindings(p))
	})

	s.Run("refinance requirement does not fire on purchase", func() {
		p := testutil.BasePayload()
		delete(testutil.Section(p, "subject"), "borrower_name")
		delete(testutil.Section(p, "subject"), "public_record_owner")
		s.Empty(s.fieldFindings(p))
	})

	s.Run("refinance borrower is required and owner is recommended", func() {
		p := testutil.RefinancePayload()
		testutil.Section(p, "subject")["borrower_name"] = "   "
		delete(testutil.Section(p, "subject"), "public_record_owner")

		findings := s.fieldFindings(p)
		s.Require().Len(findings, 2)
		s.Equal("subject.borrower_name", findings[0].Field)
		s.Equal(domain.SeverityError, findings[0].Severity)
		s.Equal("subject.public_record_owner", findings[1].Field)
		s.Equal(domain.SeverityWarn, findings[1].Severity)
	})

	s.Run("unconditional requirement fires regardless of other fields", func() {
		p := testutil.BasePayload()
		testutil.Section(p, "subject")["address"] = map[string]any{"street": "", "city": nil, "state": "CO", "zip": "80202"}

		s.ElementsMatch([]string{"subject.address.street", "subject.address.city"}, testutil.Fields(s.fieldFindings(p)))
	})

	s.Run("recommendation without condition is never flagged", func() {
		p := testutil.BasePayload()
		delete(testutil.Section(p, "subject"), "parcel_number")
		s.Empty(s.fieldFindings(p))
	})

	s.Run("malformed condition is treated as not required", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"fields": [
		  {"code": "contract.missing", "uad": "Requirement", "required_when": "(contract.assignment_type == 'Purchase'"}
		]}`))
		s.Require().NoError(err)
		doc := s.normalized(testutil.BasePayload())
		s.Empty(FieldRequirements(doc, reg, NewContext(doc)))
	})
}

// =============================================================================
// Cross rules
// =============================================================================

func (s *RulesSuite) TestGenericCrossRules() {
	s.Run("base payload passes", func() {
		s.Empty(s.crossFindings(testutil.BasePayload()))
	})

	s.Run("PUD without HOA frequency warns once", func() {
		p := testutil.BasePayload()
		testutil.Section(p, "subject")["pud_indicator"] = true
		testutil.Section(p, "subject")["hoa_frequency"] = "None"

		findings := testutil.FindingsFor(s.crossFindings(p), "X002")
		s.Require().Len(findings, 1)
		s.Equal(domain.SeverityWarn, findings[0].Severity)
		s.Contains(findings[0].Message, "HOA")
		s.Equal("subject.hoa_frequency", findings[0].Field)
	})

	s.Run("PUD with HOA frequency passes", func() {
		p := testutil.BasePayload()
		testutil.Section(p, "subject")["pud_indicator"] = true
		testutil.Section(p, "subject")["hoa_frequency"] = "PerMonth"
		s.Empty(testutil.FindingsFor(s.crossFindings(p), "X002"))
	})

	s.Run("unknown assignment type is an error", func() {
		p := testutil.BasePayload()
		testutil.Section(p, "contract")["assignment_type"] = "Lease"

		findings := testutil.FindingsFor(s.crossFindings(p), "X001")
		s.Require().Len(findings, 1)
		s.Equal(domain.SeverityError, findings[0].Severity)
		s.Equal("contract.assignment_type", findings[0].Field)
	})

	s.Run("message and field fall back to expression and id", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"cross_rules": [{"id": "X9", "expr": "subject.missing == 'x'"}]}`))
		s.Require().NoError(err)
		doc := s.normalized(testutil.BasePayload())

		findings := CrossRules(doc, reg, NewContext(doc))
		s.Require().Len(findings, 1)
		s.Equal("X9", findings[0].Field)
		s.Equal("X9", findings[0].Rule)
		s.Equal("subject.missing == 'x'", findings[0].Message)
		s.Equal(domain.SeverityWarn, findings[0].Severity)
	})

	s.Run("rule without id uses the generic rule label", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"cross_rules": [{"expr": "false", "desc": "never"}]}`))
		s.Require().NoError(err)
		doc := s.normalized(testutil.BasePayload())

		findings := CrossRules(doc, reg, NewContext(doc))
		s.Require().Len(findings, 1)
		s.Equal(domain.RuleCrossRule, findings[0].Rule)
		s.Equal("never", findings[0].Field)
	})

	s.Run("description stands in for a missing field", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"cross_rules": [
		    {"id": "X7", "expr": "subject.missing == 'x'", "desc": "Subject must carry x"},
		    {"id": "X8", "expr": "subject.missing == 'x'", "desc": "Subject must carry x", "field": "subject.missing"}
		]}`))
		s.Require().NoError(err)
		doc := s.normalized(testutil.BasePayload())

		findings := CrossRules(doc, reg, NewContext(doc))
		s.Require().Len(findings, 2)
		s.Equal("Subject must carry x", testutil.FindingsFor(findings, "X7")[0].Field)
		s.Equal("subject.missing", testutil.FindingsFor(findings, "X8")[0].Field)
		s.Equal("Subject must carry x", findings[0].Message)
	})

	s.Run("blank id and description fall back to the generic label", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"cross_rules": [{"expr": "false"}]}`))
		s.Require().NoError(err)
		doc := s.normalized(testutil.BasePayload())

		findings := CrossRules(doc, reg, NewContext(doc))
		s.Require().Len(findings, 1)
		s.Equal(domain.RuleCrossRule, findings[0].Field)
		s.Equal("false", findings[0].Message)
	})
}

func (s *RulesSuite) TestRefinanceOwnerMatch() {
	refinance := func(borrower, owner any) testutil.Payload {
		p := testutil.RefinancePayload()
		testutil.Section(p, "subject")["borrower_name"] = borrower
		testutil.Section(p, "subject")["public_record_owner"] = owner
		return p
	}

	s.Run("matching names pass", func() {
		s.Empty(testutil.FindingsFor(s.crossFindings(refinance("Alex Morgan", "Alex Morgan")), "X010"))
	})

	s.Run("last name mismatch is a condition", func() {
		findings := testutil.FindingsFor(s.crossFindings(refinance("Alex Morgan", "Taylor Smith")), "X010")
		s.Require().Len(findings, 1)
		s.Equal(domain.SeverityCondition, findings[0].Severity)
		s.Equal("subject.borrower_name", findings[0].Field)
		s.Contains(findings[0].Message, "Borrower: Alex Morgan")
		s.Contains(findings[0].Message, "Public record owner: Taylor Smith")
		s.Contains(findings[0].Message, "title commitment")
	})

	s.Run("joint borrowers sharing the owner's last name pass", func() {
		s.Empty(testutil.FindingsFor(s.crossFindings(refinance("Alex & Jamie Morgan", "Jamie Morgan")), "X010"))
	})

	s.Run("hyphenated and punctuated names compare by final token", func() {
		s.Empty(testutil.FindingsFor(s.crossFindings(refinance("Jamie Lee-Morgan", "MORGAN, J.  morgan.")), "X010"))
	})

	s.Run("missing owner skips the rule", func() {
		s.Empty(testutil.FindingsFor(s.crossFindings(refinance("Alex Morgan", "  ")), "X010"))
	})

	s.Run("title owner is the borrower fallback", func() {
		p := refinance(nil, "Taylor Smith")
		p["title"] = map[string]any{"current_owner": "Pat Jones"}

		findings := testutil.FindingsFor(s.crossFindings(p), "X010")
		s.Require().Len(findings, 1)
		s.Contains(findings[0].Message, "Borrower: Pat Jones")
	})

	s.Run("purchase is never checked", func() {
		p := testutil.BasePayload()
		testutil.Section(p, "subject")["public_record_owner"] = "Taylor Smith"
		s.Empty(testutil.FindingsFor(s.crossFindings(p), "X010"))
	})
}

func (s *RulesSuite) TestAppraisalTypeGate() {
	withType := func(value string, review map[string]any) testutil.Payload {
		p := testutil.BasePayload()
		p["reconciliation"] = map[string]any{"appraisal_type": value}
		if review != nil {
			p["review"] = review
		}
		return p
	}

	for _, asIs := range []string{"As is", "AS-IS", "asis", "As Is Condition", "  as   is  "} {
		s.Run("as is family passes: "+asIs, func() {
			s.Empty(testutil.FindingsFor(s.crossFindings(withType(asIs, nil)), "R-12"))
		})
	}

	s.Run("subject to without review is flagged", func() {
		findings := testutil.FindingsFor(s.crossFindings(withType("Subject to", nil)), "R-12")
		s.Require().Len(findings, 1)
		s.Equal(domain.SeverityCondition, findings[0].Severity)
		s.Contains(findings[0].Message, "Subject to")
		s.Equal("reconciliation.appraisal_type", findings[0].Field)
	})

	s.Run("other appraisal types are flagged", func() {
		findings := testutil.FindingsFor(s.crossFindings(withType("Hypothetical", nil)), "R-12")
		s.Require().Len(findings, 1)
		s.Contains(findings[0].Message, "'Hypothetical'")
	})

	s.Run("escalation clears the flag", func() {
		p := withType("Subject to completion per plans", map[string]any{"escalated": true})
		s.Empty(testutil.FindingsFor(s.crossFindings(p), "R-12"))
	})

	s.Run("acknowledgement clears the flag", func() {
		p := withType("Subject to repairs", map[string]any{"acknowledged": true})
		s.Empty(testutil.FindingsFor(s.crossFindings(p), "R-12"))
	})

	s.Run("blank type is skipped", func() {
		s.Empty(testutil.FindingsFor(s.crossFindings(withType("  ", nil)), "R-12"))
	})

	s.Run("configured severity cannot escalate the gate", func() {
		reg, err := registry.ParseFieldRegistry([]byte(`{"cross_rules": [
		    {"id": "R-12", "type": "reconciliation_appraisal_type", "severity": "error"}
		]}`))
		s.Require().NoError(err)
		doc := s.normalized(withType("Subject to repairs", nil))

		findings := testutil.FindingsFor(CrossRules(doc, reg, NewContext(doc)), "R-12")
		s.Require().Len(findings, 1)
		s.Equal(domain.SeverityCondition, findings[0].Severity)
		s.Equal(domain.StatusPass, domain.StatusOf(findings))
	})
}

// =============================================================================
// Source alignment
// =============================================================================

func (s *RulesSuite) alignmentFindings(p testutil.Payload) []domain.Finding {
	return SourceAlignment(s.normalized(p), s.ruleset.Fields)
}

func (s *RulesSuite) TestSourceAlignment() {
	s.Run("matching sources pass", func() {
		base := testutil.BasePayload()
		mirror := testutil.MirrorSource(base)
		p := testutil.WithSources(base, testutil.Sources{LoanDocs: mirror, Title: mirror, PublicRecords: mirror})
		s.Empty(s.alignmentFindings(p))
	})

	s.Run("no sources means nothing to compare", func() {
		s.Empty(s.alignmentFindings(testutil.BasePayload()))
	})

	s.Run("case and whitespace differences are not mismatches", func() {
		base := testutil.BasePayload()
		loan := testutil.MirrorSource(base)
		loan["subject"].(map[string]any)["address"].(map[string]any)["street"] = "  123 MAIN st "
		s.Empty(s.alignmentFindings(testutil.WithSources(base, testutil.Sources{LoanDocs: loan})))
	})

	s.Run("each mismatching field is flagged", func() {
		base := testutil.BasePayload()
		loan := testutil.MirrorSource(base)
		loan["subject"].(map[string]any)["address"].(map[string]any)["street"] = "123 Main Street"

		title := testutil.MirrorSource(base)
		titleSubject := title["subject"].(map[string]any)
		titleSubject["address"].(map[string]any)["street"] = "12 Diverge Ave"
		titleSubject["borrower_name"] = "Taylor Morgan"
		titleSubject["public_record_owner"] = "Taylor Morgan"

		records := testutil.MirrorSource(base)

		p := testutil.WithSources(base, testutil.Sources{LoanDocs: loan, Title: title, PublicRecords: records})
		findings := s.alignmentFindings(p)

		s.ElementsMatch([]string{
			"subject.address.street",
			"subject.borrower_name",
			"subject.public_record_owner",
		}, testutil.Fields(findings))

		for _, f := range findings {
			s.Equal(domain.SeverityError, f.Severity)
			s.Equal(domain.RuleSourceAlignment, f.Rule)
		}

		street := findings[0]
		s.Equal("subject.address.street", street.Field)
		s.Contains(street.Message, "Appraisal report: 123 Main St")
		s.Contains(street.Message, "Loan docs: 123 Main Street")
		s.Contains(street.Message, "Title: 12 Diverge Ave")
		s.Contains(street.Message, "Public records: 123 Main St")
		s.Equal("12 Diverge Ave", street.Sources[SourceTitle].Value)
		s.Len(street.Sources, 4)

		name := findings[1]
		s.False(name.Sources[SourcePublicRecords].Missing)
	})

	s.Run("missing source values are shown with a placeholder", func() {
		base := testutil.BasePayload()
		loan := testutil.MirrorSource(base)
		loan["subject"].(map[string]any)["parcel_number"] = "999"
		title := testutil.MirrorSource(base)
		delete(title["subject"].(map[string]any), "parcel_number")

		findings := s.alignmentFindings(testutil.WithSources(base, testutil.Sources{LoanDocs: loan, Title: title}))
		s.Require().Len(findings, 1)
		s.Equal("subject.parcel_number", findings[0].Field)
		s.Contains(findings[0].Message, "Title: "+MissingPlaceholder)
		s.True(findings[0].Sources[SourceTitle].Missing)
		s.Nil(findings[0].Sources[SourceTitle].Value)
		s.NotContains(findings[0].Sources, SourcePublicRecords)
	})

	s.Run("a single present value is skipped", func() {
		base := testutil.BasePayload()
		delete(testutil.Section(base, "subject"), "parcel_number")
		loan := testutil.MirrorSource(base)
		loan["subject"].(map[string]any)["parcel_number"] = "999"

		s.Empty(s.alignmentFindings(testutil.WithSources(base, testutil.Sources{LoanDocs: loan})))
	})

	s.Run("numbers compare by value", func() {
		base := testutil.BasePayload()
		loan := testutil.MirrorSource(base)
		loan["contract"].(map[string]any)["contract_price"] = 525000.0
		s.Empty(s.alignmentFindings(testutil.WithSources(base, testutil.Sources{LoanDocs: loan})))

		loan["contract"].(map[string]any)["contract_price"] = 530000
		findings := s.alignmentFindings(testutil.WithSources(base, testutil.Sources{LoanDocs: loan}))
		s.Equal([]string{"contract.contract_price"}, testutil.Fields(findings))
		s.Contains(findings[0].Message, "Loan docs: 530000")
	})
}

// =============================================================================
// Completeness gate
// =============================================================================

func (s *RulesSuite) completenessFindings(p testutil.Payload) []domain.Finding {
	doc := s.normalized(p)
	findings := SignatureDependencies(doc, s.ruleset.Signature)
	return append(findings, PhotoInventory(doc, s.ruleset.Photos)...)
}

func (s *RulesSuite) TestCompletenessGate() {
	s.Run("fully signed report passes", func() {
		s.Empty(s.completenessFindings(testutil.SignedReportPayload()))
	})

	s.Run("signed report without dependencies reports first gap and every photo", func() {
		p := testutil.BasePayload()
		p["appraiser"] = map[string]any{"signature_present": true, "signature_date": "03/02/2024"}

		findings := s.completenessFindings(p)
		sig := testutil.FindingsFor(findings, domain.RuleSignatureDeps)
		s.Require().Len(sig, 1)
		s.Equal("certifications.appraiser.name", sig[0].Field)
		s.Contains(sig[0].Message, "Sections A–D")
		s.Equal(domain.SeverityError, sig[0].Severity)

		photos := testutil.FindingsFor(findings, domain.RulePhotoInventory)
		s.Require().Len(photos, 1)
		s.Equal("photos", photos[0].Field)
		s.Contains(photos[0].Message, "Photos.Bathroom.Present, Photos.Bathroom.Reference, Photos.FrontExterior.Present")
		s.Equal(domain.SeverityError, photos[0].Severity)
	})

	s.Run("unsigned report is not checked", func() {
		p := testutil.BasePayload()
		p["appraiser"] = map[string]any{"signature_present": false, "signature_date": "03/02/2024"}
		s.Empty(s.completenessFindings(p))
	})

	s.Run("undated signature is not checked", func() {
		p := testutil.BasePayload()
		p["appraiser"] = map[string]any{"signature_present": true, "signature_date": nil}
		s.Empty(s.completenessFindings(p))
	})

	s.Run("missing section comment is the first gap after certifications and photos", func() {
		p := testutil.SignedReportPayload()
		testutil.Section(p, "sections")["section_c"] = map[string]any{"comments": " "}
		testutil.Section(p, "sections")["section_d"] = map[string]any{}

		sig := testutil.FindingsFor(s.completenessFindings(p), domain.RuleSignatureDeps)
		s.Require().Len(sig, 1)
		s.Equal("sections.section_c.comments", sig[0].Field)
	})

	s.Run("blank photo reference is listed", func() {
		p := testutil.SignedReportPayload()
		testutil.Section(p, "photos")["kitchen"].(map[string]any)["reference"] = ""

		findings := s.completenessFindings(p)
		s.Empty(testutil.FindingsFor(findings, domain.RuleSignatureDeps))
		photos := testutil.FindingsFor(findings, domain.RulePhotoInventory)
		s.Require().Len(photos, 1)
		s.Contains(photos[0].Message, "Photos.Kitchen.Reference")
		s.NotContains(photos[0].Message, "Photos.Kitchen.Present")
	})

	s.Run("false presence flag is listed", func() {
		p := testutil.SignedReportPayload()
		testutil.Section(p, "photos")["bathroom"].(map[string]any)["present"] = false

		photos := testutil.FindingsFor(s.completenessFindings(p), domain.RulePhotoInventory)
		s.Require().Len(photos, 1)
		s.Contains(photos[0].Message, "Photos.Bathroom.Present")
	})

	s.Run("empty configuration is a no-op", func() {
		p := testutil.BasePayload()
		p["appraiser"] = map[string]any{"signature_present": true, "signature_date": "03/02/2024"}
		doc := s.normalized(p)
		s.Empty(SignatureDependencies(doc, registry.SignatureRequirements{}))
		s.Empty(PhotoInventory(doc, nil))
	})
}

// =============================================================================
// Condition consistency
// =============================================================================

func (s *RulesSuite) conditionFindings(p testutil.Payload) []domain.Finding {
	return ConditionConsistency(s.normalized(p), s.ruleset.Fields.ConditionTolerance)
}

func (s *RulesSuite) TestConditionConsistency() {
	base := testutil.BasePayload()

	s.Run("within tolerance passes", func() {
		p := testutil.SalesComparison(base, testutil.SubjectCondition("C3", 3),
			testutil.Comparable("Comp1", "C2", 2),
			testutil.Comparable("Comp2", "C3", 3),
			testutil.Comparable("Comp3", "C4", 4),
		)
		s.Empty(s.conditionFindings(p))
	})

	s.Run("boundary tolerance passes", func() {
		p := testutil.SalesComparison(base, testutil.SubjectCondition("C4", 4),
			testutil.Comparable("Comp1", "C2", 2),
			testutil.Comparable("Comp2", "C4", 4),
		)
		s.Empty(s.conditionFindings(p))
	})

	s.Run("outliers are flagged per comparable", func() {
		p := testutil.SalesComparison(base, testutil.SubjectCondition("C5", 5),
			testutil.Comparable("Comp1", "C2", 2),
			testutil.Comparable("Comp2", "C2", 2),
		)
		findings := s.conditionFindings(p)
		s.Require().Len(findings, 2)
		for _, f := range findings {
			s.Equal(domain.SeverityError, f.Severity)
			s.Equal(domain.RuleConditionOutlier, f.Rule)
			s.Contains(f.Message, "Δ=3.00")
		}
		s.Contains(findings[0].Message, "Comp1")
		s.Equal("sales_comparison.comparables[1].condition_rank", findings[1].Field)
	})

	s.Run("codes and scalars resolve", func() {
		p := testutil.SalesComparison(base, "C1",
			map[string]any{"label": "Across the street", "condition": "c6"},
			map[string]any{"condition_rank": 2},
		)
		findings := s.conditionFindings(p)
		s.Require().Len(findings, 1)
		s.Contains(findings[0].Message, "Across the street")
		s.Contains(findings[0].Message, "Δ=5.00")
	})

	s.Run("unresolvable ranks are skipped", func() {
		p := testutil.SalesComparison(base, testutil.SubjectCondition("C1", 1),
			map[string]any{"id": "Comp1", "condition": "unknown"},
		)
		s.Empty(s.conditionFindings(p))

		p = testutil.SalesComparison(base, map[string]any{"condition": "n/a"},
			testutil.Comparable("Comp1", "C6", 6),
		)
		s.Empty(s.conditionFindings(p))
	})

	s.Run("custom tolerance is honoured", func() {
		p := testutil.SalesComparison(base, testutil.SubjectCondition("C3", 3),
			map[string]any{"condition_rank": 4},
		)
		findings := ConditionConsistency(s.normalized(p), 0.5)
		s.Require().Len(findings, 1)
		s.Contains(findings[0].Message, "Comparable #1")
		s.Contains(findings[0].Message, "Δ=1.00")
	})

	s.Run("no sales comparison section", func() {
		s.Empty(s.conditionFindings(base))
	})
}
