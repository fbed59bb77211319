package findings

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"uadcheck/internal/domain"
	dErrors "uadcheck/pkg/domain-errors"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Result() *domain.Result
	Err() error
}

// RegisterSteps registers result assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &findingSteps{tc: tc}

	ctx.Step(`^the status should be "([^"]*)"$`, steps.statusShouldBe)
	ctx.Step(`^there should be no findings$`, steps.noFindings)
	ctx.Step(`^there should be no "([^"]*)" findings$`, steps.noFindingsForRule)
	ctx.Step(`^there should be an? "([^"]*)" finding on "([^"]*)"$`, steps.findingOn)
	ctx.Step(`^the "([^"]*)" finding on "([^"]*)" should have severity "([^"]*)"$`, steps.findingSeverity)
	ctx.Step(`^the "([^"]*)" finding on "([^"]*)" should mention "([^"]*)"$`, steps.findingMentions)
	ctx.Step(`^there should be (\d+) "([^"]*)" findings?$`, steps.findingCount)
	ctx.Step(`^validation should fail with "([^"]*)"$`, steps.failWithCode)
}

type findingSteps struct {
	tc TestContext
}

func (s *findingSteps) result() (*domain.Result, error) {
	if err := s.tc.Err(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if s.tc.Result() == nil {
		return nil, fmt.Errorf("no validation result; run the payload through validation first")
	}
	return s.tc.Result(), nil
}

func (s *findingSteps) statusShouldBe(ctx context.Context, status string) error {
	r, err := s.result()
	if err != nil {
		return err
	}
	if string(r.Status) != status {
		return fmt.Errorf("expected status %q, got %q with findings %s", status, r.Status, describe(r.Findings))
	}
	return nil
}

func (s *findingSteps) noFindings(ctx context.Context) error {
	r, err := s.result()
	if err != nil {
		return err
	}
	if len(r.Findings) > 0 {
		return fmt.Errorf("expected no findings, got %s", describe(r.Findings))
	}
	return nil
}

func (s *findingSteps) noFindingsForRule(ctx context.Context, rule string) error {
	return s.findingCount(ctx, 0, rule)
}

func (s *findingSteps) findingCount(ctx context.Context, count int, rule string) error {
	r, err := s.result()
	if err != nil {
		return err
	}
	matched := byRule(r.Findings, rule)
	if len(matched) != count {
		return fmt.Errorf("expected %d %q findings, got %s", count, rule, describe(matched))
	}
	return nil
}

func (s *findingSteps) findingOn(ctx context.Context, rule, field string) error {
	_, err := s.lookup(rule, field)
	return err
}

func (s *findingSteps) findingSeverity(ctx context.Context, rule, field, severity string) error {
	f, err := s.lookup(rule, field)
	if err != nil {
		return err
	}
	if string(f.Severity) != severity {
		return fmt.Errorf("expected %s finding on %s to be %q, got %q", rule, field, severity, f.Severity)
	}
	return nil
}

func (s *findingSteps) findingMentions(ctx context.Context, rule, field, text string) error {
	f, err := s.lookup(rule, field)
	if err != nil {
		return err
	}
	if !strings.Contains(f.Message, text) {
		return fmt.Errorf("expected %s finding on %s to mention %q, got %q", rule, field, text, f.Message)
	}
	return nil
}

func (s *findingSteps) failWithCode(ctx context.Context, code string) error {
	err := s.tc.Err()
	if err == nil {
		return fmt.Errorf("expected validation to fail with %s", code)
	}
	if !dErrors.HasCode(err, dErrors.Code(code)) {
		return fmt.Errorf("expected error code %s, got %s: %v", code, dErrors.CodeOf(err), err)
	}
	return nil
}

func (s *findingSteps) lookup(rule, field string) (domain.Finding, error) {
	r, err := s.result()
	if err != nil {
		return domain.Finding{}, err
	}
	for _, f := range r.Findings {
		if f.Rule == rule && f.Field == field {
			return f, nil
		}
	}
	return domain.Finding{}, fmt.Errorf("no %s finding on %s in %s", rule, field, describe(r.Findings))
}

func byRule(findings []domain.Finding, rule string) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func describe(findings []domain.Finding) string {
	if len(findings) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, fmt.Sprintf("%s@%s(%s)", f.Rule, f.Field, f.Severity))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
