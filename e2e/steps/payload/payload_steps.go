package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"testing/fstest"

	"github.com/cucumber/godog"

	"uadcheck/internal/condition"
	"uadcheck/pkg/testutil"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	UseRules(fsys fs.FS)
	SetPayload(p map[string]any)
	Payload() map[string]any
	Validate(ctx context.Context) error
}

// RegisterSteps registers payload construction and validation steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &payloadSteps{tc: tc}

	ctx.Step(`^an empty rules directory$`, steps.emptyRules)
	ctx.Step(`^a baseline (purchase|refinance) payload$`, steps.baselinePayload)
	ctx.Step(`^a fully signed report$`, steps.signedReport)
	ctx.Step(`^the payload field "([^"]*)" is set to (.+)$`, steps.setField)
	ctx.Step(`^the payload has no "([^"]*)" field$`, steps.removeField)
	ctx.Step(`^the "([^"]*)" source mirrors the appraisal$`, steps.mirrorSource)
	ctx.Step(`^the subject condition is "([^"]*)" with comparables:$`, steps.salesComparison)
	ctx.Step(`^I validate the payload$`, steps.validate)
}

type payloadSteps struct {
	tc TestContext
}

func (s *payloadSteps) emptyRules(ctx context.Context) error {
	s.tc.UseRules(fstest.MapFS{})
	return nil
}

func (s *payloadSteps) baselinePayload(ctx context.Context, kind string) error {
	if kind == "refinance" {
		s.tc.SetPayload(testutil.RefinancePayload())
		return nil
	}
	s.tc.SetPayload(testutil.BasePayload())
	return nil
}

func (s *payloadSteps) signedReport(ctx context.Context) error {
	s.tc.SetPayload(testutil.SignedReportPayload())
	return nil
}

func (s *payloadSteps) setField(ctx context.Context, path, raw string) error {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("value for %s is not JSON: %w", path, err)
	}
	return setPath(s.payload(), path, v)
}

func (s *payloadSteps) removeField(ctx context.Context, path string) error {
	keys := strings.Split(path, ".")
	parent, err := walk(s.payload(), keys[:len(keys)-1], false)
	if err != nil || parent == nil {
		return err
	}
	delete(parent, keys[len(keys)-1])
	return nil
}

func (s *payloadSteps) mirrorSource(ctx context.Context, source string) error {
	p := s.payload()
	return setPath(p, "sources."+source, testutil.MirrorSource(p))
}

func (s *payloadSteps) salesComparison(ctx context.Context, subjectCode string, table *godog.Table) error {
	subjectRank, ok := condition.Rank(subjectCode)
	if !ok {
		return fmt.Errorf("unknown subject condition %q", subjectCode)
	}
	if len(table.Rows) < 2 {
		return fmt.Errorf("comparables table needs a header and at least one row")
	}

	var comps []map[string]any
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return fmt.Errorf("comparable rows need id and condition")
		}
		id, code := row.Cells[0].Value, row.Cells[1].Value
		rank, ok := condition.Rank(code)
		if !ok {
			return fmt.Errorf("unknown condition %q for comparable %s", code, id)
		}
		comps = append(comps, testutil.Comparable(id, condition.Code(rank), rank))
	}

	out := testutil.SalesComparison(s.payload(), testutil.SubjectCondition(condition.Code(subjectRank), subjectRank), comps...)
	s.tc.SetPayload(out)
	return nil
}

func (s *payloadSteps) validate(ctx context.Context) error {
	return s.tc.Validate(ctx)
}

func (s *payloadSteps) payload() map[string]any {
	p := s.tc.Payload()
	if p == nil {
		p = map[string]any{}
		s.tc.SetPayload(p)
	}
	return p
}

func setPath(root map[string]any, path string, v any) error {
	keys := strings.Split(path, ".")
	parent, err := walk(root, keys[:len(keys)-1], true)
	if err != nil {
		return err
	}
	parent[keys[len(keys)-1]] = v
	return nil
}

// walk descends through nested mappings, creating them when create is set.
// A missing segment without create yields a nil mapping.
func walk(root map[string]any, keys []string, create bool) (map[string]any, error) {
	cur := root
	for i, key := range keys {
		next, exists := cur[key]
		if !exists || next == nil {
			if !create {
				return nil, nil
			}
			m := map[string]any{}
			cur[key] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s is not a mapping", strings.Join(keys[:i+1], "."))
		}
		cur = m
	}
	return cur, nil
}
