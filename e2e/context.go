package e2e

import (
	"context"
	"io"
	"io/fs"
	"log/slog"

	"uadcheck/internal/domain"
	"uadcheck/internal/registry"
	"uadcheck/internal/registry/builtin"
	"uadcheck/internal/validation"
)

// TestContext carries one scenario's ruleset, payload and outcome.
type TestContext struct {
	rules   fs.FS
	payload map[string]any
	result  *domain.Result
	err     error
}

// NewTestContext returns a context bound to the built-in ruleset.
func NewTestContext() *TestContext {
	return &TestContext{rules: builtin.FS()}
}

func (tc *TestContext) UseRules(fsys fs.FS) {
	tc.rules = fsys
}

func (tc *TestContext) SetPayload(p map[string]any) {
	tc.payload = p
}

func (tc *TestContext) Payload() map[string]any {
	return tc.payload
}

// Validate runs the payload through a fresh service. A load failure is
// kept for assertion steps rather than failing the step.
func (tc *TestContext) Validate(ctx context.Context) error {
	svc, err := validation.New(
		registry.NewLoader(tc.rules, registry.WithLogger(discard())),
		validation.WithLogger(discard()),
	)
	if err != nil {
		return err
	}
	tc.result, tc.err = svc.Validate(ctx, tc.payload, registry.DefaultSchemaPath, registry.DefaultRegistryPath)
	return nil
}

func (tc *TestContext) Result() *domain.Result {
	return tc.result
}

func (tc *TestContext) Err() error {
	return tc.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
