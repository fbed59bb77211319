// Package validation runs the full rule pipeline over an appraisal payload
// and assembles the result.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
	"uadcheck/internal/registry"
	"uadcheck/internal/rules"
	"uadcheck/internal/validation/metrics"
	"uadcheck/internal/validation/ports"
	dErrors "uadcheck/pkg/domain-errors"
)

const tracerName = "uadcheck/validation"

// Service validates payloads against rulesets obtained from a loader.
// It keeps no per-run state and is safe for concurrent use.
type Service struct {
	loader         ports.RulesetLoader
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	rulesetVersion string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithRulesetVersion sets the version string reported in every result.
func WithRulesetVersion(version string) Option {
	return func(s *Service) {
		s.rulesetVersion = version
	}
}

// New constructs a Service.
func New(loader ports.RulesetLoader, opts ...Option) (*Service, error) {
	if loader == nil {
		return nil, errors.New("ruleset loader is required")
	}
	s := &Service{loader: loader}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s, nil
}

// Validate loads the referenced ruleset and evaluates doc against it.
// Only ruleset loading can fail; rule violations are reported as findings.
func (s *Service) Validate(ctx context.Context, doc payload.Document, schemaRef, registryRef string) (*domain.Result, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "validation.Validate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("schema_ref", schemaRef),
		attribute.String("registry_ref", registryRef),
	))
	defer span.End()

	if doc == nil {
		err := dErrors.New(dErrors.CodeInvalidInput, "payload is required")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	rs, err := s.loader.Load(ctx, schemaRef, registryRef)
	s.metrics.ObserveLoadLatency(time.Since(start))
	if err != nil {
		s.metrics.IncrementLoadFailure(string(dErrors.CodeOf(err)))
		s.logger.ErrorContext(ctx, "ruleset load failed",
			"run_id", runID,
			"schema_ref", schemaRef,
			"registry_ref", registryRef,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ruleset load failed")
		return nil, err
	}

	result, err := s.evaluate(ctx, runID, doc, rs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("finding_count", len(result.Findings)),
	)
	return result, nil
}

// Evaluate runs every checker against doc using an already loaded ruleset.
func (s *Service) Evaluate(ctx context.Context, doc payload.Document, rs *registry.Ruleset) (*domain.Result, error) {
	return s.evaluate(ctx, uuid.NewString(), doc, rs)
}

func (s *Service) evaluate(ctx context.Context, runID string, doc payload.Document, rs *registry.Ruleset) (*domain.Result, error) {
	if rs == nil || rs.Fields == nil {
		return nil, dErrors.New(dErrors.CodeConfigInvalid, "ruleset is incomplete")
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	normalized, err := payload.Normalize(doc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "payload is not JSON compatible")
	}
	view, _ := payload.AsMap(normalized)

	start := time.Now()
	findings := Run(view, rs)
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	result := domain.NewResult(findings, s.rulesetVersion)
	s.record(ctx, runID, rs, result)
	return result, nil
}

// Run applies the checkers in their fixed order: schema, field
// requirements, cross rules, source alignment, signature dependencies,
// photo inventory, condition consistency.
func Run(doc payload.Document, rs *registry.Ruleset) []domain.Finding {
	ctx := rules.NewContext(doc)
	var findings []domain.Finding
	findings = append(findings, rs.Schema.Check(doc)...)
	findings = append(findings, rules.FieldRequirements(doc, rs.Fields, ctx)...)
	findings = append(findings, rules.CrossRules(doc, rs.Fields, ctx)...)
	findings = append(findings, rules.SourceAlignment(doc, rs.Fields)...)
	findings = append(findings, rules.SignatureDependencies(doc, rs.Signature)...)
	findings = append(findings, rules.PhotoInventory(doc, rs.Photos)...)
	findings = append(findings, rules.ConditionConsistency(doc, rs.Fields.ConditionTolerance)...)
	return findings
}

func (s *Service) record(ctx context.Context, runID string, rs *registry.Ruleset, result *domain.Result) {
	s.metrics.IncrementRun(string(result.Status))
	for _, f := range result.Findings {
		s.metrics.AddFinding(f.Rule, string(f.Severity))
	}
	counts := result.CountBySeverity()
	s.logger.InfoContext(ctx, "validation completed",
		"run_id", runID,
		"status", result.Status,
		"findings", len(result.Findings),
		"errors", counts[domain.SeverityError],
		"warnings", counts[domain.SeverityWarn],
		"conditions", counts[domain.SeverityCondition],
		"ruleset_version", result.RulesetVersion,
		"registry_version", rs.Fields.Version,
	)
}
