package ports

import (
	"context"

	"uadcheck/internal/registry"
)

// RulesetLoader resolves schema and registry references into a ready
// ruleset. Implementations return coded errors from pkg/domain-errors.
type RulesetLoader interface {
	Load(ctx context.Context, schemaRef, registryRef string) (*registry.Ruleset, error)
}
