// Package schema checks payloads for structural conformance against a
// JSON Schema (draft 2020-12) document.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"uadcheck/internal/domain"
	"uadcheck/internal/payload"
	dErrors "uadcheck/pkg/domain-errors"
)

// RootField marks a violation at the document root.
const RootField = "$"

const resourcePrefix = "mem://uadcheck/"

// Checker validates payloads against one compiled schema. It is safe for
// concurrent use.
type Checker struct {
	name   string
	schema *jsonschema.Schema
}

// Compile parses document and prepares it for validation. name identifies
// the document in errors and relative references.
func Compile(name string, document []byte) (*Checker, error) {
	if len(bytes.TrimSpace(document)) == 0 {
		return nil, dErrors.New(dErrors.CodeConfigInvalid, fmt.Sprintf("schema %s is empty", name))
	}
	url := resourcePrefix + strings.TrimPrefix(name, "/")
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(document)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("load schema %s", name))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("compile schema %s", name))
	}
	return &Checker{name: name, schema: compiled}, nil
}

// Name returns the schema identifier given to Compile.
func (c *Checker) Name() string {
	return c.name
}

// Check returns one error finding per leaf schema violation, ordered by
// field then message.
func (c *Checker) Check(doc payload.Document) []domain.Finding {
	if c == nil || c.schema == nil {
		return nil
	}
	normalized, err := normalize(doc)
	if err != nil {
		return []domain.Finding{newFinding(RootField, err.Error())}
	}
	err = c.schema.Validate(normalized)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []domain.Finding{newFinding(RootField, err.Error())}
	}

	var findings []domain.Finding
	for _, leaf := range leaves(ve, nil) {
		findings = append(findings, newFinding(FieldPath(leaf.InstanceLocation), leaf.Message))
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Field != findings[j].Field {
			return findings[i].Field < findings[j].Field
		}
		return findings[i].Message < findings[j].Message
	})
	return findings
}

// normalize re-decodes doc the way the validator expects, with numbers as
// json.Number.
func normalize(doc payload.Document) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func leaves(ve *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return append(out, ve)
	}
	for _, cause := range ve.Causes {
		out = leaves(cause, out)
	}
	return out
}

// FieldPath converts a JSON pointer instance location into a dotted path,
// using RootField for the document itself.
func FieldPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" || pointer == "/" {
		return RootField
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}

func newFinding(field, message string) domain.Finding {
	return domain.Finding{
		Field:    field,
		Message:  message,
		Severity: domain.SeverityError,
		Rule:     domain.RuleSchema,
	}
}
