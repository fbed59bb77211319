// Package rules holds the business-rule checkers run against a payload.
// Each checker is a pure function of the payload and its rule documents and
// reports violations as findings.
package rules

import (
	"uadcheck/internal/expr"
	"uadcheck/internal/payload"
)

// NewContext exposes the payload's top-level sections to rule expressions.
func NewContext(doc payload.Document) expr.Context {
	ctx := make(expr.Context, len(doc))
	for section, value := range doc {
		ctx[section] = value
	}
	return ctx
}

func textAt(doc payload.Document, path string) string {
	return payload.Display(payload.Get(doc, path))
}
