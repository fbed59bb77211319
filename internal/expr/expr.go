// Package expr evaluates the restricted boolean expressions used by ruleset
// documents for conditional requirements and cross-field rules.
//
// The grammar covers boolean connectives, equality and membership
// comparisons, dotted attribute paths, subscripts, and string, number,
// boolean, null and list literals. Nothing else is accepted. Evaluation is
// fail-closed: an expression that cannot be parsed or evaluated is false.
package expr

import "strings"

// Context binds top-level names to payload sections.
type Context map[string]any

// Lookup returns the value bound to name, or nil.
func (c Context) Lookup(name string) any {
	if c == nil {
		return nil
	}
	return c[name]
}

// Program is a compiled expression. The zero value evaluates to false.
type Program struct {
	src  string
	root Node
	err  error
}

// Compile parses src once for repeated evaluation. It never fails; a
// program that did not parse reports the reason through Err and always
// evaluates to false.
func Compile(src string) *Program {
	p := &Program{src: src}
	if strings.TrimSpace(src) == "" {
		return p
	}
	p.root, p.err = Parse(src)
	return p
}

// Source returns the expression text as given to Compile.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.src
}

// Err returns the compile error, if any.
func (p *Program) Err() error {
	if p == nil {
		return nil
	}
	return p.err
}

// Eval reports whether the program holds against ctx.
func (p *Program) Eval(ctx Context) (result bool) {
	if p == nil || p.root == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			result = false
		}
	}()
	v, ok := evaluate(p.root, ctx)
	if !ok {
		return false
	}
	return truthy(v)
}

// Evaluate compiles and evaluates src in one step.
func Evaluate(src string, ctx Context) bool {
	return Compile(src).Eval(ctx)
}
