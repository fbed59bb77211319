package expr

import (
	"math"
	"strings"

	"uadcheck/internal/payload"
)

// evaluate reduces n to a value. The boolean result is false when the
// expression cannot be evaluated at all; callers turn that into false.
func evaluate(n Node, ctx Context) (any, bool) {
	switch node := n.(type) {
	case *Literal:
		return node.Value, true
	case *List:
		values := make([]any, 0, len(node.Elements))
		for _, el := range node.Elements {
			v, ok := evaluate(el, ctx)
			if !ok {
				return nil, false
			}
			values = append(values, v)
		}
		return values, true
	case *Path:
		return evalPath(node, ctx)
	case *Subscript:
		base, ok := evaluate(node.Base, ctx)
		if !ok {
			return nil, false
		}
		index, ok := evaluate(node.Index, ctx)
		if !ok {
			return nil, false
		}
		return subscript(base, index), true
	case *Not:
		v, ok := evaluate(node.Operand, ctx)
		if !ok {
			return nil, false
		}
		return !payload.Truthy(v), true
	case *And:
		var last any = true
		for _, operand := range node.Operands {
			v, ok := evaluate(operand, ctx)
			if !ok {
				return nil, false
			}
			if !payload.Truthy(v) {
				return v, true
			}
			last = v
		}
		return last, true
	case *Or:
		var last any = false
		for _, operand := range node.Operands {
			v, ok := evaluate(operand, ctx)
			if !ok {
				return nil, false
			}
			if payload.Truthy(v) {
				return v, true
			}
			last = v
		}
		return last, true
	case *Compare:
		return evalCompare(node, ctx)
	default:
		return nil, false
	}
}

func evalPath(node *Path, ctx Context) (any, bool) {
	segments := node.Segments
	var current any
	if node.Base == nil {
		if len(segments) == 0 {
			return nil, false
		}
		current = ctx.Lookup(segments[0])
		segments = segments[1:]
	} else {
		v, ok := evaluate(node.Base, ctx)
		if !ok {
			return nil, false
		}
		current = v
	}
	for _, seg := range segments {
		if current == nil {
			return nil, true
		}
		m, ok := payload.AsMap(current)
		if !ok {
			return nil, true
		}
		current = m[seg]
	}
	return current, true
}

// subscript yields nil for any lookup that does not resolve.
func subscript(base, index any) any {
	if m, ok := payload.AsMap(base); ok {
		key, ok := index.(string)
		if !ok {
			return nil
		}
		return m[key]
	}
	if l, ok := payload.AsList(base); ok {
		n, ok := payload.Number(index)
		if !ok || n != math.Trunc(n) {
			return nil
		}
		i := int(n)
		if i < 0 || i >= len(l) {
			return nil
		}
		return l[i]
	}
	return nil
}

func evalCompare(node *Compare, ctx Context) (any, bool) {
	left, ok := evaluate(node.Left, ctx)
	if !ok {
		return nil, false
	}
	for i, op := range node.Ops {
		right, ok := evaluate(node.Operands[i], ctx)
		if !ok {
			return nil, false
		}
		if !compare(op, left, right) {
			return false, true
		}
		left = right
	}
	return true, true
}

func compare(op CompareOp, left, right any) bool {
	switch op {
	case OpEq:
		return equal(left, right)
	case OpNotEq:
		return !equal(left, right)
	case OpIn:
		found, ok := contains(right, left)
		return ok && found
	case OpNotIn:
		found, ok := contains(right, left)
		return !ok || !found
	default:
		return false
	}
}

// equal compares numerically across numeric types and structurally across
// collections. Booleans never equal numbers.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if _, ok := b.(bool); ok {
		return false
	}
	if an, ok := payload.Number(a); ok {
		bn, ok := payload.Number(b)
		return ok && an == bn
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if al, ok := payload.AsList(a); ok {
		bl, ok := payload.AsList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if am, ok := payload.AsMap(a); ok {
		bm, ok := payload.AsMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, present := bm[k]
			if !present || !equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// contains reports membership of item in container. The second result is
// false when the pair does not support membership at all.
func contains(container, item any) (bool, bool) {
	switch c := container.(type) {
	case nil, bool:
		return false, false
	case string:
		s, ok := item.(string)
		if !ok {
			return false, false
		}
		return strings.Contains(c, s), true
	}
	if l, ok := payload.AsList(container); ok {
		for _, el := range l {
			if equal(el, item) {
				return true, true
			}
		}
		return false, true
	}
	if m, ok := payload.AsMap(container); ok {
		switch key := item.(type) {
		case string:
			_, present := m[key]
			return present, true
		case map[string]any, []any:
			return false, false
		default:
			return false, true
		}
	}
	return false, false
}

func truthy(v any) bool {
	return payload.Truthy(v)
}
