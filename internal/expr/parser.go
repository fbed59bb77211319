package expr

import (
	"errors"
	"fmt"
	"strings"
)

// maxDepth bounds grouping, list, subscript and not nesting.
const maxDepth = 64

var errTooDeep = errors.New("expression nested too deeply")

// Parse builds an AST for src. It returns an error for anything outside
// the supported grammar.
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
	return n, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokName && tok.text == word
}

func (p *parser) expect(kind tokenKind, what string) error {
	tok := p.next()
	if tok.kind != kind {
		return fmt.Errorf("expected %s at %d, got %q", what, tok.pos, tok.text)
	}
	return nil
}

func (p *parser) parseOr(depth int) (Node, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	first, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}
	operands := []Node{first}
	for p.isKeyword("or") {
		p.next()
		n, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &Or{Operands: operands}, nil
}

func (p *parser) parseAnd(depth int) (Node, error) {
	first, err := p.parseNot(depth)
	if err != nil {
		return nil, err
	}
	operands := []Node{first}
	for p.isKeyword("and") {
		p.next()
		n, err := p.parseNot(depth)
		if err != nil {
			return nil, err
		}
		operands = append(operands, n)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &And{Operands: operands}, nil
}

func (p *parser) parseNot(depth int) (Node, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	if p.isKeyword("not") {
		p.next()
		operand, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		return &Not{Operand: operand}, nil
	}
	return p.parseCompare(depth)
}

func (p *parser) parseCompare(depth int) (Node, error) {
	left, err := p.parsePostfix(depth)
	if err != nil {
		return nil, err
	}
	cmp := &Compare{Left: left}
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		right, err := p.parsePostfix(depth)
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, right)
	}
	if len(cmp.Ops) == 0 {
		return left, nil
	}
	return cmp, nil
}

// compareOp consumes a comparison operator when one is next.
func (p *parser) compareOp() (CompareOp, bool) {
	tok := p.peek()
	switch {
	case tok.kind == tokEq:
		p.next()
		return OpEq, true
	case tok.kind == tokNotEq:
		p.next()
		return OpNotEq, true
	case tok.kind == tokName && tok.text == "in":
		p.next()
		return OpIn, true
	case tok.kind == tokName && tok.text == "not":
		if after := p.peekAt(1); after.kind == tokName && after.text == "in" {
			p.next()
			p.next()
			return OpNotIn, true
		}
	}
	return 0, false
}

func (p *parser) parsePostfix(depth int) (Node, error) {
	n, err := p.parseAtom(depth)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokDot:
			p.next()
			name := p.next()
			if name.kind != tokName {
				return nil, fmt.Errorf("expected attribute name at %d", name.pos)
			}
			if path, ok := n.(*Path); ok {
				path.Segments = append(path.Segments, name.text)
			} else {
				n = &Path{Base: n, Segments: []string{name.text}}
			}
		case tokLBracket:
			p.next()
			index, err := p.parseOr(depth + 1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			n = &Subscript{Base: n, Index: index}
		case tokLParen:
			return nil, fmt.Errorf("function calls are not supported (at %d)", tok.pos)
		default:
			return n, nil
		}
	}
}

func (p *parser) parseAtom(depth int) (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokName:
		switch tok.text {
		case "and", "or", "not", "in", "is", "if", "else", "for", "lambda":
			return nil, fmt.Errorf("unexpected keyword %q at %d", tok.text, tok.pos)
		}
		switch strings.ToLower(tok.text) {
		case "true":
			return &Literal{Value: true}, nil
		case "false":
			return &Literal{Value: false}, nil
		case "null", "none":
			return &Literal{Value: nil}, nil
		}
		return &Path{Segments: []string{tok.text}}, nil
	case tokString:
		return &Literal{Value: tok.text}, nil
	case tokNumber:
		f, err := parseNumber(tok.text)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q: %w", tok.text, err)
		}
		return &Literal{Value: f}, nil
	case tokLParen:
		return p.parseParen(depth)
	case tokLBracket:
		elements, err := p.parseElements(tokRBracket, "]", depth)
		if err != nil {
			return nil, err
		}
		return &List{Elements: elements}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at %d", tok.text, tok.pos)
	}
}

// parseParen handles grouping and tuple literals after an opening '('.
func (p *parser) parseParen(depth int) (Node, error) {
	if p.peek().kind == tokRParen {
		p.next()
		return &List{}, nil
	}
	first, err := p.parseOr(depth + 1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokRParen {
		p.next()
		return first, nil
	}
	if p.peek().kind != tokComma {
		return nil, fmt.Errorf("expected ) at %d", p.peek().pos)
	}
	p.next()
	rest, err := p.parseElements(tokRParen, ")", depth)
	if err != nil {
		return nil, err
	}
	return &List{Elements: append([]Node{first}, rest...)}, nil
}

// parseElements reads comma separated expressions up to the closing token.
// A trailing comma is accepted.
func (p *parser) parseElements(closing tokenKind, what string, depth int) ([]Node, error) {
	var elements []Node
	for {
		if p.peek().kind == closing {
			p.next()
			return elements, nil
		}
		n, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		elements = append(elements, n)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case closing:
		default:
			return nil, fmt.Errorf("expected , or %s at %d", what, p.peek().pos)
		}
	}
}
