package expr

// Node is one node of a parsed expression. The set of node kinds is
// closed; the interpreter treats anything else as false.
type Node interface {
	node()
}

// And is true when every operand is truthy.
type And struct {
	Operands []Node
}

// Or is true when any operand is truthy.
type Or struct {
	Operands []Node
}

// Not negates the truthiness of its operand.
type Not struct {
	Operand Node
}

// CompareOp enumerates the supported comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNotEq
	OpIn
	OpNotIn
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	default:
		return "?"
	}
}

// Compare is a comparison chain: Left Ops[0] Operands[0] Ops[1] Operands[1]...
// Every link must hold.
type Compare struct {
	Left     Node
	Ops      []CompareOp
	Operands []Node
}

// Path resolves dotted segments. With a nil Base the first segment is looked
// up in the evaluation context; otherwise segments descend from Base.
type Path struct {
	Base     Node
	Segments []string
}

// Literal is a constant string, float64, bool or nil.
type Literal struct {
	Value any
}

// List is a list or tuple literal.
type List struct {
	Elements []Node
}

// Subscript indexes a mapping by key or a sequence by position.
type Subscript struct {
	Base  Node
	Index Node
}

func (*And) node()       {}
func (*Or) node()        {}
func (*Not) node()       {}
func (*Compare) node()   {}
func (*Path) node()      {}
func (*Literal) node()   {}
func (*List) node()      {}
func (*Subscript) node() {}
