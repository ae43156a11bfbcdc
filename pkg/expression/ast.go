package expression

// Node is one node of a parsed expression tree.
type Node interface {
	node()
}

// Literal holds a constant: nil, bool, int64, float64, or string.
type Literal struct {
	Value any
}

// Variable is a field-path reference written {a.b.c}. The first path
// element is looked up in the evaluation context; the rest descend into
// object values.
type Variable struct {
	Path []string
}

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// Binary applies an operator to two operands. And/or short-circuit.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// Unary applies negation or logical not.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

// Call invokes a registered function by name.
type Call struct {
	Name string
	Args []Node
}

func (*Literal) node()  {}
func (*Variable) node() {}
func (*Binary) node()   {}
func (*Unary) node()    {}
func (*Call) node()     {}
