package mathexpr

// Node is the interface implemented by all expression node kinds.
// The set of kinds is closed: Literal, Ident, Unary, Binary, and Call.
// The evaluator switches exhaustively over these five types; there is no
// fallthrough for an unknown node because none can be constructed.
type Node interface {
	node()
}

// Literal is a numeric literal. IsInt records whether the source text was
// written without a decimal point or exponent, so integer arithmetic stays
// exact during evaluation.
type Literal struct {
	Int   int64
	Float float64
	IsInt bool
}

// Ident is a bare identifier, resolved only against the constant whitelist.
type Ident struct {
	Name string
}

// Unary is a prefix operator application: negate or plus.
type Unary struct {
	Op Kind // MINUS or PLUS
	X  Node
}

// Binary is an infix operator application.
type Binary struct {
	Op   Kind // PLUS, MINUS, STAR, SLASH, FLOORDIV, PERCENT, POW
	X, Y Node
}

// Call is a function call. The callee is always a bare name — the grammar
// has no syntax for computed or attribute callees, so the whitelist lookup
// in the evaluator is the only resolution path.
type Call struct {
	Name string
	Args []Node
}

func (Literal) node() {}
func (Ident) node()   {}
func (Unary) node()   {}
func (Binary) node()  {}
func (Call) node()    {}
