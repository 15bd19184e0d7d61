// Package mathexpr provides a sandboxed arithmetic expression evaluator.
// It parses a restricted grammar into a fixed set of node kinds and
// evaluates them against a closed whitelist of operators, functions, and
// constants. Nothing outside the whitelist is reachable from user input.
package mathexpr

// Kind identifies a lexical token.
type Kind int

// Token kinds. The set is closed; the parser rejects anything else.
const (
	EOF Kind = iota
	NUMBER
	IDENT
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	FLOORDIV // //
	PERCENT  // %
	POW      // ^ or **
	LPAREN   // (
	RPAREN   // )
	COMMA    // ,
	ILLEGAL
)

// String returns a readable name for the token kind.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case NUMBER:
		return "NUMBER"
	case IDENT:
		return "IDENT"
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case FLOORDIV:
		return "//"
	case PERCENT:
		return "%"
	case POW:
		return "**"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	case COMMA:
		return ","
	default:
		return "ILLEGAL"
	}
}

// Token is a scanned token with its source text.
type Token struct {
	Kind Kind
	Text string
	Pos  int // byte offset in the input
}
