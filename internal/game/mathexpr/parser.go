package mathexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds expression nesting when no explicit limit is given.
const DefaultMaxDepth = 64

// Parser builds an AST from a token stream with a defensive nesting cap.
type Parser struct {
	sc       *Scanner
	maxDepth int
	depth    int
}

// Parse parses input into an expression tree.
//
// Precondition: maxDepth must be >= 1 (use DefaultMaxDepth when unsure).
// Postcondition: Returns the root Node, or an error for any input outside
// the grammar. The whole input must be consumed; trailing tokens are an error.
func Parse(input string, maxDepth int) (Node, error) {
	p := &Parser{sc: NewScanner(input), maxDepth: maxDepth}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	tok, err := p.sc.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != EOF {
		return nil, fmt.Errorf("mathexpr: unexpected %s at offset %d", tok.Kind, tok.Pos)
	}
	return node, nil
}

// enter increments nesting depth, failing when the cap is exceeded.
func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return fmt.Errorf("mathexpr: expression exceeds maximum nesting depth %d", p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

// parseExpr handles the lowest precedence level: addition and subtraction.
func (p *Parser) parseExpr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.sc.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != PLUS && tok.Kind != MINUS {
			return left, nil
		}
		if _, err := p.sc.Next(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: tok.Kind, X: left, Y: right}
	}
}

// parseTerm handles multiplication, division, floor division, and modulo.
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.sc.Peek()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case STAR, SLASH, FLOORDIV, PERCENT:
		default:
			return left, nil
		}
		if _, err := p.sc.Next(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: tok.Kind, X: left, Y: right}
	}
}

// parseUnary handles prefix + and -. Unary binds tighter than * but looser
// than **, so -2**2 parses as -(2**2).
func (p *Parser) parseUnary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok, err := p.sc.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == PLUS || tok.Kind == MINUS {
		if _, err := p.sc.Next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: tok.Kind, X: operand}, nil
	}
	return p.parsePower()
}

// parsePower handles the right-associative power operator. The exponent is
// parsed as a unary expression so 2**-3 is accepted.
func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok, err := p.sc.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != POW {
		return base, nil
	}
	if _, err := p.sc.Next(); err != nil {
		return nil, err
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return Binary{Op: POW, X: base, Y: exp}, nil
}

// parsePrimary handles literals, identifiers, calls, and parenthesized
// subexpressions.
func (p *Parser) parsePrimary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok, err := p.sc.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case NUMBER:
		return parseLiteral(tok)

	case IDENT:
		next, err := p.sc.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind != LPAREN {
			return Ident{Name: tok.Text}, nil
		}
		if _, err := p.sc.Next(); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return Call{Name: tok.Text, Args: args}, nil

	case LPAREN:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing, err := p.sc.Next()
		if err != nil {
			return nil, err
		}
		if closing.Kind != RPAREN {
			return nil, fmt.Errorf("mathexpr: expected ) at offset %d, got %s", closing.Pos, closing.Kind)
		}
		return inner, nil
	}

	return nil, fmt.Errorf("mathexpr: unexpected %s at offset %d", tok.Kind, tok.Pos)
}

// parseArgs parses a comma-separated argument list after the opening paren.
func (p *Parser) parseArgs() ([]Node, error) {
	tok, err := p.sc.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == RPAREN {
		_, err := p.sc.Next()
		return nil, err
	}

	var args []Node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok, err := p.sc.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case COMMA:
			continue
		case RPAREN:
			return args, nil
		default:
			return nil, fmt.Errorf("mathexpr: expected , or ) at offset %d, got %s", tok.Pos, tok.Kind)
		}
	}
}

// parseLiteral converts a NUMBER token into a Literal node, preserving
// whether the source was an integer literal.
func parseLiteral(tok Token) (Node, error) {
	if !strings.ContainsAny(tok.Text, ".eE") {
		i, err := strconv.ParseInt(tok.Text, 10, 64)
		if err == nil {
			return Literal{Int: i, Float: float64(i), IsInt: true}, nil
		}
		// Out of int64 range; fall back to float.
	}
	f, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return nil, fmt.Errorf("mathexpr: malformed number %q at offset %d", tok.Text, tok.Pos)
	}
	return Literal{Float: f}, nil
}
