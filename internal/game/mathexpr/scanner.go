package mathexpr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Scanner tokenizes an expression string rune-by-rune.
type Scanner struct {
	input  string
	pos    int // byte offset of the next rune
	peeked *Token
}

// NewScanner creates a Scanner over the given input.
func NewScanner(input string) *Scanner {
	return &Scanner{input: input}
}

// Peek returns the next token without consuming it.
func (s *Scanner) Peek() (Token, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	tok, err := s.Next()
	if err != nil {
		return Token{}, err
	}
	s.peeked = &tok
	return tok, nil
}

// Next returns the next token from the input.
//
// Postcondition: Returns an EOF token at end of input; returns an error
// for any byte sequence outside the grammar's alphabet.
func (s *Scanner) Next() (Token, error) {
	if s.peeked != nil {
		tok := *s.peeked
		s.peeked = nil
		return tok, nil
	}

	s.skipSpace()
	start := s.pos
	r, size := s.rune()
	if size == 0 {
		return Token{Kind: EOF, Pos: start}, nil
	}

	switch {
	case r >= '0' && r <= '9' || r == '.':
		return s.scanNumber(start)
	case unicode.IsLetter(r) || r == '_':
		return s.scanIdent(start)
	}

	s.pos += size
	switch r {
	case '+':
		return Token{Kind: PLUS, Text: "+", Pos: start}, nil
	case '-':
		return Token{Kind: MINUS, Text: "-", Pos: start}, nil
	case '*':
		if next, nsize := s.rune(); next == '*' {
			s.pos += nsize
			return Token{Kind: POW, Text: "**", Pos: start}, nil
		}
		return Token{Kind: STAR, Text: "*", Pos: start}, nil
	case '/':
		if next, nsize := s.rune(); next == '/' {
			s.pos += nsize
			return Token{Kind: FLOORDIV, Text: "//", Pos: start}, nil
		}
		return Token{Kind: SLASH, Text: "/", Pos: start}, nil
	case '%':
		return Token{Kind: PERCENT, Text: "%", Pos: start}, nil
	case '^':
		return Token{Kind: POW, Text: "^", Pos: start}, nil
	case '(':
		return Token{Kind: LPAREN, Text: "(", Pos: start}, nil
	case ')':
		return Token{Kind: RPAREN, Text: ")", Pos: start}, nil
	case ',':
		return Token{Kind: COMMA, Text: ",", Pos: start}, nil
	}

	return Token{}, fmt.Errorf("mathexpr: unexpected character %q at offset %d", r, start)
}

// scanNumber consumes an integer or float literal, including an optional
// exponent part ("1e6", "2.5E-3").
func (s *Scanner) scanNumber(start int) (Token, error) {
	sawDigit := false
	sawDot := false

	for {
		r, size := s.rune()
		switch {
		case r >= '0' && r <= '9':
			sawDigit = true
			s.pos += size
			continue
		case r == '.' && !sawDot:
			sawDot = true
			s.pos += size
			continue
		case (r == 'e' || r == 'E') && sawDigit:
			// Exponent: e[+-]digits. Only consume if digits follow.
			save := s.pos
			s.pos += size
			if sign, ssize := s.rune(); sign == '+' || sign == '-' {
				s.pos += ssize
			}
			expDigits := false
			for {
				d, dsize := s.rune()
				if d < '0' || d > '9' {
					break
				}
				expDigits = true
				s.pos += dsize
			}
			if !expDigits {
				s.pos = save
			}
		}
		break
	}

	if !sawDigit {
		return Token{}, fmt.Errorf("mathexpr: malformed number at offset %d", start)
	}
	return Token{Kind: NUMBER, Text: s.input[start:s.pos], Pos: start}, nil
}

// scanIdent consumes an identifier: a letter or underscore followed by
// letters, digits, or underscores.
func (s *Scanner) scanIdent(start int) (Token, error) {
	for {
		r, size := s.rune()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		s.pos += size
	}
	return Token{Kind: IDENT, Text: s.input[start:s.pos], Pos: start}, nil
}

func (s *Scanner) skipSpace() {
	for {
		r, size := s.rune()
		if size == 0 || !unicode.IsSpace(r) {
			return
		}
		s.pos += size
	}
}

// rune decodes the rune at the current position without consuming it.
// Returns size 0 at end of input.
func (s *Scanner) rune() (rune, int) {
	if s.pos >= len(s.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.input[s.pos:])
}
