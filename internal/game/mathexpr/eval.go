package mathexpr

import (
	"fmt"
	"math"
	"strings"
)

// Defaults for evaluator limits.
const (
	DefaultMaxDigits   = 20
	DefaultSnapEpsilon = 1e-10
)

// Evaluator turns free-form text into an integer, or reports that the text
// is not a number. It is safe for concurrent use; all state is immutable
// after construction.
type Evaluator struct {
	maxDigits   int
	snapEpsilon float64
	maxDepth    int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDigits caps the decimal digit count of an accepted result.
func WithMaxDigits(n int) Option {
	return func(e *Evaluator) { e.maxDigits = n }
}

// WithSnapEpsilon sets the distance within which a float result snaps to
// the nearest integer.
func WithSnapEpsilon(eps float64) Option {
	return func(e *Evaluator) { e.snapEpsilon = eps }
}

// WithMaxDepth caps expression nesting depth.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) { e.maxDepth = n }
}

// NewEvaluator creates an Evaluator with the given options applied over
// the package defaults.
//
// Postcondition: Returns a ready Evaluator; invalid option values fall back
// to the defaults.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		maxDigits:   DefaultMaxDigits,
		snapEpsilon: DefaultSnapEpsilon,
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxDigits < 1 {
		e.maxDigits = DefaultMaxDigits
	}
	if e.snapEpsilon <= 0 {
		e.snapEpsilon = DefaultSnapEpsilon
	}
	if e.maxDepth < 1 {
		e.maxDepth = DefaultMaxDepth
	}
	return e
}

// Evaluate converts text into an integer.
//
// A single-token input is first tried as a spelled-out number ("four" → 4).
// Everything else goes through the restricted expression grammar. Any
// malformed, non-whitelisted, non-integer, or oversized input yields
// (0, false); Evaluate never panics and never returns an error.
func (e *Evaluator) Evaluate(text string) (result int64, ok bool) {
	// A panic anywhere below (hostile input finding an unguarded math
	// edge) must collapse to "not a number", never escape to the caller.
	defer func() {
		if r := recover(); r != nil {
			result, ok = 0, false
		}
	}()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}

	// Word conversion only applies to a single token; "twenty one" is
	// multi-token chat and falls through to the grammar (which rejects it).
	if len(strings.Fields(trimmed)) == 1 {
		if n, err := WordToNumber(trimmed); err == nil {
			if e.digitCount(n) > e.maxDigits {
				return 0, false
			}
			return n, true
		}
	}

	node, err := Parse(trimmed, e.maxDepth)
	if err != nil {
		return 0, false
	}

	v, err := e.eval(node)
	if err != nil {
		return 0, false
	}

	n, ok := e.snap(v)
	if !ok {
		return 0, false
	}
	if e.digitCount(n) > e.maxDigits {
		return 0, false
	}
	return n, true
}

// eval walks the tree. The switch covers every node kind the parser can
// produce; anything a node names that is missing from the whitelist is a
// hard failure.
func (e *Evaluator) eval(node Node) (value, error) {
	switch n := node.(type) {
	case Literal:
		if n.IsInt {
			return intVal(n.Int), nil
		}
		return floatVal(n.Float), nil

	case Ident:
		c, ok := constants[n.Name]
		if !ok {
			return value{}, fmt.Errorf("mathexpr: unknown identifier %q", n.Name)
		}
		return floatVal(c), nil

	case Unary:
		operand, err := e.eval(n.X)
		if err != nil {
			return value{}, err
		}
		if n.Op == MINUS {
			return negValue(operand)
		}
		return operand, nil

	case Binary:
		left, err := e.eval(n.X)
		if err != nil {
			return value{}, err
		}
		right, err := e.eval(n.Y)
		if err != nil {
			return value{}, err
		}
		switch n.Op {
		case PLUS:
			return addValues(left, right)
		case MINUS:
			return subValues(left, right)
		case STAR:
			return mulValues(left, right)
		case SLASH:
			return divValues(left, right)
		case FLOORDIV:
			return floorDivValues(left, right)
		case PERCENT:
			return modValues(left, right)
		case POW:
			return powValues(left, right)
		}
		return value{}, fmt.Errorf("mathexpr: unsupported operator %s", n.Op)

	case Call:
		fn, ok := functions[n.Name]
		if !ok {
			return value{}, fmt.Errorf("mathexpr: unknown function %q", n.Name)
		}
		if len(n.Args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.Args) > fn.maxArgs) {
			return value{}, fmt.Errorf("mathexpr: %s takes %d-%d arguments, got %d",
				n.Name, fn.minArgs, fn.maxArgs, len(n.Args))
		}
		args := make([]value, len(n.Args))
		for i, argNode := range n.Args {
			arg, err := e.eval(argNode)
			if err != nil {
				return value{}, err
			}
			args[i] = arg
		}
		return fn.apply(args)
	}

	// Unreachable: the node set is closed.
	return value{}, fmt.Errorf("mathexpr: unsupported node %T", node)
}

// snap converts an evaluation result to int64. Exact integers pass through;
// floats within snapEpsilon of an integer snap to it; genuinely fractional
// or non-finite results are rejected.
func (e *Evaluator) snap(v value) (int64, bool) {
	if v.isInt {
		return v.i, true
	}
	f := v.f
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	rounded := math.Round(f)
	if math.Abs(f-rounded) >= e.snapEpsilon {
		return 0, false
	}
	if rounded < math.MinInt64 || rounded >= math.MaxInt64 {
		return 0, false
	}
	return int64(rounded), true
}

// digitCount returns the decimal digit count of |n|.
func (e *Evaluator) digitCount(n int64) int {
	if n == math.MinInt64 {
		return 19
	}
	n = abs64(n)
	count := 1
	for n >= 10 {
		n /= 10
		count++
	}
	return count
}
