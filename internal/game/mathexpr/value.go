package mathexpr

import (
	"errors"
	"math"
)

// Evaluation failure sentinels. Callers of Evaluate never see these — every
// failure collapses to "not a number" — but tests and internal code can
// distinguish them.
var (
	ErrDivisionByZero = errors.New("mathexpr: division by zero")
	ErrDomain         = errors.New("mathexpr: argument outside function domain")
	ErrOverflow       = errors.New("mathexpr: integer overflow")
	ErrBadArgument    = errors.New("mathexpr: invalid argument")
)

// value is a number that is either an exact int64 or a float64, mirroring
// the int/float split the arithmetic semantics depend on: integer operands
// keep exact integer results where the operator allows it, and only true
// division or a float operand promotes to floating point.
type value struct {
	i     int64
	f     float64
	isInt bool
}

func intVal(i int64) value { return value{i: i, isInt: true} }

func floatVal(f float64) value { return value{f: f} }

// toFloat returns the value as a float64 regardless of representation.
func (v value) toFloat() float64 {
	if v.isInt {
		return float64(v.i)
	}
	return v.f
}

func addChecked(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}

func subChecked(a, b int64) (int64, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, ErrOverflow
	}
	return diff, nil
}

func mulChecked(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/b != a || (a == math.MinInt64 && b == -1) {
		return 0, ErrOverflow
	}
	return prod, nil
}

func addValues(a, b value) (value, error) {
	if a.isInt && b.isInt {
		sum, err := addChecked(a.i, b.i)
		if err != nil {
			return value{}, err
		}
		return intVal(sum), nil
	}
	return floatVal(a.toFloat() + b.toFloat()), nil
}

func subValues(a, b value) (value, error) {
	if a.isInt && b.isInt {
		diff, err := subChecked(a.i, b.i)
		if err != nil {
			return value{}, err
		}
		return intVal(diff), nil
	}
	return floatVal(a.toFloat() - b.toFloat()), nil
}

func mulValues(a, b value) (value, error) {
	if a.isInt && b.isInt {
		prod, err := mulChecked(a.i, b.i)
		if err != nil {
			return value{}, err
		}
		return intVal(prod), nil
	}
	return floatVal(a.toFloat() * b.toFloat()), nil
}

// divValues is true division: the result is always floating point.
func divValues(a, b value) (value, error) {
	bf := b.toFloat()
	if bf == 0 {
		return value{}, ErrDivisionByZero
	}
	return floatVal(a.toFloat() / bf), nil
}

// floorDivValues floors toward negative infinity, so -7 // 2 == -4.
func floorDivValues(a, b value) (value, error) {
	if a.isInt && b.isInt {
		if b.i == 0 {
			return value{}, ErrDivisionByZero
		}
		q := a.i / b.i
		if a.i%b.i != 0 && (a.i < 0) != (b.i < 0) {
			q--
		}
		return intVal(q), nil
	}
	bf := b.toFloat()
	if bf == 0 {
		return value{}, ErrDivisionByZero
	}
	return floatVal(math.Floor(a.toFloat() / bf)), nil
}

// modValues takes the sign of the divisor, so -7 % 3 == 2.
func modValues(a, b value) (value, error) {
	if a.isInt && b.isInt {
		if b.i == 0 {
			return value{}, ErrDivisionByZero
		}
		r := a.i % b.i
		if r != 0 && (r < 0) != (b.i < 0) {
			r += b.i
		}
		return intVal(r), nil
	}
	bf := b.toFloat()
	if bf == 0 {
		return value{}, ErrDivisionByZero
	}
	r := math.Mod(a.toFloat(), bf)
	if r != 0 && (r < 0) != (bf < 0) {
		r += bf
	}
	return floatVal(r), nil
}

// powValues keeps integer exactness for an integer base raised to a
// non-negative integer exponent; everything else goes through math.Pow.
func powValues(a, b value) (value, error) {
	if a.isInt && b.isInt && b.i >= 0 {
		result, err := intPow(a.i, b.i)
		if err != nil {
			return value{}, err
		}
		return intVal(result), nil
	}
	base, exp := a.toFloat(), b.toFloat()
	if base == 0 && exp < 0 {
		return value{}, ErrDivisionByZero
	}
	return floatVal(math.Pow(base, exp)), nil
}

// intPow is exponentiation by squaring with overflow checks.
//
// Precondition: exp >= 0.
func intPow(base, exp int64) (int64, error) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, err := mulChecked(result, base)
			if err != nil {
				return 0, err
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, err := mulChecked(base, base)
			if err != nil {
				return 0, err
			}
			base = b
		}
	}
	return result, nil
}

func negValue(a value) (value, error) {
	if a.isInt {
		if a.i == math.MinInt64 {
			return value{}, ErrOverflow
		}
		return intVal(-a.i), nil
	}
	return floatVal(-a.f), nil
}

// asInt returns the value as an int64 when it is an exact integer.
// Float values qualify only when they carry no fractional part and fit.
func (v value) asInt() (int64, error) {
	if v.isInt {
		return v.i, nil
	}
	if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) || math.IsNaN(v.f) {
		return 0, ErrBadArgument
	}
	if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(v.f), nil
}
