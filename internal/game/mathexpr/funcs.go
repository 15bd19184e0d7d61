package mathexpr

import (
	"math"
)

// constants is the closed set of identifiers an expression may name.
// Built once at package init, never mutated, never extended by input.
var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"inf": math.Inf(1),
	"nan": math.NaN(),
}

// callable is one whitelisted function. MaxArgs of -1 means variadic.
type callable struct {
	minArgs int
	maxArgs int
	apply   func(args []value) (value, error)
}

// functions is the closed capability whitelist: the only call targets an
// expression can reach. Trigonometric and hyperbolic functions take and
// return degrees; this is a deliberate user-facing convention, not an
// oversight.
var functions = map[string]callable{
	// Basic helpers
	"ceil":  f1Int(math.Ceil),
	"floor": f1Int(math.Floor),
	"abs":   {1, 1, applyAbs},
	"fabs":  f1(func(x float64) (float64, error) { return math.Abs(x), nil }),
	"sqrt": f1(func(x float64) (float64, error) {
		if x < 0 {
			return 0, ErrDomain
		}
		return math.Sqrt(x), nil
	}),
	"pow": f2(func(x, y float64) (float64, error) {
		if x == 0 && y < 0 {
			return 0, ErrDivisionByZero
		}
		return math.Pow(x, y), nil
	}),
	"cbrt":  f1(func(x float64) (float64, error) { return math.Cbrt(x), nil }),
	"trunc": f1Int(math.Trunc),
	"round": f1Int(math.RoundToEven),
	"sign": f1(func(x float64) (float64, error) {
		switch {
		case x > 0:
			return 1, nil
		case x < 0:
			return -1, nil
		}
		return 0, nil
	}),

	// Number theory
	"factorial": {1, 1, applyFactorial},
	"gcd":       {2, 2, applyGCD},
	"lcm":       {2, 2, applyLCM},
	"comb":      {2, 2, applyComb},
	"perm":      {2, 2, applyPerm},
	"isqrt":     {1, 1, applyIsqrt},

	// Float manipulation
	"fmod": f2(func(x, y float64) (float64, error) {
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Mod(x, y), nil
	}),
	"remainder": f2(func(x, y float64) (float64, error) {
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return math.Remainder(x, y), nil
	}),
	"copysign": f2(func(x, y float64) (float64, error) { return math.Copysign(x, y), nil }),

	// Exponential and logarithmic
	"exp":   f1(func(x float64) (float64, error) { return math.Exp(x), nil }),
	"expm1": f1(func(x float64) (float64, error) { return math.Expm1(x), nil }),
	"log":   {1, 2, applyLog},
	"log1p": f1(func(x float64) (float64, error) {
		if x <= -1 {
			return 0, ErrDomain
		}
		return math.Log1p(x), nil
	}),
	"log2":  f1(logChecked(math.Log2)),
	"log10": f1(logChecked(math.Log10)),

	// Trigonometric (degrees in, degrees out)
	"sin": f1(degIn(math.Sin)),
	"cos": f1(degIn(math.Cos)),
	"tan": f1(degIn(math.Tan)),
	"asin": f1(degOut(func(x float64) (float64, error) {
		if x < -1 || x > 1 {
			return 0, ErrDomain
		}
		return math.Asin(x), nil
	})),
	"acos": f1(degOut(func(x float64) (float64, error) {
		if x < -1 || x > 1 {
			return 0, ErrDomain
		}
		return math.Acos(x), nil
	})),
	"atan":    f1(degOut(func(x float64) (float64, error) { return math.Atan(x), nil })),
	"atan2":   f2(func(y, x float64) (float64, error) { return math.Atan2(y, x), nil }),
	"hypot":   {2, -1, applyHypot},
	"degrees": f1(func(x float64) (float64, error) { return x * 180 / math.Pi, nil }),
	"radians": f1(func(x float64) (float64, error) { return x * math.Pi / 180, nil }),

	// Hyperbolic (same degree convention)
	"sinh": f1(degIn(math.Sinh)),
	"cosh": f1(degIn(math.Cosh)),
	"tanh": f1(degIn(math.Tanh)),
	"asinh": f1(degOut(func(x float64) (float64, error) { return math.Asinh(x), nil })),
	"acosh": f1(degOut(func(x float64) (float64, error) {
		if x < 1 {
			return 0, ErrDomain
		}
		return math.Acosh(x), nil
	})),
	"atanh": f1(degOut(func(x float64) (float64, error) {
		if x <= -1 || x >= 1 {
			return 0, ErrDomain
		}
		return math.Atanh(x), nil
	})),

	// Special functions
	"erf":  f1(func(x float64) (float64, error) { return math.Erf(x), nil }),
	"erfc": f1(func(x float64) (float64, error) { return math.Erfc(x), nil }),
	"gamma": f1(func(x float64) (float64, error) {
		if x <= 0 && x == math.Trunc(x) {
			return 0, ErrDomain
		}
		return math.Gamma(x), nil
	}),
	"lgamma": f1(func(x float64) (float64, error) {
		if x <= 0 && x == math.Trunc(x) {
			return 0, ErrDomain
		}
		lg, _ := math.Lgamma(x)
		return lg, nil
	}),

	// Variadic aggregates
	"max":  {1, -1, applyMax},
	"min":  {1, -1, applyMin},
	"sum":  {0, -1, applySum},
	"prod": {0, -1, applyProd},
}

// f1 wraps a one-argument float function into a callable.
func f1(fn func(float64) (float64, error)) callable {
	return callable{1, 1, func(args []value) (value, error) {
		r, err := fn(args[0].toFloat())
		if err != nil {
			return value{}, err
		}
		return floatVal(r), nil
	}}
}

// f1Int wraps a float function whose result is integral, producing an exact
// integer value when it fits.
func f1Int(fn func(float64) float64) callable {
	return callable{1, 1, func(args []value) (value, error) {
		r := fn(args[0].toFloat())
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return value{}, ErrDomain
		}
		if r >= math.MinInt64 && r < math.MaxInt64 {
			return intVal(int64(r)), nil
		}
		return floatVal(r), nil
	}}
}

// f2 wraps a two-argument float function into a callable.
func f2(fn func(float64, float64) (float64, error)) callable {
	return callable{2, 2, func(args []value) (value, error) {
		r, err := fn(args[0].toFloat(), args[1].toFloat())
		if err != nil {
			return value{}, err
		}
		return floatVal(r), nil
	}}
}

// degIn converts the argument from degrees to radians before applying fn.
func degIn(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		return fn(x * math.Pi / 180), nil
	}
}

// degOut converts fn's radian result to degrees.
func degOut(fn func(float64) (float64, error)) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		r, err := fn(x)
		if err != nil {
			return 0, err
		}
		return r * 180 / math.Pi, nil
	}
}

// logChecked guards a logarithm against non-positive arguments.
func logChecked(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, ErrDomain
		}
		return fn(x), nil
	}
}

func applyAbs(args []value) (value, error) {
	v := args[0]
	if v.isInt {
		if v.i == math.MinInt64 {
			return value{}, ErrOverflow
		}
		if v.i < 0 {
			return intVal(-v.i), nil
		}
		return v, nil
	}
	return floatVal(math.Abs(v.f)), nil
}

func applyLog(args []value) (value, error) {
	x := args[0].toFloat()
	if x <= 0 {
		return value{}, ErrDomain
	}
	if len(args) == 1 {
		return floatVal(math.Log(x)), nil
	}
	base := args[1].toFloat()
	if base <= 0 || base == 1 {
		return value{}, ErrDomain
	}
	return floatVal(math.Log(x) / math.Log(base)), nil
}

func applyFactorial(args []value) (value, error) {
	n, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	if n < 0 {
		return value{}, ErrDomain
	}
	result := int64(1)
	for i := int64(2); i <= n; i++ {
		result, err = mulChecked(result, i)
		if err != nil {
			return value{}, err
		}
	}
	return intVal(result), nil
}

func applyGCD(args []value) (value, error) {
	a, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	b, err := args[1].asInt()
	if err != nil {
		return value{}, err
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return value{}, ErrOverflow
	}
	return intVal(gcd(abs64(a), abs64(b))), nil
}

func applyLCM(args []value) (value, error) {
	a, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	b, err := args[1].asInt()
	if err != nil {
		return value{}, err
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return value{}, ErrOverflow
	}
	a, b = abs64(a), abs64(b)
	if a == 0 || b == 0 {
		return intVal(0), nil
	}
	l, err := mulChecked(a/gcd(a, b), b)
	if err != nil {
		return value{}, err
	}
	return intVal(l), nil
}

func applyComb(args []value) (value, error) {
	n, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	k, err := args[1].asInt()
	if err != nil {
		return value{}, err
	}
	if n < 0 || k < 0 {
		return value{}, ErrDomain
	}
	if k > n {
		return intVal(0), nil
	}
	if k > n-k {
		k = n - k
	}
	result := int64(1)
	for i := int64(1); i <= k; i++ {
		result, err = mulChecked(result, n-k+i)
		if err != nil {
			return value{}, err
		}
		result /= i // exact: i consecutive integers always contain a multiple of i
	}
	return intVal(result), nil
}

func applyPerm(args []value) (value, error) {
	n, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	k, err := args[1].asInt()
	if err != nil {
		return value{}, err
	}
	if n < 0 || k < 0 {
		return value{}, ErrDomain
	}
	if k > n {
		return intVal(0), nil
	}
	result := int64(1)
	for i := n - k + 1; i <= n; i++ {
		result, err = mulChecked(result, i)
		if err != nil {
			return value{}, err
		}
	}
	return intVal(result), nil
}

func applyIsqrt(args []value) (value, error) {
	n, err := args[0].asInt()
	if err != nil {
		return value{}, err
	}
	if n < 0 {
		return value{}, ErrDomain
	}
	r := int64(math.Sqrt(float64(n)))
	// Correct the float estimate at the boundary.
	for r > 0 && r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return intVal(r), nil
}

func applyHypot(args []value) (value, error) {
	result := 0.0
	for _, a := range args {
		result = math.Hypot(result, a.toFloat())
	}
	return floatVal(result), nil
}

func applyMax(args []value) (value, error) {
	best := args[0]
	for _, a := range args[1:] {
		if a.toFloat() > best.toFloat() {
			best = a
		}
	}
	return best, nil
}

func applyMin(args []value) (value, error) {
	best := args[0]
	for _, a := range args[1:] {
		if a.toFloat() < best.toFloat() {
			best = a
		}
	}
	return best, nil
}

func applySum(args []value) (value, error) {
	acc := intVal(0)
	var err error
	for _, a := range args {
		acc, err = addValues(acc, a)
		if err != nil {
			return value{}, err
		}
	}
	return acc, nil
}

func applyProd(args []value) (value, error) {
	acc := intVal(1)
	var err error
	for _, a := range args {
		acc, err = mulValues(acc, a)
		if err != nil {
			return value{}, err
		}
	}
	return acc, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
