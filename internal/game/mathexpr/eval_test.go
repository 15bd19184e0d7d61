package mathexpr_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/countbot/internal/game/mathexpr"
)

// TestEvaluate_PlainIntegers verifies that bare integer literals evaluate
// to themselves.
func TestEvaluate_PlainIntegers(t *testing.T) {
	e := mathexpr.NewEvaluator()
	for _, n := range []int64{0, 1, 7, 42, 1000, 9876543} {
		got, ok := e.Evaluate(strconv.FormatInt(n, 10))
		require.True(t, ok, "integer %d must evaluate", n)
		assert.Equal(t, n, got)
	}
}

// TestEvaluate_Arithmetic covers the binary and unary operator set.
func TestEvaluate_Arithmetic(t *testing.T) {
	e := mathexpr.NewEvaluator()
	cases := []struct {
		input string
		want  int64
	}{
		{"2+2", 4},
		{"10-3", 7},
		{"6*7", 42},
		{"6/2", 3},
		{"7//2", 3},
		{"-7//2", -4},
		{"7%3", 1},
		{"-7%3", 2},
		{"2**10", 1024},
		{"2^10", 1024},
		{"-2**2", -4},
		{"2**-1+1.5", 2},
		{"-5", -5},
		{"+5", 5},
		{"(1+2)*3", 9},
		{"1e3", 1000},
		{"2 + 3 * 4", 14},
	}
	for _, tc := range cases {
		got, ok := e.Evaluate(tc.input)
		require.True(t, ok, "%q must evaluate", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

// TestEvaluate_WhitelistClosure verifies the security boundary: any
// identifier or call target outside the fixed whitelist is rejected, as
// is anything outside the grammar's alphabet.
func TestEvaluate_WhitelistClosure(t *testing.T) {
	e := mathexpr.NewEvaluator()
	hostile := []string{
		"__import__('os')",
		"os.system('ls')",
		"open('x')",
		"exec(1)",
		"eval(1)",
		"getattr(1, 'x')",
		"globals()",
		"system(1)",
		"foo",
		"foo(1)",
		"sqrt",   // known function name used as a bare identifier
		"pi(1)",  // known constant used as a call target
		"len('abc')",
		"x = 1",
		"1; 2",
		"lambda: 1",
		"[1, 2]",
		"{1: 2}",
		"'4'",
		"\"4\"",
	}
	for _, input := range hostile {
		_, ok := e.Evaluate(input)
		assert.False(t, ok, "%q must not evaluate", input)
	}
}

// TestEvaluate_DegreeConvention verifies trig operates in degrees:
// sin(90) is 1 and cos(180) is -1, not their radian counterparts.
func TestEvaluate_DegreeConvention(t *testing.T) {
	e := mathexpr.NewEvaluator()

	got, ok := e.Evaluate("sin(90)")
	require.True(t, ok)
	assert.Equal(t, int64(1), got)

	got, ok = e.Evaluate("cos(180)")
	require.True(t, ok)
	assert.Equal(t, int64(-1), got)

	got, ok = e.Evaluate("tan(45)")
	require.True(t, ok)
	assert.Equal(t, int64(1), got)

	// Inverse trig returns degrees.
	got, ok = e.Evaluate("asin(1)")
	require.True(t, ok)
	assert.Equal(t, int64(90), got)

	got, ok = e.Evaluate("acos(-1)")
	require.True(t, ok)
	assert.Equal(t, int64(180), got)
}

// TestEvaluate_Functions spot-checks the whitelisted function table.
func TestEvaluate_Functions(t *testing.T) {
	e := mathexpr.NewEvaluator()
	cases := []struct {
		input string
		want  int64
	}{
		{"sqrt(16)", 4},
		{"abs(-3)", 3},
		{"ceil(2.1)", 3},
		{"floor(2.9)", 2},
		{"factorial(5)", 120},
		{"factorial(20)", 2432902008176640000},
		{"gcd(12, 18)", 6},
		{"lcm(4, 6)", 12},
		{"comb(5, 2)", 10},
		{"perm(5, 2)", 20},
		{"isqrt(17)", 4},
		{"exp(0)", 1},
		{"log(100, 10)", 2},
		{"log2(8)", 3},
		{"log10(1000)", 3},
		{"pow(2, 8)", 256},
		{"hypot(3, 4)", 5},
		{"max(1, 9, 4)", 9},
		{"min(3, -2, 8)", -2},
		{"sum(1, 2, 3)", 6},
		{"prod(2, 3, 4)", 24},
		{"degrees(pi)", 180},
		{"trunc(3.9)", 3},
		{"sign(-42)", -1},
	}
	for _, tc := range cases {
		got, ok := e.Evaluate(tc.input)
		require.True(t, ok, "%q must evaluate", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

// TestEvaluate_DomainErrors verifies domain violations collapse to
// "not a number" rather than propagating.
func TestEvaluate_DomainErrors(t *testing.T) {
	e := mathexpr.NewEvaluator()
	for _, input := range []string{
		"1/0",
		"1//0",
		"1%0",
		"sqrt(-1)",
		"log(0)",
		"log(-5)",
		"asin(2)",
		"acosh(0)",
		"factorial(-1)",
		"factorial(2.5)",
		"gamma(0)",
		"gamma(-3)",
		"0**-1",
	} {
		_, ok := e.Evaluate(input)
		assert.False(t, ok, "%q must not evaluate", input)
	}
}

// TestEvaluate_WordNumbers verifies single-token word conversion, and that
// multi-token phrases fall through to the grammar and are rejected. The
// fallthrough is deliberate: "twenty one" is multi-token chat, not a count.
func TestEvaluate_WordNumbers(t *testing.T) {
	e := mathexpr.NewEvaluator()

	got, ok := e.Evaluate("four")
	require.True(t, ok)
	assert.Equal(t, int64(4), got)

	got, ok = e.Evaluate("twenty-one")
	require.True(t, ok)
	assert.Equal(t, int64(21), got)

	got, ok = e.Evaluate("zero")
	require.True(t, ok)
	assert.Equal(t, int64(0), got)

	// Multi-token phrase: word conversion does not apply, and two bare
	// identifiers in a row are not valid arithmetic.
	_, ok = e.Evaluate("twenty one")
	assert.False(t, ok)

	// A single alphabetic token that is not a number word must still be
	// rejected by the identifier whitelist.
	_, ok = e.Evaluate("hello")
	assert.False(t, ok)
}

// TestEvaluate_FloatSnapping verifies results within the snap tolerance
// collapse to the nearest integer and genuine fractions are rejected.
func TestEvaluate_FloatSnapping(t *testing.T) {
	e := mathexpr.NewEvaluator()

	// 3.0000000001 is outside the default 1e-10 tolerance...
	_, ok := e.Evaluate("3.0000000001")
	assert.False(t, ok)

	// ...but within a looser one.
	loose := mathexpr.NewEvaluator(mathexpr.WithSnapEpsilon(1e-9))
	got, ok := loose.Evaluate("3.0000000001")
	require.True(t, ok)
	assert.Equal(t, int64(3), got)

	// 3.00000000001 is within the default tolerance.
	got, ok = e.Evaluate("3.00000000001")
	require.True(t, ok)
	assert.Equal(t, int64(3), got)

	_, ok = e.Evaluate("2.5")
	assert.False(t, ok)

	_, ok = e.Evaluate("7/2")
	assert.False(t, ok)
}

// TestEvaluate_DigitCap verifies the configured digit cap bounds results.
func TestEvaluate_DigitCap(t *testing.T) {
	e := mathexpr.NewEvaluator(mathexpr.WithMaxDigits(5))

	got, ok := e.Evaluate("99999")
	require.True(t, ok)
	assert.Equal(t, int64(99999), got)

	_, ok = e.Evaluate("100000")
	assert.False(t, ok)

	_, ok = e.Evaluate("10**6")
	assert.False(t, ok)

	_, ok = e.Evaluate("-123456")
	assert.False(t, ok)
}

// TestEvaluate_NonFinite verifies NaN and infinity never reach the caller,
// including via the whitelisted constants.
func TestEvaluate_NonFinite(t *testing.T) {
	e := mathexpr.NewEvaluator()
	for _, input := range []string{"inf", "-inf", "nan", "inf - inf", "1e308 * 10", "nan + 1"} {
		_, ok := e.Evaluate(input)
		assert.False(t, ok, "%q must not evaluate", input)
	}
}

// TestEvaluate_NestingDepthCap verifies maliciously deep nesting is
// rejected instead of exhausting the stack.
func TestEvaluate_NestingDepthCap(t *testing.T) {
	e := mathexpr.NewEvaluator(mathexpr.WithMaxDepth(16))

	deep := strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100)
	_, ok := e.Evaluate(deep)
	assert.False(t, ok)

	shallow := "((((1))))"
	got, ok := e.Evaluate(shallow)
	require.True(t, ok)
	assert.Equal(t, int64(1), got)
}

// TestEvaluate_EmptyAndWhitespace verifies degenerate inputs are rejected.
func TestEvaluate_EmptyAndWhitespace(t *testing.T) {
	e := mathexpr.NewEvaluator()
	for _, input := range []string{"", "   ", "\t\n", "()", "+", "1 +", "* 3"} {
		_, ok := e.Evaluate(input)
		assert.False(t, ok, "%q must not evaluate", input)
	}
}

// TestEvaluate_Overflow verifies integer overflow collapses to rejection.
func TestEvaluate_Overflow(t *testing.T) {
	e := mathexpr.NewEvaluator()
	for _, input := range []string{
		"9223372036854775807 + 1",
		"factorial(21)",
		"10**19",
	} {
		_, ok := e.Evaluate(input)
		assert.False(t, ok, "%q must not evaluate", input)
	}

	// The boundary itself is fine.
	got, ok := e.Evaluate("9223372036854775807")
	require.True(t, ok)
	assert.Equal(t, int64(9223372036854775807), got)
}

// TestEvaluate_RoundTrip_Property verifies evaluate(format(n)) == n for
// arbitrary in-range integers.
func TestEvaluate_RoundTrip_Property(t *testing.T) {
	e := mathexpr.NewEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Int64().Draw(rt, "n")
		got, ok := e.Evaluate(strconv.FormatInt(n, 10))
		require.True(rt, ok, "formatted integer must evaluate")
		assert.Equal(rt, n, got)
	})
}

// TestEvaluate_Addition_Property verifies evaluate("a+b") == a+b for
// arbitrary small integers.
func TestEvaluate_Addition_Property(t *testing.T) {
	e := mathexpr.NewEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Int64Range(-1_000_000, 1_000_000).Draw(rt, "a")
		b := rapid.Int64Range(-1_000_000, 1_000_000).Draw(rt, "b")
		got, ok := e.Evaluate(fmt.Sprintf("%d + %d", a, b))
		require.True(rt, ok)
		assert.Equal(rt, a+b, got)
	})
}

// TestEvaluate_NeverPanics_Property feeds arbitrary strings through the
// evaluator; the contract is that it never panics regardless of input.
func TestEvaluate_NeverPanics_Property(t *testing.T) {
	e := mathexpr.NewEvaluator()
	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.String().Draw(rt, "input")
		assert.NotPanics(rt, func() {
			_, _ = e.Evaluate(input)
		})
	})
}
