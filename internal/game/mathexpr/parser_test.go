package mathexpr_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/countbot/internal/game/mathexpr"
)

// TestParse_ValidExpressions verifies the grammar accepts the operator and
// call forms the evaluator supports.
func TestParse_ValidExpressions(t *testing.T) {
	valid := []string{
		"1",
		"1 + 2",
		"1+2*3-4/5",
		"7 // 2",
		"7 % 2",
		"2 ** 3 ** 2",
		"2 ^ 3",
		"-x",
		"--1",
		"+-+1",
		"(1 + 2) * 3",
		"sqrt(16)",
		"max(1, 2, 3)",
		"pi",
		"atan2(1, 1)",
		"1.5e-3",
		"3.",
		".5",
	}
	for _, input := range valid {
		_, err := mathexpr.Parse(input, mathexpr.DefaultMaxDepth)
		assert.NoError(t, err, "input %q", input)
	}
}

// TestParse_InvalidExpressions verifies malformed input is rejected with an
// error rather than a partial tree.
func TestParse_InvalidExpressions(t *testing.T) {
	invalid := []string{
		"",
		"1 +",
		"* 2",
		"(1",
		"1)",
		"f(",
		"f(1,",
		"f(,1)",
		"1 2",
		"a b",
		"1 @ 2",
		"'str'",
		"\"str\"",
		"1..2",
		"1 = 2",
		"x[0]",
		"x.y",
		"#comment",
	}
	for _, input := range invalid {
		_, err := mathexpr.Parse(input, mathexpr.DefaultMaxDepth)
		assert.Error(t, err, "input %q", input)
	}
}

// TestParse_DepthLimit verifies nesting beyond the cap fails cleanly.
func TestParse_DepthLimit(t *testing.T) {
	deep := strings.Repeat("(", 80) + "1" + strings.Repeat(")", 80)
	_, err := mathexpr.Parse(deep, 16)
	require.Error(t, err)

	_, err = mathexpr.Parse(deep, 128)
	assert.NoError(t, err)
}

// TestParse_PowerAssociativity verifies ** binds right to left and unary
// minus binds looser than **, matching conventional notation.
func TestParse_PowerAssociativity(t *testing.T) {
	e := mathexpr.NewEvaluator()

	// 2 ** 3 ** 2 == 2 ** 9 == 512, not (2**3)**2 == 64.
	got, ok := e.Evaluate("2 ** 3 ** 2")
	require.True(t, ok)
	assert.Equal(t, int64(512), got)

	// -2 ** 2 == -(2**2) == -4, not (-2)**2 == 4.
	got, ok = e.Evaluate("-2 ** 2")
	require.True(t, ok)
	assert.Equal(t, int64(-4), got)

	got, ok = e.Evaluate("(-2) ** 2")
	require.True(t, ok)
	assert.Equal(t, int64(4), got)
}

// TestParse_NeverPanics_Property feeds arbitrary strings through the parser.
func TestParse_NeverPanics_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.String().Draw(rt, "input")
		assert.NotPanics(rt, func() {
			_, _ = mathexpr.Parse(input, mathexpr.DefaultMaxDepth)
		})
	})
}
