package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("who")
	assert.Equal(t, "who", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_Lowercase(t *testing.T) {
	result := Parse("STATS")
	assert.Equal(t, "stats", result.Command)
}

func TestParse_WithArgs(t *testing.T) {
	result := Parse("stats some_user")
	assert.Equal(t, "stats", result.Command)
	assert.Equal(t, []string{"some_user"}, result.Args)
	assert.Equal(t, "some_user", result.RawArgs)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result := Parse("  top   primes  ")
	assert.Equal(t, "top", result.Command)
	assert.Equal(t, []string{"primes"}, result.Args)
	assert.Equal(t, "primes", result.RawArgs)
}

func TestParse_ShortAlias(t *testing.T) {
	result := Parse("np")
	assert.Equal(t, "np", result.Command)
}

func TestParse_ArgsKeepCase(t *testing.T) {
	result := Parse("stats Alice")
	assert.Equal(t, "stats", result.Command)
	assert.Equal(t, []string{"Alice"}, result.Args)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
	})
}

func TestPropertyParseNonEmptyInputHasCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "word")
		result := Parse(word)
		if result.Command == "" {
			t.Fatalf("non-empty input %q produced empty command", word)
		}
	})
}
