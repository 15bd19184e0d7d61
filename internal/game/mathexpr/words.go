package mathexpr

import (
	"errors"
	"strings"
)

// ErrNotNumberWord is returned when a token is not a spelled-out number.
var ErrNotNumberWord = errors.New("mathexpr: not a number word")

var wordUnits = map[string]int64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
}

var wordTens = map[string]int64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var wordScales = map[string]int64{
	"hundred":     100,
	"thousand":    1_000,
	"million":     1_000_000,
	"billion":     1_000_000_000,
	"trillion":    1_000_000_000_000,
	"quadrillion": 1_000_000_000_000_000,
}

// WordToNumber converts a spelled-out number into its integer value.
// Hyphens separate parts ("twenty-one" → 21); a leading "minus" or
// "negative" negates; "and" is ignored ("one-hundred-and-five" → 105).
//
// Postcondition: Returns the value, or ErrNotNumberWord when any part is
// not a recognised number word or the parts are ordered nonsensically.
func WordToNumber(word string) (int64, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(word)), "-")

	negative := false
	if len(parts) > 0 && (parts[0] == "minus" || parts[0] == "negative") {
		negative = true
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return 0, ErrNotNumberWord
	}

	var total, current int64
	seenWord := false
	for _, part := range parts {
		if part == "and" {
			continue
		}
		switch {
		case part == "":
			return 0, ErrNotNumberWord

		case wordUnits[part] != 0 || part == "zero":
			// A unit after a unit ("one-two") is not a number phrase.
			if current%10 != 0 && wordUnits[part] < 20 {
				return 0, ErrNotNumberWord
			}
			current += wordUnits[part]

		case wordTens[part] != 0:
			// Tens only follow a completed hundred ("one-hundred-twenty"),
			// never a smaller part ("four-twenty", "twenty-thirty").
			if current%100 != 0 {
				return 0, ErrNotNumberWord
			}
			current += wordTens[part]

		case part == "hundred":
			if current == 0 || current >= 100 {
				return 0, ErrNotNumberWord
			}
			current *= 100

		case wordScales[part] != 0:
			if current == 0 {
				return 0, ErrNotNumberWord
			}
			scaled, err := mulChecked(current, wordScales[part])
			if err != nil {
				return 0, ErrNotNumberWord
			}
			total, err = addChecked(total, scaled)
			if err != nil {
				return 0, ErrNotNumberWord
			}
			current = 0

		default:
			return 0, ErrNotNumberWord
		}
		seenWord = true
	}
	if !seenWord {
		return 0, ErrNotNumberWord
	}

	result, err := addChecked(total, current)
	if err != nil {
		return 0, ErrNotNumberWord
	}
	if negative {
		result = -result
	}
	return result, nil
}
