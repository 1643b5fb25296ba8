// Package plate turns noisy OCR fragments into a classified plate reading.
//
// The plate scheme is fixed: ten characters laid out as letter, letter,
// digit, digit, letter, letter, digit, digit, digit, digit. Readings are
// aggregated, corrected position by position for common OCR confusions and
// then validated against that scheme.
package plate

// Role tags a plate position as carrying a letter or a digit
type Role int

const (
	Alpha Role = iota
	Numeral
)

func (r Role) String() string {
	if r == Alpha {
		return "alpha"
	}
	return "numeral"
}

// Length is the number of characters in a plate.
const Length = 10

// Grammar is a fixed positional schema.
type Grammar [Length]Role

// Canonical is the only supported layout: AA00AA0000.
var Canonical = Grammar{
	Alpha, Alpha,
	Numeral, Numeral,
	Alpha, Alpha,
	Numeral, Numeral, Numeral, Numeral,
}

// digitToLetter covers digits read at letter positions.
var digitToLetter = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'5': 'S',
	'8': 'B',
	'6': 'G',
	'7': 'T',
}

// letterToDigit covers letters read at digit positions. It is not the
// inverse of digitToLetter; D is deliberately left out.
var letterToDigit = map[rune]rune{
	'O': '0',
	'I': '1',
	'S': '5',
	'B': '8',
	'G': '6',
	'T': '7',
	'Z': '2',
	'L': '1',
}
