package plate

import "unicode"

// Correct applies position-aware substitutions to a 10-character candidate.
// Any other length yields "" since no correction is possible.
func Correct(raw string) string {
	return Canonical.Correct(raw)
}

// Correct is Correct for an explicit grammar.
func (g Grammar) Correct(raw string) string {
	chars := []rune(raw)
	if len(chars) != Length {
		return ""
	}

	for i, ch := range chars {
		switch g[i] {
		case Alpha:
			if sub, ok := digitToLetter[ch]; ok {
				chars[i] = sub
			} else {
				chars[i] = unicode.ToUpper(ch)
			}
		case Numeral:
			// Only substitutions change the character; the rest keep their case.
			if sub, ok := letterToDigit[unicode.ToUpper(ch)]; ok {
				chars[i] = sub
			}
		}
	}
	return string(chars)
}
