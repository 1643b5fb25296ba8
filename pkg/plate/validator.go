package plate

// IsValid reports whether text matches the canonical grammar exactly:
// two upper-case letters, two digits, two letters, four digits.
func IsValid(text string) bool {
	return Canonical.IsValid(text)
}

// IsValid checks text against g position by position.
func (g Grammar) IsValid(text string) bool {
	if len(text) != Length {
		return false
	}
	for i := 0; i < Length; i++ {
		c := text[i]
		switch g[i] {
		case Alpha:
			if c < 'A' || c > 'Z' {
				return false
			}
		case Numeral:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
