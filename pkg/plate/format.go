package plate

// Format groups a 10-character plate as "XX XX XX XXXX". Other lengths are
// returned unchanged.
func Format(text string) string {
	chars := []rune(text)
	if len(chars) != Length {
		return text
	}
	return string(chars[:2]) + " " + string(chars[2:4]) + " " + string(chars[4:6]) + " " + string(chars[6:])
}
