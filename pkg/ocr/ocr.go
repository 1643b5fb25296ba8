// Package ocr holds what the plate OCR backends share: the character
// allowlist and the conversion of engine output into fragments.
//
// Backends live in sub-packages (tesseract, visionocr) and satisfy
// pipeline.Reader. They only read text; correction and validation happen in
// package plate.
package ocr

import (
	"strings"
	"unicode"

	"github.com/menta2k/plate-reader/pkg/types"
)

// Allowlist is the set of characters a plate can contain.
const Allowlist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Restrict upper-cases s and drops every character outside the allowlist.
func Restrict(s string) string {
	var sb strings.Builder
	for _, r := range s {
		r = unicode.ToUpper(r)
		if strings.ContainsRune(Allowlist, r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Fragments restricts each fragment's text, clamps confidence to [0,1] and
// drops fragments left with no text.
func Fragments(in []types.Fragment) []types.Fragment {
	out := make([]types.Fragment, 0, len(in))
	for _, f := range in {
		text := Restrict(f.Text)
		if text == "" {
			continue
		}
		out = append(out, types.Fragment{Text: text, Confidence: clamp(f.Confidence, 0, 1)})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
