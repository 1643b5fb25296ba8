package plate

import "github.com/menta2k/plate-reader/pkg/types"

// Recognizer classifies the fragments of a single crop
type Recognizer struct {
	grammar Grammar
}

// NewRecognizer creates a recognizer for the canonical grammar
func NewRecognizer() *Recognizer {
	return &Recognizer{grammar: Canonical}
}

// Recognize runs aggregation, correction and validation.
//
// An empty aggregate yields the zero Reading, which callers treat as no
// detection at all. A corrected string that satisfies the grammar yields a
// valid reading with grouped text; anything else is unconfirmed and keeps
// only the raw text.
func (r *Recognizer) Recognize(fragments []types.Fragment) types.Reading {
	agg := Aggregate(fragments)
	if agg.Raw == "" {
		return types.Reading{}
	}

	corrected := r.grammar.Correct(agg.Raw)
	if r.grammar.IsValid(corrected) {
		return types.Reading{
			Formatted:  Format(corrected),
			Raw:        agg.Raw,
			Confidence: agg.Confidence,
			Valid:      true,
		}
	}

	return types.Reading{
		Raw:        agg.Raw,
		Confidence: agg.Confidence,
	}
}

// Recognize classifies fragments with the canonical grammar.
func Recognize(fragments []types.Fragment) types.Reading {
	return NewRecognizer().Recognize(fragments)
}
