package plate

import (
	"strings"
	"unicode"

	"github.com/menta2k/plate-reader/pkg/types"
)

// Aggregated is the merged text and mean confidence of a crop's fragments
type Aggregated struct {
	Raw        string
	Confidence float64
}

// Aggregate concatenates fragment texts in order, upper-cased with all
// whitespace removed, and averages their confidences. No fragment is
// dropped for low confidence.
func Aggregate(fragments []types.Fragment) Aggregated {
	if len(fragments) == 0 {
		return Aggregated{}
	}

	var sb strings.Builder
	var sum float64
	for _, f := range fragments {
		for _, r := range f.Text {
			if unicode.IsSpace(r) {
				continue
			}
			sb.WriteRune(unicode.ToUpper(r))
		}
		sum += f.Confidence
	}

	return Aggregated{
		Raw:        sb.String(),
		Confidence: sum / float64(len(fragments)),
	}
}
