package ocr

import (
	"reflect"
	"testing"

	"github.com/menta2k/plate-reader/pkg/types"
)

func TestRestrict(t *testing.T) {
	tests := map[string]string{
		"mh-01 ab.1234": "MH01AB1234",
		"ÄB12":          "B12",
		"":              "",
		"***":           "",
	}
	for in, want := range tests {
		if got := Restrict(in); got != want {
			t.Errorf("Restrict(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFragments(t *testing.T) {
	got := Fragments([]types.Fragment{
		{Text: "mh 01", Confidence: 1.4},
		{Text: "--", Confidence: 0.9},
		{Text: "ab1234", Confidence: -0.2},
	})
	want := []types.Fragment{
		{Text: "MH01", Confidence: 1},
		{Text: "AB1234", Confidence: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fragments() = %+v, want %+v", got, want)
	}
}
