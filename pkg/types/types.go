package types

import "image"

// Box is a detector-proposed region in pixel coordinates (x1<x2, y1<y2).
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns x2 - x1.
func (b Box) Width() int {
	return b.X2 - b.X1
}

// Height returns y2 - y1.
func (b Box) Height() int {
	return b.Y2 - b.Y1
}

// Fragment is one text span returned by an OCR engine for a cropped region
type Fragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Reading is the classified outcome of recognition for one crop.
// Exactly one of Valid with a non-empty Formatted, or !Valid with an empty
// Formatted, holds. Raw is always the pre-correction text.
type Reading struct {
	Formatted  string  `json:"formatted_text"`
	Raw        string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
	Valid      bool    `json:"valid"`
}

// Empty reports whether the reading carries no text at all
func (r Reading) Empty() bool {
	return r.Raw == ""
}

// Detection pairs a box with its classified reading
type Detection struct {
	Box     Box     `json:"box"`
	Reading Reading `json:"reading"`
}

// Entry is one line of an image report: the displayed text and its confidence
type Entry struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Report holds the validated and unconfirmed readings of one image, each in
// detection order.
type Report struct {
	Valid      []Entry     `json:"valid"`
	Invalid    []Entry     `json:"invalid"`
	Detections []Detection `json:"detections,omitempty"`
}

// Empty reports whether no detection survived in either list
func (r Report) Empty() bool {
	return len(r.Valid) == 0 && len(r.Invalid) == 0
}
