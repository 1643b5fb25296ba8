package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/up-zero/gotool/imageutil"
	xdraw "golang.org/x/image/draw"

	"github.com/menta2k/plate-reader/pkg/types"
)

// Colors used for annotation
var (
	ValidBoxColor   = color.RGBA{0, 255, 0, 255}
	InvalidBoxColor = color.RGBA{255, 0, 0, 255}
	LabelBackground = color.RGBA{0, 0, 0, 255}
	LabelTextColor  = color.RGBA{255, 255, 255, 255}
)

const (
	boxStroke = 2
	// labelPadding is the total horizontal and vertical slack around the text.
	labelPadding = 10
	// textInset offsets the baseline from the label's left and bottom edges.
	textInset = 5
	// referenceWidth is the box width at which text renders at scale 1.
	referenceWidth = 280.0
	minFontScale   = 0.5
)

// Layout is the deterministic geometry of one annotation
type Layout struct {
	FontScale  float64
	Thickness  int
	TextWidth  int
	TextHeight int
	Box        image.Rectangle
	Label      image.Rectangle
	// TextOrigin is the left end of the text baseline.
	TextOrigin image.Point
}

// Label returns the text displayed above a detection.
func Label(r types.Reading) string {
	if r.Valid {
		return fmt.Sprintf("%s (%s)", r.Formatted, percent(r.Confidence))
	}
	return fmt.Sprintf("Unconfirmed: %s (%s)", r.Raw, percent(r.Confidence))
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// ComputeLayout derives font scale, stroke thickness and label placement for
// a box. The label sits on top of the box and is clamped to the image top.
func ComputeLayout(box types.Box, text string) Layout {
	fontScale := math.Max(minFontScale, float64(box.Width())/referenceWidth)
	thickness := int(math.Max(1, math.Round(fontScale*2)))

	tw, th := measureText(text, fontScale, thickness)

	// Only the label top is clamped; the bottom stays on the box edge. A box
	// touching the image top therefore gets an empty label and its text is
	// drawn above the image, leaving just the outline visible.
	labelY1 := box.Y1 - th - labelPadding
	if labelY1 < 0 {
		labelY1 = 0
	}

	return Layout{
		FontScale:  fontScale,
		Thickness:  thickness,
		TextWidth:  tw,
		TextHeight: th,
		Box:        box.Rect(),
		Label:      image.Rect(box.X1, labelY1, box.X1+tw+labelPadding, box.Y1),
		TextOrigin: image.Pt(box.X1+textInset, box.Y1-textInset),
	}
}

// Draw renders the box outline, the label background and the label text
// onto img.
func Draw(img *image.RGBA, box types.Box, text string, valid bool) Layout {
	layout := ComputeLayout(box, text)

	boxColor := InvalidBoxColor
	if valid {
		boxColor = ValidBoxColor
	}
	imageutil.DrawThickRectOutline(img, layout.Box, boxColor, boxStroke)

	xdraw.Draw(img, layout.Label, image.NewUniform(LabelBackground), image.Point{}, xdraw.Src)
	drawText(img, text, layout)

	return layout
}

// DrawReading draws a detection using the label derived from its reading.
func DrawReading(img *image.RGBA, d types.Detection) Layout {
	return Draw(img, d.Box, Label(d.Reading), d.Reading.Valid)
}
