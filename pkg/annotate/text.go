package annotate

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// glyphScale maps a font scale to the bitmap magnification of the face.
// Scale 0.5 draws the face at its native 7x13 size.
func glyphScale(fontScale float64) float64 {
	return fontScale * 2
}

// measureText returns the rendered width and the height above the baseline.
// Thickness widens strokes to the right, so it adds to the width.
func measureText(text string, fontScale float64, thickness int) (int, int) {
	s := glyphScale(fontScale)
	adv := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	w := int(math.Round(float64(adv)*s)) + thickness - 1
	h := int(math.Round(float64(ascent) * s))
	return w, h
}

func drawText(img *image.RGBA, text string, layout Layout) {
	adv := font.MeasureString(face, text).Ceil()
	if adv == 0 {
		return
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineH := metrics.Height.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, adv, lineH))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(text)

	s := glyphScale(layout.FontScale)
	sw := int(math.Round(float64(adv) * s))
	sh := int(math.Round(float64(lineH) * s))
	scaled := mask
	if sw != adv || sh != lineH {
		scaled = image.NewAlpha(image.Rect(0, 0, sw, sh))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	}

	top := layout.TextOrigin.Y - layout.TextHeight
	src := image.NewUniform(LabelTextColor)
	for dx := 0; dx < layout.Thickness; dx++ {
		r := image.Rect(0, 0, sw, sh).Add(image.Pt(layout.TextOrigin.X+dx, top))
		xdraw.DrawMask(img, r, src, image.Point{}, scaled, image.Point{}, xdraw.Over)
	}
}
