package vision

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/plate-reader/pkg/types"
)

// CandidateDetector proposes plate regions without a model. Plates show as
// wide windows dense in vertical strokes on a calmer surrounding, so windows
// are scored by their horizontal gradient density minus that of a ring
// around them.
type CandidateDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for candidate detection
type DetectionConfig struct {
	MinDensity    float64   // minimum mean edge density inside a window
	MinScore      float64   // minimum density contrast against the ring
	AspectRatios  []float64 // width/height ratios tried
	HeightRatios  []float64 // window heights as a fraction of image height
	IoUThreshold  float64
	MaxCandidates int
	MaxWidth      int // images wider than this are analysed downscaled
}

// DefaultConfig returns the configuration used by New
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		MinDensity:    0.1,
		MinScore:      0.08,
		AspectRatios:  []float64{2, 3, 4, 5, 6},
		HeightRatios:  []float64{1.0 / 16, 1.0 / 12, 1.0 / 8, 1.0 / 6},
		IoUThreshold:  0.3,
		MaxCandidates: 5,
		MaxWidth:      800,
	}
}

// New creates a new CandidateDetector with default configuration
func New() *CandidateDetector {
	return &CandidateDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new CandidateDetector with custom configuration
func NewWithConfig(config DetectionConfig) *CandidateDetector {
	return &CandidateDetector{config: config}
}

// Region represents a rectangular region of interest
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Box converts the region to a pixel box
func (r Region) Box() types.Box {
	return types.Box{X1: r.X, Y1: r.Y, X2: r.X + r.Width, Y2: r.Y + r.Height}
}

// Detect returns candidate plate boxes, best first.
func (d *CandidateDetector) Detect(ctx context.Context, img image.Image) ([]types.Box, error) {
	regions, err := d.DetectRegions(ctx, img)
	if err != nil {
		return nil, err
	}
	boxes := make([]types.Box, len(regions))
	for i, r := range regions {
		boxes[i] = r.Box()
	}
	return boxes, nil
}

// DetectRegions scores plate-shaped windows and keeps the best non-overlapping
// ones. Coordinates are relative to the image bounds origin.
func (d *CandidateDetector) DetectRegions(ctx context.Context, img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, nil
	}

	scale := 1.0
	work := img
	if d.config.MaxWidth > 0 && bounds.Dx() > d.config.MaxWidth {
		work = imaging.Resize(img, d.config.MaxWidth, 0, imaging.Box)
		scale = float64(bounds.Dx()) / float64(work.Bounds().Dx())
	}

	sum := newIntegral(edgeMap(work))

	var candidates []Region
	for _, hr := range d.config.HeightRatios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := int(float64(sum.h) * hr)
		if h < 8 {
			continue
		}
		for _, ar := range d.config.AspectRatios {
			w := int(float64(h) * ar)
			if w > sum.w {
				continue
			}
			candidates = append(candidates, d.scanWindows(sum, w, h)...)
		}
	}

	regions := nms(candidates, d.config.IoUThreshold)
	if d.config.MaxCandidates > 0 && len(regions) > d.config.MaxCandidates {
		regions = regions[:d.config.MaxCandidates]
	}

	if scale != 1 {
		for i := range regions {
			regions[i] = scaleRegion(regions[i], scale)
		}
	}
	return regions, nil
}

func (d *CandidateDetector) scanWindows(sum *integral, w, h int) []Region {
	var out []Region
	step := max(h/4, 1)
	margin := max(h/2, 1)

	for y := 0; y+h <= sum.h; y += step {
		for x := 0; x+w <= sum.w; x += step {
			inner := sum.rect(x, y, x+w, y+h)
			density := inner / float64(w*h)
			if density < d.config.MinDensity {
				continue
			}

			ox1, oy1 := max(x-margin, 0), max(y-margin, 0)
			ox2, oy2 := min(x+w+margin, sum.w), min(y+h+margin, sum.h)
			ringArea := (ox2-ox1)*(oy2-oy1) - w*h
			ring := 0.0
			if ringArea > 0 {
				ring = (sum.rect(ox1, oy1, ox2, oy2) - inner) / float64(ringArea)
			}

			score := density - ring
			if score < d.config.MinScore {
				continue
			}
			out = append(out, Region{X: x, Y: y, Width: w, Height: h, Score: score})
		}
	}
	return out
}

// edgeMap returns the normalized horizontal gradient magnitude of img.
func edgeMap(img image.Image) ([]float64, int, int) {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	edges := make([]float64, w*h)

	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 1; x < w-1; x++ {
			diff := math.Abs(float64(row[(x+1)*4]) - float64(row[(x-1)*4]))
			edges[y*w+x] = diff / 255
		}
	}
	return edges, w, h
}

// integral is a summed-area table over an edge map
type integral struct {
	w, h int
	sums []float64
}

func newIntegral(edges []float64, w, h int) *integral {
	s := &integral{w: w, h: h, sums: make([]float64, (w+1)*(h+1))}
	for y := 0; y < h; y++ {
		rowSum := 0.0
		for x := 0; x < w; x++ {
			rowSum += edges[y*w+x]
			s.sums[(y+1)*(w+1)+x+1] = s.sums[y*(w+1)+x+1] + rowSum
		}
	}
	return s
}

// rect returns the edge sum over [x1,x2) x [y1,y2).
func (s *integral) rect(x1, y1, x2, y2 int) float64 {
	stride := s.w + 1
	return s.sums[y2*stride+x2] - s.sums[y1*stride+x2] - s.sums[y2*stride+x1] + s.sums[y1*stride+x1]
}

func nms(regions []Region, threshold float64) []Region {
	if len(regions) == 0 {
		return nil
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Score > regions[j].Score
	})

	var result []Region
	for len(regions) > 0 {
		current := regions[0]
		result = append(result, current)

		var remaining []Region
		for _, r := range regions[1:] {
			if iou(current, r) < threshold {
				remaining = append(remaining, r)
			}
		}
		regions = remaining
	}
	return result
}

func iou(a, b Region) float64 {
	ix1 := max(a.X, b.X)
	iy1 := max(a.Y, b.Y)
	ix2 := min(a.X+a.Width, b.X+b.Width)
	iy2 := min(a.Y+a.Height, b.Y+b.Height)

	inter := max(0, ix2-ix1) * max(0, iy2-iy1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func scaleRegion(r Region, s float64) Region {
	return Region{
		X:      int(math.Round(float64(r.X) * s)),
		Y:      int(math.Round(float64(r.Y) * s)),
		Width:  int(math.Round(float64(r.Width) * s)),
		Height: int(math.Round(float64(r.Height) * s)),
		Score:  r.Score,
	}
}
