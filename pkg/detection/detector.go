package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/plate-reader/pkg/client"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for plate localization
const DefaultPrompt = `You are a license plate locator.

Return JSON only:
{
  "plates": [
    {
      "confidence": 0.0,
      "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
    }
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- One entry per visible vehicle license plate, left to right.
- Boxes must tightly include the plate border and nothing else.
- Do not read or transcribe the plate text.
- If no plate is visible, return {"plates": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// DefaultMinConfidence drops weak proposals
const DefaultMinConfidence = 0.25

// NormBox is a box in normalized [0,1] image coordinates
type NormBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Proposal is one plate location returned by the model
type Proposal struct {
	Confidence float64 `json:"confidence"`
	Box        NormBox `json:"box"`
	Label      string  `json:"label,omitempty"`
}

type response struct {
	Plates []Proposal `json:"plates"`
}

// Config controls the vision detector
type Config struct {
	Model         string
	Prompt        string
	MaxSize       int // longest side sent to the model, 0 keeps the original
	Quality       int
	MinConfidence float64
}

// VisionDetector finds plates by asking a vision model for normalized boxes
type VisionDetector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
}

// NewVisionDetector creates a new detector with a vision client
func NewVisionDetector(vc client.VisionClient, cfg Config) *VisionDetector {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 85
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &VisionDetector{client: vc, processor: processing.NewProcessor(), config: cfg}
}

// Detect returns plate boxes in pixel coordinates of img, in model order.
func (d *VisionDetector) Detect(ctx context.Context, img image.Image) ([]types.Box, error) {
	proposals, err := d.Propose(ctx, img)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	boxes := make([]types.Box, 0, len(proposals))
	for _, p := range proposals {
		if p.Confidence < d.config.MinConfidence {
			continue
		}
		box := toPixels(p.Box, b.Dx(), b.Dy())
		if box.Width() <= 0 || box.Height() <= 0 {
			continue
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// Propose returns the raw model proposals with their boxes clamped to [0,1].
func (d *VisionDetector) Propose(ctx context.Context, img image.Image) ([]Proposal, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, "jpg", d.config.MaxSize, d.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	raw, err := d.client.QueryJSON(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	out := resp.Plates[:0]
	for _, p := range resp.Plates {
		if strings.EqualFold(p.Label, "none") {
			continue
		}
		p.Box = normalizeBox(p.Box, img.Bounds().Dx(), img.Bounds().Dy())
		p.Confidence = clamp(p.Confidence, 0, 1)
		out = append(out, p)
	}
	return out, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *VisionDetector) TestVision(ctx context.Context, img image.Image) (string, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, "jpg", d.config.MaxSize, d.config.Quality)
	if err != nil {
		return "", err
	}
	return d.client.SimpleQuery(ctx, d.config.Model, SimpleTestPrompt, imgB64)
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox ensures box coordinates are within [0,1] bounds. Models
// sometimes answer in pixels; those are scaled by the image size.
func normalizeBox(b NormBox, imgW, imgH int) NormBox {
	if imgW > 0 && imgH > 0 && (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) {
		b = NormBox{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}

	b.X = clamp(b.X, 0, 1)
	b.Y = clamp(b.Y, 0, 1)
	b.W = clamp(b.W, 0, 1-b.X)
	b.H = clamp(b.H, 0, 1-b.Y)
	return b
}

func toPixels(b NormBox, w, h int) types.Box {
	return types.Box{
		X1: int(math.Round(b.X * float64(w))),
		Y1: int(math.Round(b.Y * float64(h))),
		X2: int(math.Round((b.X + b.W) * float64(w))),
		Y2: int(math.Round((b.Y + b.H) * float64(h))),
	}
}
