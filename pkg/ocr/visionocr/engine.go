package visionocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/menta2k/plate-reader/pkg/client"
	"github.com/menta2k/plate-reader/pkg/ocr"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/types"
)

// DefaultPrompt asks the model to transcribe a plate crop
const DefaultPrompt = `You are a license plate reader. The image is a tight crop of one plate.

Return JSON only:
{
  "fragments": [
    {"text": "string", "confidence": 0.0}
  ]
}

HARD RULES
- One fragment per separate group of characters, left to right.
- Use only uppercase A-Z and digits 0-9. No spaces, dashes or dots.
- Copy characters exactly as printed. Do not fix or guess the plate format.
- confidence is your certainty for that fragment in [0,1].
- If no text is legible, return {"fragments": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls how crops are sent to the model
type Config struct {
	Model   string
	Prompt  string
	Format  string // jpg|png
	Quality int
}

// Engine reads plate text through a vision model
type Engine struct {
	client    client.VisionClient
	processor *processing.Processor
	config    Config
}

// NewEngine wraps a vision client
func NewEngine(vc client.VisionClient, cfg Config) *Engine {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 90
	}
	return &Engine{client: vc, processor: processing.NewProcessor(), config: cfg}
}

func (e *Engine) Name() string { return "vision:" + e.config.Model }

type response struct {
	Fragments []types.Fragment `json:"fragments"`
}

// ReadText sends the crop to the model and parses its fragments. Characters
// outside the plate allowlist are removed from the answer.
func (e *Engine) ReadText(ctx context.Context, img image.Image) ([]types.Fragment, error) {
	imgB64, err := e.processor.PrepareImageForModel(img, e.config.Format, 0, e.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("prepare crop: %w", err)
	}

	raw, err := e.client.QueryJSON(ctx, e.config.Model, e.config.Prompt, imgB64)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return ocr.Fragments(resp.Fragments), nil
}
