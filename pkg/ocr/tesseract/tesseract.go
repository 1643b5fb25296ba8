package tesseract

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/menta2k/plate-reader/pkg/ocr"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/types"
)

// Config selects the trained data and segmentation mode
type Config struct {
	Languages []string
	// PageSegMode defaults to a single text line.
	PageSegMode gosseract.PageSegMode
}

// Engine reads plate text with Tesseract. One client is created up front and
// reused; calls are serialized since the client is not safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	processor *processing.Processor
}

// NewEngine constructs a Tesseract-backed reader restricted to plate characters.
func NewEngine(cfg Config) (*Engine, error) {
	c := gosseract.NewClient()

	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := c.SetLanguage(langs...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}

	psm := cfg.PageSegMode
	if psm == 0 {
		psm = gosseract.PSM_SINGLE_LINE
	}
	if err := c.SetPageSegMode(psm); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetWhitelist(ocr.Allowlist); err != nil {
		c.Close()
		return nil, fmt.Errorf("set whitelist: %w", err)
	}

	return &Engine{client: c, processor: processing.NewProcessor()}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// ReadText returns one fragment per recognized word, left to right as
// Tesseract reports them, with confidence scaled to [0,1].
func (e *Engine) ReadText(ctx context.Context, img image.Image) ([]types.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := e.processor.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	fragments := make([]types.Fragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, types.Fragment{
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
		})
	}
	return ocr.Fragments(fragments), nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
