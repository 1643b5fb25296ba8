// Package pipeline runs plate recognition over the detector boxes of one
// image and draws the results.
//
// Processing is sequential: boxes are handled in detector order so the
// valid and unconfirmed lists keep that order. A Pipeline holds no per-image
// state, so one instance may serve many images as long as each call gets its
// own image.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/menta2k/plate-reader/pkg/annotate"
	"github.com/menta2k/plate-reader/pkg/plate"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/types"
)

const (
	// DefaultMinCropSize is the smallest crop side worth sending to OCR.
	DefaultMinCropSize = 10
	// DefaultUpscale enlarges crops before OCR so small plates stay legible.
	DefaultUpscale = 2.0
)

// Detector proposes plate regions for an image, in pixel coordinates.
// Score thresholding is the detector's own concern.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Box, error)
}

// Reader reads text fragments from a cropped plate region.
type Reader interface {
	ReadText(ctx context.Context, img image.Image) ([]types.Fragment, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(ctx context.Context, img image.Image) ([]types.Fragment, error)

// ReadText calls f.
func (f ReaderFunc) ReadText(ctx context.Context, img image.Image) ([]types.Fragment, error) {
	return f(ctx, img)
}

// StaticDetector returns the same boxes for every image
type StaticDetector []types.Box

// Detect returns a copy of the boxes.
func (s StaticDetector) Detect(ctx context.Context, img image.Image) ([]types.Box, error) {
	return append([]types.Box(nil), s...), nil
}

// Pipeline ties a text reader to the plate recognizer and the renderer
type Pipeline struct {
	reader     Reader
	recognizer *plate.Recognizer
	processor  *processing.Processor
	minCrop    int
	upscale    float64
	logger     *log.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMinCropSize overrides the minimum crop width and height.
func WithMinCropSize(px int) Option {
	return func(p *Pipeline) { p.minCrop = px }
}

// WithUpscale overrides the crop magnification applied before OCR.
func WithUpscale(factor float64) Option {
	return func(p *Pipeline) { p.upscale = factor }
}

// WithLogger enables verbose tracing of skipped boxes.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline around an OCR reader
func New(reader Reader, opts ...Option) *Pipeline {
	p := &Pipeline{
		reader:     reader,
		recognizer: plate.NewRecognizer(),
		processor:  processing.NewProcessor(),
		minCrop:    DefaultMinCropSize,
		upscale:    DefaultUpscale,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run detects plates with det and processes them. A detector failure is
// returned as is; the image is not processed.
func (p *Pipeline) Run(ctx context.Context, img image.Image, det Detector) (*image.RGBA, types.Report, error) {
	boxes, err := det.Detect(ctx, img)
	if err != nil {
		return nil, types.Report{}, fmt.Errorf("plate detection failed: %w", err)
	}
	return p.Process(ctx, img, boxes)
}

// Process recognizes every box and returns an annotated copy of img with the
// report. Failures of a single box never affect the others; the only error
// is cancellation of ctx.
func (p *Pipeline) Process(ctx context.Context, img image.Image, boxes []types.Box) (*image.RGBA, types.Report, error) {
	annotated := p.processor.ToRGBA(img)
	var report types.Report

	for i, box := range boxes {
		if err := ctx.Err(); err != nil {
			return annotated, report, err
		}

		crop, err := p.processor.Crop(img, box)
		if err != nil || crop.Bounds().Dx() < p.minCrop || crop.Bounds().Dy() < p.minCrop {
			p.logger.Printf("box %d %v: crop too small, skipped", i, box)
			continue
		}

		fragments := p.readFragments(ctx, i, crop)
		reading := p.recognizer.Recognize(fragments)
		if reading.Empty() {
			continue
		}

		if reading.Valid {
			report.Valid = append(report.Valid, types.Entry{Text: reading.Formatted, Confidence: reading.Confidence})
		} else {
			report.Invalid = append(report.Invalid, types.Entry{Text: reading.Raw, Confidence: reading.Confidence})
		}

		det := types.Detection{Box: box, Reading: reading}
		report.Detections = append(report.Detections, det)
		annotate.DrawReading(annotated, det)
	}

	return annotated, report, nil
}

// readFragments is the one place where OCR failures become an empty read.
func (p *Pipeline) readFragments(ctx context.Context, idx int, crop image.Image) (fragments []types.Fragment) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("box %d: ocr panicked: %v", idx, r)
			fragments = nil
		}
	}()

	fragments, err := p.reader.ReadText(ctx, p.processor.Upscale(crop, p.upscale))
	if err != nil {
		p.logger.Printf("box %d: no text read: %v", idx, err)
		return nil
	}
	return fragments
}
