// Package platereader finds vehicle license plates in images, reads and
// validates their text and draws the results.
//
// A Reader combines a plate detector with an OCR engine. Both are built once
// by the caller and reused for every image:
//
//	det := vision.New()
//	ocr, err := tesseract.NewEngine(tesseract.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ocr.Close()
//
//	reader := platereader.New(det, ocr)
//	report, err := reader.ProcessFile(ctx, "car.jpg", "out/car.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, p := range report.Valid {
//		fmt.Printf("%s (%.0f%%)\n", p.Text, p.Confidence*100)
//	}
//
// Detected text is corrected position by position against the plate scheme
// AA-NN-AA-NNNN (two letters, two digits, two letters, four digits) using a
// fixed table of common OCR confusions. Readings that match after correction
// are reported as validated plates in the grouped form "MH 01 AB 1234";
// everything else is reported raw as unconfirmed.
//
// The package consists of these components:
//
//  1. Plate (pkg/plate): grammar, correction, validation and formatting
//  2. Pipeline (pkg/pipeline): per-box crop, OCR, recognition and annotation
//  3. Annotate (pkg/annotate): box and label drawing
//  4. Detectors (pkg/vision, pkg/detection): offline and vision-model plate finders
//  5. OCR engines (pkg/ocr/tesseract, pkg/ocr/visionocr)
//  6. Report (pkg/report): batch CSV rows and JSON summaries
package platereader

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/menta2k/plate-reader/pkg/pipeline"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/types"
)

// Version of the plate reader library
const Version = "1.0.0"

// DefaultQuality is used when saving annotated JPEG or WebP output
const DefaultQuality = 90

// Reader provides a high-level interface for plate recognition
type Reader struct {
	detector  pipeline.Detector
	pipeline  *pipeline.Pipeline
	processor *processing.Processor
}

// New creates a Reader from a detector and an OCR engine
func New(detector pipeline.Detector, ocr pipeline.Reader, opts ...pipeline.Option) *Reader {
	return &Reader{
		detector:  detector,
		pipeline:  pipeline.New(ocr, opts...),
		processor: processing.NewProcessor(),
	}
}

// Result holds the annotated image and the plate report of one image
type Result struct {
	Annotated *image.RGBA
	Report    types.Report
}

// LoadImage loads an image from a file path or an http(s) URL
func (r *Reader) LoadImage(source string) (image.Image, error) {
	return r.processor.LoadImageSmart(source)
}

// SaveImage saves an image; the format follows the file extension.
func (r *Reader) SaveImage(img image.Image, path string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	return r.processor.SaveImage(img, path, format, DefaultQuality, false)
}

// ProcessImage detects, reads and annotates the plates of img. The input
// image is left untouched.
func (r *Reader) ProcessImage(ctx context.Context, img image.Image) (Result, error) {
	annotated, report, err := r.pipeline.Run(ctx, img, r.detector)
	if err != nil {
		return Result{}, err
	}
	return Result{Annotated: annotated, Report: report}, nil
}

// ProcessFile is a convenience function that loads, processes and saves an
// image. The annotated copy is written to outputPath unless it is empty.
func (r *Reader) ProcessFile(ctx context.Context, source, outputPath string) (types.Report, error) {
	img, err := r.LoadImage(source)
	if err != nil {
		return types.Report{}, fmt.Errorf("failed to load image: %w", err)
	}

	result, err := r.ProcessImage(ctx, img)
	if err != nil {
		return types.Report{}, fmt.Errorf("processing failed: %w", err)
	}

	if outputPath != "" {
		if err := r.SaveImage(result.Annotated, outputPath); err != nil {
			return result.Report, fmt.Errorf("failed to save annotated image: %w", err)
		}
	}

	return result.Report, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
