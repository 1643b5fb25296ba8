package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	platereader "github.com/menta2k/plate-reader"
	"github.com/menta2k/plate-reader/internal/config"
	"github.com/menta2k/plate-reader/internal/utils"
	"github.com/menta2k/plate-reader/pkg/client"
	"github.com/menta2k/plate-reader/pkg/detection"
	"github.com/menta2k/plate-reader/pkg/llamacpp"
	"github.com/menta2k/plate-reader/pkg/ocr/tesseract"
	"github.com/menta2k/plate-reader/pkg/ocr/visionocr"
	"github.com/menta2k/plate-reader/pkg/ollama"
	"github.com/menta2k/plate-reader/pkg/pipeline"
	"github.com/menta2k/plate-reader/pkg/processing"
	"github.com/menta2k/plate-reader/pkg/report"
	"github.com/menta2k/plate-reader/pkg/types"
	"github.com/menta2k/plate-reader/pkg/vision"
)

type options struct {
	in, dir, configPath string
	boxes, saveConfig   string
	verbose, testVision bool
	timeout             time.Duration
}

// visionTester is implemented by detectors that can be asked what they see
type visionTester interface {
	TestVision(ctx context.Context, img image.Image) (string, error)
}

func main() {
	var opts options
	cfg := config.Default()

	flag.StringVar(&opts.in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&opts.dir, "dir", "", "batch mode: folder of images (not recursive)")
	flag.StringVar(&opts.configPath, "config", "", "JSON config file (default ~/.config/plate-reader/config.json if present; PLATE_* env vars and .env override it)")
	flag.StringVar(&opts.saveConfig, "save-config", "", "write the effective configuration to this JSON file")
	flag.BoolVar(&opts.testVision, "test-vision", false, "ask the vision detector to describe the first image before processing")
	flag.StringVar(&opts.boxes, "boxes", "", "static detector boxes: x1,y1,x2,y2[;x1,y1,x2,y2...]")
	flag.BoolVar(&opts.verbose, "verbose", false, "log skipped crops and OCR failures")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "per-image timeout")

	// Flags registered against the defaults only so -h shows them; values are
	// copied onto the loaded config for the flags actually set.
	flag.StringVar(&cfg.Output.OutputDir, "out", cfg.Output.OutputDir, "output directory")
	flag.StringVar(&cfg.Detector.Backend, "detector", cfg.Detector.Backend, "plate detector: candidate|vision|static")
	flag.StringVar(&cfg.Detector.Client, "detector-client", cfg.Detector.Client, "vision detector backend: ollama|llamacpp")
	flag.StringVar(&cfg.Detector.Model, "detector-model", cfg.Detector.Model, "vision detector model name")
	flag.StringVar(&cfg.Detector.URL, "detector-url", cfg.Detector.URL, "vision detector server URL")
	flag.StringVar(&cfg.OCR.Backend, "ocr", cfg.OCR.Backend, "OCR engine: tesseract|vision")
	flag.StringVar(&cfg.OCR.Client, "ocr-client", cfg.OCR.Client, "vision OCR backend: ollama|llamacpp")
	flag.StringVar(&cfg.OCR.Model, "ocr-model", cfg.OCR.Model, "vision OCR model name")
	flag.StringVar(&cfg.OCR.URL, "ocr-url", cfg.OCR.URL, "vision OCR server URL")
	flag.StringVar(&cfg.Output.DefaultFormat, "ext", cfg.Output.DefaultFormat, "annotated output format in single mode: jpg|png|webp")
	flag.IntVar(&cfg.Output.Quality, "quality", cfg.Output.Quality, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&cfg.Output.Lossless, "lossless", cfg.Output.Lossless, "WebP output lossless mode")
	flag.Float64Var(&cfg.Pipeline.Upscale, "upscale", cfg.Pipeline.Upscale, "crop magnification before OCR")

	flag.Parse()
	if (opts.in != "" && opts.dir != "") || (opts.in == "" && opts.dir == "" && opts.saveConfig == "") {
		log.Fatalf("usage: %s (-in input.jpg|URL | -dir folder | -save-config file) [-test-vision] [-detector candidate|vision|static] [-ocr tesseract|vision] [-out outdir]", filepath.Base(os.Args[0]))
	}

	loaded, err := config.Load(resolveConfigPath(opts.configPath))
	if err != nil {
		log.Fatal(err)
	}
	cfg = applyFlags(loaded, cfg)
	if opts.boxes != "" && !isSet("detector") {
		cfg.Detector.Backend = "static"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if opts.saveConfig != "" {
		if err := cfg.SaveToFile(opts.saveConfig); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", opts.saveConfig)
		if opts.in == "" && opts.dir == "" {
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	detector, err := buildDetector(cfg.Detector, opts.boxes)
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}
	ocr, closeOCR, err := buildOCR(cfg.OCR)
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	defer closeOCR()

	pipeOpts := []pipeline.Option{
		pipeline.WithMinCropSize(cfg.Pipeline.MinCropSize),
		pipeline.WithUpscale(cfg.Pipeline.Upscale),
	}
	if opts.verbose {
		pipeOpts = append(pipeOpts, pipeline.WithLogger(log.New(os.Stderr, "pipeline: ", log.LstdFlags)))
	}
	reader := platereader.New(detector, ocr, pipeOpts...)
	if opts.verbose {
		log.Printf("detector=%s ocr=%s upscale=%.1f", cfg.Detector.Backend, engineName(ocr), cfg.Pipeline.Upscale)
	}

	if opts.testVision {
		if err := testVision(ctx, detector, reader, opts); err != nil {
			log.Fatalf("Vision test failed: %v", err)
		}
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Fatal(err)
	}

	if opts.dir != "" {
		err = runBatch(ctx, reader, cfg, opts)
	} else {
		err = runSingle(ctx, reader, cfg, opts)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// resolveConfigPath falls back to the per-user config file when no path is
// given and that file exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return def
	}
	return ""
}

// engineName reports the OCR engine name for logging.
func engineName(r pipeline.Reader) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}

// testVision checks that the detector model can see the first input image.
func testVision(ctx context.Context, det pipeline.Detector, reader *platereader.Reader, opts options) error {
	vt, ok := det.(visionTester)
	if !ok {
		return fmt.Errorf("-test-vision needs the vision detector")
	}

	source := opts.in
	if source == "" {
		files, err := utils.ListImageFiles(opts.dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no images found in %q", opts.dir)
		}
		source = files[0]
	}

	img, err := reader.LoadImage(source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	answer, err := vt.TestVision(ctx, img)
	if err != nil {
		return err
	}
	log.Printf("vision test (%s): %s", filepath.Base(source), answer)
	return nil
}

// sameDir reports whether two paths name the same directory.
func sameDir(a, b string) bool {
	return canonicalPath(a) == canonicalPath(b)
}

func canonicalPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}

// applyFlags copies explicitly set flags from flagged onto cfg.
func applyFlags(cfg, flagged *config.Config) *config.Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.OutputDir = flagged.Output.OutputDir
		case "detector":
			cfg.Detector.Backend = flagged.Detector.Backend
		case "detector-client":
			cfg.Detector.Client = flagged.Detector.Client
		case "detector-model":
			cfg.Detector.Model = flagged.Detector.Model
		case "detector-url":
			cfg.Detector.URL = flagged.Detector.URL
		case "ocr":
			cfg.OCR.Backend = flagged.OCR.Backend
		case "ocr-client":
			cfg.OCR.Client = flagged.OCR.Client
		case "ocr-model":
			cfg.OCR.Model = flagged.OCR.Model
		case "ocr-url":
			cfg.OCR.URL = flagged.OCR.URL
		case "ext":
			cfg.Output.DefaultFormat = flagged.Output.DefaultFormat
		case "quality":
			cfg.Output.Quality = flagged.Output.Quality
		case "lossless":
			cfg.Output.Lossless = flagged.Output.Lossless
		case "upscale":
			cfg.Pipeline.Upscale = flagged.Pipeline.Upscale
		}
	})
	return cfg
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func newVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		return ollama.NewClient(url)
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		return llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}

func buildDetector(cfg config.DetectorConfig, boxes string) (pipeline.Detector, error) {
	switch cfg.Backend {
	case "static":
		return parseBoxes(boxes)
	case "vision":
		vc, err := newVisionClient(cfg.Client, cfg.URL)
		if err != nil {
			return nil, err
		}
		return detection.NewVisionDetector(vc, detection.Config{
			Model:         cfg.Model,
			MaxSize:       cfg.SendSize,
			Quality:       cfg.SendQuality,
			MinConfidence: cfg.MinConfidence,
		}), nil
	default:
		return vision.New(), nil
	}
}

func buildOCR(cfg config.OCRConfig) (pipeline.Reader, func(), error) {
	if cfg.Backend == "vision" {
		vc, err := newVisionClient(cfg.Client, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return visionocr.NewEngine(vc, visionocr.Config{Model: cfg.Model}), func() {}, nil
	}

	engine, err := tesseract.NewEngine(tesseract.Config{
		Languages:   strings.Split(cfg.Languages, "+"),
		PageSegMode: gosseract.PageSegMode(cfg.PageSegMode),
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, func() {
		if err := engine.Close(); err != nil {
			log.Printf("tesseract close: %v", err)
		}
	}, nil
}

// parseBoxes reads "x1,y1,x2,y2;..." into a static detector.
func parseBoxes(s string) (pipeline.StaticDetector, error) {
	var out pipeline.StaticDetector
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("box %q: want x1,y1,x2,y2", part)
		}
		var v [4]int
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("box %q: %w", part, err)
			}
			v[i] = n
		}
		if v[2] <= v[0] || v[3] <= v[1] {
			return nil, fmt.Errorf("box %q: need x1<x2 and y1<y2", part)
		}
		out = append(out, types.Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no boxes given")
	}
	return out, nil
}

func runSingle(ctx context.Context, reader *platereader.Reader, cfg *config.Config, opts options) error {
	start := time.Now()
	img, err := reader.LoadImage(opts.in)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	result, err := reader.ProcessImage(ctx, img)
	if err != nil {
		return err
	}

	printReport(os.Stdout, result.Report)

	name := opts.in
	if utils.IsURL(name) {
		name = "remote"
	}
	outPath := utils.GenerateOutputFilename(name, cfg.Output.OutputDir, "", "_annotated", strings.ToLower(cfg.Output.DefaultFormat))
	if err := saveAnnotated(result.Annotated, outPath, cfg); err != nil {
		return err
	}
	log.Printf("wrote %s", outPath)

	summary := report.NewSummary(opts.in, result.Report, time.Since(start))
	summary.Output = outPath
	summaryPath := filepath.Join(cfg.Output.OutputDir, "report.json")
	if err := summary.Save(summaryPath); err != nil {
		return err
	}
	log.Printf("wrote %s (run %s)", summaryPath, summary.RunID)
	return nil
}

func runBatch(ctx context.Context, reader *platereader.Reader, cfg *config.Config, opts options) error {
	if !utils.DirExists(opts.dir) {
		return fmt.Errorf("input folder %q does not exist", opts.dir)
	}
	// Annotated copies keep the input filename, so they must not land in the
	// input folder.
	if sameDir(opts.dir, cfg.Output.OutputDir) {
		return fmt.Errorf("output folder %q is the input folder; choose another -out", cfg.Output.OutputDir)
	}

	files, err := utils.ListImageFiles(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", opts.dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %q", opts.dir)
	}
	log.Printf("found %d images to process", len(files))

	csvPath := filepath.Join(cfg.Output.OutputDir, cfg.Output.ResultsFile)
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	w := report.NewWriter(f)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		filename := filepath.Base(path)

		img, err := reader.LoadImage(path)
		if err != nil {
			log.Printf("warning: could not read image %s, skipping: %v", filename, err)
			continue
		}

		imgCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		result, err := reader.ProcessImage(imgCtx, img)
		cancel()
		if err != nil {
			log.Printf("warning: %s failed, skipping: %v", filename, err)
			continue
		}

		outPath := filepath.Join(cfg.Output.OutputDir, filename)
		if err := saveAnnotated(result.Annotated, outPath, cfg); err != nil {
			log.Printf("save %s failed: %v", outPath, err)
		}
		if err := w.Write(filename, result.Report); err != nil {
			return err
		}
		log.Printf("[%d/%d] %s: %d validated, %d unconfirmed", i+1, len(files), filename, len(result.Report.Valid), len(result.Report.Invalid))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	log.Printf("batch complete: annotated images in %s, results in %s", cfg.Output.OutputDir, csvPath)
	return nil
}

// saveAnnotated writes img in the format named by the path extension.
func saveAnnotated(img image.Image, path string, cfg *config.Config) error {
	format := utils.GetFileExtension(path)
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	if err := processing.NewProcessor().SaveImage(img, path, format, cfg.Output.Quality, cfg.Output.Lossless); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func printReport(w io.Writer, rep types.Report) {
	if rep.Empty() {
		fmt.Fprintln(w, "No license plates were detected in the image.")
		return
	}
	if len(rep.Valid) > 0 {
		fmt.Fprintln(w, "Validated license plate(s):")
		for _, e := range rep.Valid {
			fmt.Fprintf(w, "  %s (confidence: %.0f%%)\n", e.Text, e.Confidence*100)
		}
	}
	if len(rep.Invalid) > 0 {
		fmt.Fprintln(w, "Unconfirmed reading(s), could not be validated after correction:")
		for _, e := range rep.Invalid {
			fmt.Fprintf(w, "  %s (confidence: %.0f%%)\n", e.Text, e.Confidence*100)
		}
	}
}
