package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `json:"detector"`
	OCR      OCRConfig      `json:"ocr"`
	Pipeline PipelineConfig `json:"pipeline"`
	Output   OutputConfig   `json:"output"`
}

// DetectorConfig selects and tunes the plate detector
type DetectorConfig struct {
	Backend       string  `json:"backend"` // vision|candidate|static
	Client        string  `json:"client"`  // ollama|llamacpp, vision only
	Model         string  `json:"model"`
	URL           string  `json:"url"`
	SendSize      int     `json:"send_size"`
	SendQuality   int     `json:"send_quality"`
	MinConfidence float64 `json:"min_confidence"`
}

// OCRConfig selects and tunes the text reader
type OCRConfig struct {
	Backend     string `json:"backend"` // tesseract|vision
	Client      string `json:"client"`
	Model       string `json:"model"`
	URL         string `json:"url"`
	Languages   string `json:"languages"`
	PageSegMode int    `json:"page_seg_mode"`
}

// PipelineConfig holds crop handling parameters
type PipelineConfig struct {
	MinCropSize int     `json:"min_crop_size"`
	Upscale     float64 `json:"upscale"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	OutputDir     string `json:"output_dir"`
	Quality       int    `json:"quality"`
	Lossless      bool   `json:"lossless"`
	ResultsFile   string `json:"results_file"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:       "candidate",
			Client:        "ollama",
			Model:         "qwen2.5vl:7b",
			SendSize:      1536,
			SendQuality:   85,
			MinConfidence: 0.25,
		},
		OCR: OCRConfig{
			Backend:     "tesseract",
			Client:      "ollama",
			Model:       "qwen2.5vl:7b",
			Languages:   "eng",
			PageSegMode: 7,
		},
		Pipeline: PipelineConfig{
			MinCropSize: 10,
			Upscale:     2,
		},
		Output: OutputConfig{
			DefaultFormat: "jpg",
			OutputDir:     "./output",
			Quality:       90,
			ResultsFile:   "results.csv",
		},
	}
}

// Load builds the configuration from defaults or a JSON file, then applies
// environment overrides. A .env file in the working directory is read first.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := Default()
	if filename != "" {
		var err error
		if cfg, err = LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON file. Missing keys keep their
// default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides fields from PLATE_* environment variables.
func (c *Config) ApplyEnv() {
	setString(&c.Detector.Backend, "PLATE_DETECTOR")
	setString(&c.Detector.Model, "PLATE_DETECTOR_MODEL")
	setString(&c.Detector.URL, "PLATE_DETECTOR_URL")
	setString(&c.OCR.Backend, "PLATE_OCR")
	setString(&c.OCR.Model, "PLATE_OCR_MODEL")
	setString(&c.OCR.URL, "PLATE_OCR_URL")
	setString(&c.Output.OutputDir, "PLATE_OUTPUT_DIR")
	setString(&c.Output.DefaultFormat, "PLATE_OUTPUT_FORMAT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case "vision", "candidate", "static":
	default:
		return fmt.Errorf("%w: detector.backend must be vision, candidate or static, got %q", ErrInvalid, c.Detector.Backend)
	}

	switch c.OCR.Backend {
	case "tesseract", "vision":
	default:
		return fmt.Errorf("%w: ocr.backend must be tesseract or vision, got %q", ErrInvalid, c.OCR.Backend)
	}

	if c.Detector.Backend == "vision" && !validClient(c.Detector.Client) {
		return fmt.Errorf("%w: detector.client must be ollama or llamacpp", ErrInvalid)
	}
	if c.OCR.Backend == "vision" && !validClient(c.OCR.Client) {
		return fmt.Errorf("%w: ocr.client must be ollama or llamacpp", ErrInvalid)
	}

	if c.Detector.SendQuality < 1 || c.Detector.SendQuality > 100 {
		return fmt.Errorf("%w: detector.send_quality must be between 1 and 100", ErrInvalid)
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("%w: detector.min_confidence must be between 0 and 1", ErrInvalid)
	}

	if c.Pipeline.MinCropSize < 1 {
		return fmt.Errorf("%w: pipeline.min_crop_size must be positive", ErrInvalid)
	}

	if c.Pipeline.Upscale <= 0 {
		return fmt.Errorf("%w: pipeline.upscale must be positive", ErrInvalid)
	}

	switch strings.ToLower(c.Output.DefaultFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("%w: output.default_format must be jpg, png or webp", ErrInvalid)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("%w: output.quality must be between 1 and 100", ErrInvalid)
	}

	return nil
}

func validClient(name string) bool {
	return name == "ollama" || name == "llamacpp"
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "plate-reader", "config.json")
}
