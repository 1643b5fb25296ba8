package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown detector", func(c *Config) { c.Detector.Backend = "yolo" }},
		{"unknown ocr", func(c *Config) { c.OCR.Backend = "easyocr" }},
		{"vision detector without client", func(c *Config) { c.Detector.Backend = "vision"; c.Detector.Client = "" }},
		{"vision ocr with bad client", func(c *Config) { c.OCR.Backend = "vision"; c.OCR.Client = "openai" }},
		{"send quality", func(c *Config) { c.Detector.SendQuality = 0 }},
		{"min confidence", func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{"min crop", func(c *Config) { c.Pipeline.MinCropSize = 0 }},
		{"upscale", func(c *Config) { c.Pipeline.Upscale = 0 }},
		{"format", func(c *Config) { c.Output.DefaultFormat = "gif" }},
		{"quality", func(c *Config) { c.Output.Quality = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.OCR.Backend = "vision"
	cfg.Output.Quality = 70
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.OCR.Backend != "vision" || loaded.Output.Quality != 70 {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"pipeline":{"upscale":3}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Pipeline.Upscale != 3 {
		t.Errorf("expected upscale 3, got %f", cfg.Pipeline.Upscale)
	}
	if cfg.Pipeline.MinCropSize != 10 || cfg.OCR.Backend != "tesseract" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("PLATE_DETECTOR", "vision")
	t.Setenv("PLATE_DETECTOR_MODEL", "minicpm-v")
	t.Setenv("PLATE_OCR_URL", "http://ocr:8080")
	t.Setenv("PLATE_OUTPUT_DIR", " /tmp/plates ")
	t.Setenv("PLATE_OUTPUT_FORMAT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Detector.Backend != "vision" || cfg.Detector.Model != "minicpm-v" {
		t.Errorf("detector overrides not applied: %+v", cfg.Detector)
	}
	if cfg.OCR.URL != "http://ocr:8080" {
		t.Errorf("expected ocr url override, got %q", cfg.OCR.URL)
	}
	if cfg.Output.OutputDir != "/tmp/plates" {
		t.Errorf("expected trimmed output dir, got %q", cfg.Output.OutputDir)
	}
	if cfg.Output.DefaultFormat != "jpg" {
		t.Errorf("blank env values must not override, got %q", cfg.Output.DefaultFormat)
	}
}

func TestGetConfigPath(t *testing.T) {
	if filepath.Base(GetConfigPath()) != "config.json" {
		t.Errorf("unexpected config path %q", GetConfigPath())
	}
}
