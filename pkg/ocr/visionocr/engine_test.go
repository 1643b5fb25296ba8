package visionocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/menta2k/plate-reader/pkg/types"
)

type fakeClient struct {
	answer string
	err    error
	model  string
	prompt string
	img    string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return f.answer, f.err
}

func (f *fakeClient) QueryJSON(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.model, f.prompt, f.img = model, prompt, imgB64
	return f.answer, f.err
}

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}

func TestReadText(t *testing.T) {
	fc := &fakeClient{answer: `{"fragments":[{"text":"mh-01","confidence":0.8},{"text":"AB 1234","confidence":0.6},{"text":"..","confidence":0.9}]}`}
	e := NewEngine(fc, Config{Model: "qwen2.5vl"})

	got, err := e.ReadText(context.Background(), createTestImage(60, 20))
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	want := []types.Fragment{{Text: "MH01", Confidence: 0.8}, {Text: "AB1234", Confidence: 0.6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadText() = %+v, want %+v", got, want)
	}

	if fc.model != "qwen2.5vl" || fc.prompt != DefaultPrompt || fc.img == "" {
		t.Errorf("unexpected query: model=%q prompt set=%v image set=%v", fc.model, fc.prompt == DefaultPrompt, fc.img != "")
	}
	if e.Name() != "vision:qwen2.5vl" {
		t.Errorf("unexpected name %q", e.Name())
	}
}

func TestReadTextErrors(t *testing.T) {
	e := NewEngine(&fakeClient{err: errors.New("connection refused")}, Config{})
	if _, err := e.ReadText(context.Background(), createTestImage(20, 20)); err == nil {
		t.Error("expected client error to be returned")
	}

	e = NewEngine(&fakeClient{answer: "I cannot read this"}, Config{})
	if _, err := e.ReadText(context.Background(), createTestImage(20, 20)); err == nil {
		t.Error("expected parse error for a non-JSON answer")
	}
}

func TestReadTextEmpty(t *testing.T) {
	e := NewEngine(&fakeClient{answer: `{"fragments":[]}`}, Config{})
	got, err := e.ReadText(context.Background(), createTestImage(20, 20))
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no fragments, got %+v", got)
	}
}
