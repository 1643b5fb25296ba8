package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a dark scene with a striped, plate-like block at
// (100,80)-(220,120)
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	for y := 80; y < 120; y++ {
		for x := 100; x < 220; x++ {
			if ((x-100)/4)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func createUniformImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}
	if detector.config.IoUThreshold != 0.3 {
		t.Errorf("Expected IoU threshold 0.3, got %f", detector.config.IoUThreshold)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 1

	detector := NewWithConfig(cfg)
	if detector.config.MaxCandidates != 1 {
		t.Errorf("Expected 1 candidate, got %d", detector.config.MaxCandidates)
	}
}

func TestRegionCenter(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}

	centerX, centerY := region.Center()
	if centerX != 60 || centerY != 60 {
		t.Errorf("Expected center (60,60), got (%d,%d)", centerX, centerY)
	}
}

func TestRegionArea(t *testing.T) {
	region := Region{Width: 50, Height: 40}
	if region.Area() != 2000 {
		t.Errorf("Expected area 2000, got %d", region.Area())
	}
}

func TestRegionBox(t *testing.T) {
	b := Region{X: 5, Y: 6, Width: 30, Height: 10}.Box()
	if b.X1 != 5 || b.Y1 != 6 || b.X2 != 35 || b.Y2 != 16 {
		t.Errorf("unexpected box %+v", b)
	}
}

func TestDetectRegionsFindsPlate(t *testing.T) {
	detector := New()
	regions, err := detector.DetectRegions(context.Background(), createTestImage(400, 200))
	if err != nil {
		t.Fatalf("DetectRegions failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if len(regions) > detector.config.MaxCandidates {
		t.Errorf("expected at most %d candidates, got %d", detector.config.MaxCandidates, len(regions))
	}

	truth := Region{X: 100, Y: 80, Width: 120, Height: 40}
	best := regions[0]
	if v := iou(best, truth); v < 0.5 {
		t.Errorf("best candidate %+v overlaps the plate by only %.2f", best, v)
	}
	cx, cy := best.Center()
	if cx < 100 || cx > 220 || cy < 80 || cy > 120 {
		t.Errorf("best candidate center (%d,%d) outside the plate", cx, cy)
	}

	for i := 1; i < len(regions); i++ {
		if regions[i].Score > regions[i-1].Score {
			t.Error("regions should be sorted by score")
		}
	}
}

func TestDetectUniformImage(t *testing.T) {
	boxes, err := New().Detect(context.Background(), createUniformImage(1200, 300))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("expected no candidates on a flat image, got %v", boxes)
	}
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Detect(ctx, createTestImage(400, 200)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNMS(t *testing.T) {
	regions := []Region{
		{X: 0, Y: 0, Width: 100, Height: 20, Score: 0.5},
		{X: 5, Y: 0, Width: 100, Height: 20, Score: 0.9},
		{X: 300, Y: 0, Width: 100, Height: 20, Score: 0.4},
	}

	kept := nms(regions, 0.3)
	if len(kept) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(kept))
	}
	if kept[0].Score != 0.9 || kept[1].Score != 0.4 {
		t.Errorf("unexpected survivors %+v", kept)
	}
	if nms(nil, 0.3) != nil {
		t.Error("expected nil for no regions")
	}
}

func TestIoU(t *testing.T) {
	a := Region{X: 0, Y: 0, Width: 10, Height: 10}
	if v := iou(a, a); v != 1 {
		t.Errorf("expected 1 for identical regions, got %f", v)
	}
	if v := iou(a, Region{X: 20, Y: 20, Width: 10, Height: 10}); v != 0 {
		t.Errorf("expected 0 for disjoint regions, got %f", v)
	}
	if v := iou(a, Region{X: 5, Y: 0, Width: 10, Height: 10}); v < 0.33 || v > 0.34 {
		t.Errorf("expected 1/3, got %f", v)
	}
}

func TestScaleRegion(t *testing.T) {
	r := scaleRegion(Region{X: 10, Y: 5, Width: 30, Height: 7, Score: 0.2}, 2.5)
	if r.X != 25 || r.Y != 13 || r.Width != 75 || r.Height != 18 || r.Score != 0.2 {
		t.Errorf("unexpected scaled region %+v", r)
	}
}

func BenchmarkDetectRegions(b *testing.B) {
	detector := New()
	img := createTestImage(800, 400)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = detector.DetectRegions(ctx, img)
	}
}
