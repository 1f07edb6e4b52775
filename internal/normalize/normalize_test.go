package normalize

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/soaravant/DigitRecognizer/internal/ink"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// inkSpan returns the width and height of the region where tensor values
// exceed the threshold.
func inkSpan(t *tensor.Tensor, thresh float32) (w, h int) {
	minX, minY := t.W, t.H
	maxX, maxY := -1, -1
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			if t.At(y, x) <= thresh {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return 0, 0
	}
	return maxX - minX + 1, maxY - minY + 1
}

func TestNormalizeBlankReturnsNil(t *testing.T) {
	bm := ink.NewBitmap(280, 280)
	if got := Default().Normalize(bm); got != nil {
		t.Fatalf("Normalize(blank) = %v, want nil", got)
	}
	if got := Default().Normalize(nil); got != nil {
		t.Fatalf("Normalize(nil) = %v, want nil", got)
	}
}

func TestNormalizeDimensions(t *testing.T) {
	bm := ink.NewBitmap(280, 280)
	bm.StrokeStart(100, 80)
	bm.StrokeTo(160, 200)
	bm.StrokeEnd()

	n := Default()
	out := n.Normalize(bm)
	if out == nil {
		t.Fatal("Normalize returned nil for inked bitmap")
	}
	if out.H != n.TargetSize || out.W != n.TargetSize {
		t.Fatalf("output %dx%d, want %dx%d", out.H, out.W, n.TargetSize, n.TargetSize)
	}
	if out.Sum() <= 0 {
		t.Fatalf("output mass = %v, want > 0", out.Sum())
	}
	for i, v := range out.Data {
		if v < 0 || v > 1 {
			t.Fatalf("Data[%d] = %v, want within [0,1]", i, v)
		}
	}
}

func TestNormalizeRecentersMass(t *testing.T) {
	// Asymmetric ink far from the canvas center: a heavy blob with a light
	// satellite. Mass centering should land the centroid on the middle of
	// the frame regardless.
	bm := ink.NewBitmap(280, 280)
	bm.SetBrush(34)
	bm.Dot(70, 70)
	bm.SetBrush(10)
	bm.Dot(130, 120)

	out := Default().Normalize(bm)
	if out == nil {
		t.Fatal("Normalize returned nil")
	}
	cy, cx := out.Centroid()
	center := float64(out.H-1) / 2
	if math.Abs(cy-center) > 1 || math.Abs(cx-center) > 1 {
		t.Fatalf("centroid (%.2f, %.2f), want within 1px of (%.1f, %.1f)", cy, cx, center, center)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	bm := ink.NewBitmap(280, 280)
	bm.StrokeStart(60, 60)
	bm.StrokeTo(200, 90)
	bm.StrokeTo(120, 220)
	bm.StrokeEnd()

	n := Default()
	a := n.Normalize(bm)
	b := n.Normalize(bm)
	if a == nil || b == nil {
		t.Fatal("Normalize returned nil")
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Data[%d] differs between runs: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
}

func TestNormalizePreservesAspect(t *testing.T) {
	// A tall thin stroke must stay tall and thin: uniform scaling, no
	// stretching to fill the square.
	bm := ink.NewBitmap(280, 280)
	bm.SetBrush(8)
	bm.StrokeStart(140, 40)
	bm.StrokeTo(140, 240)
	bm.StrokeEnd()

	n := Default()
	out := n.Normalize(bm)
	if out == nil {
		t.Fatal("Normalize returned nil")
	}
	w, h := inkSpan(out, 0.2)
	wantH := int(float64(n.TargetSize) * n.FitRatio)
	if h < wantH-3 {
		t.Errorf("ink height = %d, want >= %d", h, wantH-3)
	}
	if w > 6 {
		t.Errorf("ink width = %d, want <= 6 for a thin stroke", w)
	}
}

func TestNormalizeSingleDot(t *testing.T) {
	bm := ink.NewBitmap(280, 280)
	bm.SetBrush(ink.MinBrush)
	bm.Dot(5, 5)

	out := Default().Normalize(bm)
	if out == nil {
		t.Fatal("Normalize returned nil for a single dot")
	}
	if out.Sum() <= 0 {
		t.Fatalf("output mass = %v, want > 0", out.Sum())
	}
}

func TestNormalizeImageGraySource(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 30; y < 60; y++ {
		for x := 40; x < 52; x++ {
			img.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	out := Default().NormalizeImage(img)
	if out == nil {
		t.Fatal("NormalizeImage returned nil for gray source with ink")
	}
	if out.H != 28 || out.W != 28 {
		t.Fatalf("output %dx%d, want 28x28", out.H, out.W)
	}
}

func TestNormalizeWithoutCentering(t *testing.T) {
	bm := ink.NewBitmap(280, 280)
	bm.SetBrush(20)
	bm.Dot(50, 50)

	n := &Normalizer{TargetSize: 28, FitRatio: 0.75, Padding: 6, Centering: false}
	out := n.Normalize(bm)
	if out == nil {
		t.Fatal("Normalize returned nil")
	}
	if out.H != 28 || out.W != 28 {
		t.Fatalf("output %dx%d, want 28x28", out.H, out.W)
	}
	if out.Sum() <= 0 {
		t.Fatalf("output mass = %v, want > 0", out.Sum())
	}
}
