package tensor

import (
	"math"
	"testing"
)

func TestNewClampsDimensions(t *testing.T) {
	tn := New(0, -3)
	if tn.H != 1 || tn.W != 1 {
		t.Errorf("New(0, -3) dims = %dx%d, want 1x1", tn.H, tn.W)
	}
	if len(tn.Data) != 1 {
		t.Errorf("New(0, -3) len(Data) = %d, want 1", len(tn.Data))
	}
}

func TestSumAndAt(t *testing.T) {
	tn := New(2, 3)
	tn.Set(0, 0, 0.5)
	tn.Set(1, 2, 0.25)

	if got := tn.At(1, 2); got != 0.25 {
		t.Errorf("At(1, 2) = %v, want 0.25", got)
	}
	if got := tn.Sum(); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Sum() = %v, want 0.75", got)
	}
}

func TestCentroidSinglePixel(t *testing.T) {
	tn := New(10, 10)
	tn.Set(3, 7, 1)

	cy, cx := tn.Centroid()
	if cy != 3 || cx != 7 {
		t.Errorf("Centroid() = (%v, %v), want (3, 7)", cy, cx)
	}
}

func TestCentroidEmptyReturnsCenter(t *testing.T) {
	tn := New(5, 9)
	cy, cx := tn.Centroid()
	if cy != 2 || cx != 4 {
		t.Errorf("Centroid() of empty = (%v, %v), want (2, 4)", cy, cx)
	}
}

func TestResampleIdentity(t *testing.T) {
	tn := New(4, 4)
	for i := range tn.Data {
		tn.Data[i] = float32(i) / 16
	}

	out := tn.Resample(4, 4)
	for i := range tn.Data {
		if out.Data[i] != tn.Data[i] {
			t.Fatalf("Resample(4, 4) differs at %d: %v != %v", i, out.Data[i], tn.Data[i])
		}
	}
}

func TestResampleBilinearValues(t *testing.T) {
	// 2x2 checkerboard upsampled to 4x4. With pixel-center alignment the
	// corners clamp to the nearest source pixel and interior cells blend.
	tn := New(2, 2)
	tn.Set(0, 0, 0)
	tn.Set(0, 1, 1)
	tn.Set(1, 0, 1)
	tn.Set(1, 1, 0)

	out := tn.Resample(4, 4)

	cases := []struct {
		y, x int
		want float64
	}{
		{0, 0, 0},     // clamps to src(0,0)
		{0, 3, 1},     // clamps to src(0,1)
		{3, 0, 1},     // clamps to src(1,0)
		{3, 3, 0},     // clamps to src(1,1)
		{1, 1, 0.375}, // fy=fx=0.25 blend
		{2, 2, 0.375}, // fy=fx=0.75 blend
	}
	for _, c := range cases {
		got := float64(out.At(c.y, c.x))
		if math.Abs(got-c.want) > 1e-6 {
			t.Errorf("Resample(4, 4).At(%d, %d) = %v, want %v", c.y, c.x, got, c.want)
		}
	}
}

func TestResampleDownThenShapeExact(t *testing.T) {
	tn := New(28, 28)
	tn.Set(14, 14, 1)

	out := tn.Resample(50, 50)
	if out.H != 50 || out.W != 50 {
		t.Fatalf("Resample(50, 50) dims = %dx%d, want 50x50", out.H, out.W)
	}
	if out.Sum() <= 0 {
		t.Errorf("Resample(50, 50).Sum() = %v, want > 0", out.Sum())
	}
}

func TestImageRoundTripConvention(t *testing.T) {
	tn := New(2, 2)
	tn.Set(0, 0, 1)   // full ink -> black
	tn.Set(1, 1, 0.5) // half ink -> mid gray

	img := tn.Image()
	if got := img.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("Image() full-ink pixel = %d, want 0 (black)", got)
	}
	if got := img.GrayAt(1, 0).Y; got != 255 {
		t.Errorf("Image() background pixel = %d, want 255 (white)", got)
	}
	if got := img.GrayAt(1, 1).Y; got != 127 {
		t.Errorf("Image() half-ink pixel = %d, want 127", got)
	}
}
