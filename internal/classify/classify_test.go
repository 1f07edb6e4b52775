package classify

import (
	"math"
	"testing"

	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// ring draws an annulus of full-intensity ink.
func ring(dst *tensor.Tensor, cx, cy, rOut, rIn float64) {
	for y := 0; y < dst.H; y++ {
		for x := 0; x < dst.W; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if d <= rOut && d >= rIn {
				dst.Set(y, x, 1)
			}
		}
	}
}

// block fills the rectangle [x0,x1] x [y0,y1] with ink.
func block(dst *tensor.Tensor, x0, x1, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dst.Set(y, x, 1)
		}
	}
}

func loopTensor() *tensor.Tensor {
	t := tensor.New(28, 28)
	ring(t, 13.5, 13.5, 10, 6)
	return t
}

func TestPredictLoopIsZero(t *testing.T) {
	res := NewSeeded(1).Predict(loopTensor())
	if res.Top().Digit != 0 {
		t.Fatalf("loop top digit = %d, want 0 (result %v)", res.Top().Digit, res)
	}
	if res.Top().Probability <= 0.3 {
		t.Fatalf("loop top probability = %v, want > 0.3", res.Top().Probability)
	}
}

func TestPredictDoubleLoopIsEight(t *testing.T) {
	tn := tensor.New(28, 28)
	ring(tn, 13.5, 7.5, 5.5, 3)
	ring(tn, 13.5, 20.5, 5.5, 3)

	res := NewSeeded(1).Predict(tn)
	if res.Top().Digit != 8 {
		t.Fatalf("double loop top digit = %d, want 8 (result %v)", res.Top().Digit, res)
	}
	if res.Top().Probability <= 0.3 {
		t.Fatalf("double loop top probability = %v, want > 0.3", res.Top().Probability)
	}
}

func TestPredictVerticalStrokeIsOne(t *testing.T) {
	tn := tensor.New(28, 28)
	block(tn, 13, 15, 4, 24)

	res := NewSeeded(1).Predict(tn)
	if res.Top().Digit != 1 {
		t.Fatalf("vertical stroke top digit = %d, want 1 (result %v)", res.Top().Digit, res)
	}
	if res.Top().Probability <= 0.3 {
		t.Fatalf("vertical stroke top probability = %v, want > 0.3", res.Top().Probability)
	}
}

func TestPredictBlankIsUniform(t *testing.T) {
	res := NewSeeded(1).Predict(tensor.New(28, 28))
	for _, s := range res {
		if math.Abs(s.Probability-0.1) > 1e-9 {
			t.Fatalf("blank probability for %d = %v, want 0.1", s.Digit, s.Probability)
		}
	}

	res = NewSeeded(1).Predict(nil)
	if math.Abs(res.Top().Probability-0.1) > 1e-9 {
		t.Fatalf("nil tensor top probability = %v, want 0.1", res.Top().Probability)
	}
}

func TestPredictDeterministicWithSeed(t *testing.T) {
	a := NewSeeded(42).Predict(loopTensor())
	b := NewSeeded(42).Predict(loopTensor())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded runs differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNoiseNeverFlipsWinner(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		res := NewSeeded(seed).Predict(loopTensor())
		if res.Top().Digit != 0 {
			t.Fatalf("seed %d: loop top digit = %d, want 0", seed, res.Top().Digit)
		}
	}
}

func TestPredictIsValidDistribution(t *testing.T) {
	res := NewSeeded(7).Predict(loopTensor())
	if err := res.Validate(); err != nil {
		t.Fatalf("Predict produced invalid distribution: %v", err)
	}
}

func TestExtractLoopFeatures(t *testing.T) {
	f, ok := Extract(loopTensor())
	if !ok {
		t.Fatal("Extract returned ok=false for inked tensor")
	}
	if f.Holes != 1 {
		t.Errorf("Holes = %d, want 1", f.Holes)
	}
	if f.HoleY < 0.4 || f.HoleY > 0.6 {
		t.Errorf("HoleY = %v, want near 0.5", f.HoleY)
	}
	if f.MirrorSym < 0.8 {
		t.Errorf("MirrorSym = %v, want >= 0.8 for a centered ring", f.MirrorSym)
	}
	if f.Aspect < 0.9 || f.Aspect > 1.1 {
		t.Errorf("Aspect = %v, want near 1 for a ring", f.Aspect)
	}
}

func TestExtractStrokeFeatures(t *testing.T) {
	tn := tensor.New(28, 28)
	block(tn, 13, 15, 4, 24)

	f, ok := Extract(tn)
	if !ok {
		t.Fatal("Extract returned ok=false for inked tensor")
	}
	if f.Holes != 0 {
		t.Errorf("Holes = %d, want 0", f.Holes)
	}
	if f.Aspect > 0.3 {
		t.Errorf("Aspect = %v, want < 0.3 for a thin stroke", f.Aspect)
	}
	if f.RowRunsMax != 1 {
		t.Errorf("RowRunsMax = %d, want 1", f.RowRunsMax)
	}
}

func TestExtractBlank(t *testing.T) {
	if _, ok := Extract(tensor.New(28, 28)); ok {
		t.Error("Extract(blank) ok = true, want false")
	}
	if _, ok := Extract(nil); ok {
		t.Error("Extract(nil) ok = true, want false")
	}
}

func TestFiredNamesMatchedRules(t *testing.T) {
	f, ok := Extract(loopTensor())
	if !ok {
		t.Fatal("Extract returned ok=false")
	}
	names := NewSeeded(1).Fired(f)
	found := false
	for _, n := range names {
		if n == "central-hole-symmetric" {
			found = true
		}
	}
	if !found {
		t.Errorf("Fired() = %v, want to include central-hole-symmetric", names)
	}
}
