package predict

import (
	"math"
	"testing"
)

func TestFromProbsNormalizesAndSorts(t *testing.T) {
	r := FromProbs([]float64{1, 0, 3, 0, 0, 2, 0, 0, 0, 0})

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if r[0].Digit != 2 || r[1].Digit != 5 || r[2].Digit != 0 {
		t.Errorf("top three digits = %d, %d, %d, want 2, 5, 0", r[0].Digit, r[1].Digit, r[2].Digit)
	}
	if math.Abs(r[0].Probability-0.5) > 1e-9 {
		t.Errorf("top probability = %v, want 0.5", r[0].Probability)
	}
	for i := 1; i < len(r); i++ {
		if r[i].Probability > r[i-1].Probability {
			t.Fatalf("entry %d (%v) ranked above entry %d (%v)", i, r[i].Probability, i-1, r[i-1].Probability)
		}
	}
}

func TestFromProbsClampsNegatives(t *testing.T) {
	r := FromProbs([]float64{-5, 1, 0, 0, 0, 0, 0, 0, 0, 1})

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if got := r.Probability(0); got != 0 {
		t.Errorf("Probability(0) = %v, want 0 after clamping", got)
	}
	if got := r.Probability(1); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Probability(1) = %v, want 0.5", got)
	}
}

func TestFromProbsAllZeroYieldsUniform(t *testing.T) {
	r := FromProbs(make([]float64, 10))

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	for _, s := range r {
		if math.Abs(s.Probability-0.1) > 1e-9 {
			t.Errorf("digit %d probability = %v, want 0.1", s.Digit, s.Probability)
		}
	}
}

func TestFromProbsShortInput(t *testing.T) {
	r := FromProbs([]float64{2, 2})

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if got := r.Probability(9); got != 0 {
		t.Errorf("Probability(9) = %v, want 0 for missing input", got)
	}
}

func TestUniformTieBreakByDigit(t *testing.T) {
	r := Uniform()
	for i, s := range r {
		if s.Digit != i {
			t.Errorf("entry %d digit = %d, want %d (ascending tie break)", i, s.Digit, i)
		}
	}
}

func TestTopAndProbability(t *testing.T) {
	r := FromProbs([]float64{0, 0, 0, 0, 0, 0, 0, 4, 0, 1})

	if top := r.Top(); top.Digit != 7 {
		t.Errorf("Top().Digit = %d, want 7", top.Digit)
	}
	if got := r.Probability(9); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Probability(9) = %v, want 0.2", got)
	}
}

func TestValidateRejectsBadResults(t *testing.T) {
	cases := []struct {
		name string
		r    Result
	}{
		{"too few entries", Result{{Digit: 0, Probability: 1}}},
		{"duplicate digit", func() Result {
			r := Uniform()
			r[1].Digit = r[0].Digit
			return r
		}()},
		{"sum off", func() Result {
			r := Uniform()
			r[0].Probability = 0.5
			return r
		}()},
		{"unsorted", Result{
			{Digit: 0, Probability: 0.05}, {Digit: 1, Probability: 0.95},
			{Digit: 2, Probability: 0}, {Digit: 3, Probability: 0},
			{Digit: 4, Probability: 0}, {Digit: 5, Probability: 0},
			{Digit: 6, Probability: 0}, {Digit: 7, Probability: 0},
			{Digit: 8, Probability: 0}, {Digit: 9, Probability: 0},
		}},
	}
	for _, c := range cases {
		if err := c.r.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", c.name)
		}
	}
}
