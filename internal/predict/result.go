// Package predict defines the ranked prediction result shared by the neural
// inference engine and the heuristic fallback classifier.
package predict

import (
	"fmt"
	"sort"
)

// NumClasses is the number of digit classes (0 through 9).
const NumClasses = 10

// Score pairs a digit class with its probability.
type Score struct {
	Digit       int     `json:"digit"`
	Probability float64 `json:"probability"`
}

// Result is a full 10-way prediction, sorted descending by probability.
// Probabilities are non-negative and sum to 1.
type Result []Score

// FromProbs builds a Result from raw per-digit values indexed by digit.
// Negative values are clamped to zero and the distribution is renormalized;
// an all-zero input yields the uniform distribution. Entries are sorted
// descending by probability with ties broken by ascending digit.
func FromProbs(probs []float64) Result {
	r := make(Result, NumClasses)
	var sum float64
	for d := 0; d < NumClasses; d++ {
		var p float64
		if d < len(probs) {
			p = probs[d]
		}
		if p < 0 {
			p = 0
		}
		r[d] = Score{Digit: d, Probability: p}
		sum += p
	}

	if sum <= 0 {
		for d := range r {
			r[d].Probability = 1.0 / NumClasses
		}
	} else {
		for d := range r {
			r[d].Probability /= sum
		}
	}

	sort.Slice(r, func(i, j int) bool {
		if r[i].Probability != r[j].Probability {
			return r[i].Probability > r[j].Probability
		}
		return r[i].Digit < r[j].Digit
	})
	return r
}

// Uniform returns the maximum-entropy result, used when a backend has no
// signal to offer (blank input, no matches).
func Uniform() Result {
	return FromProbs(nil)
}

// Top returns the highest-ranked score.
func (r Result) Top() Score {
	if len(r) == 0 {
		return Score{}
	}
	return r[0]
}

// Probability returns the probability assigned to the given digit, or zero
// if the digit is not present.
func (r Result) Probability(digit int) float64 {
	for _, s := range r {
		if s.Digit == digit {
			return s.Probability
		}
	}
	return 0
}

// Validate checks the Result contract: exactly 10 entries covering each digit
// once, non-negative probabilities summing to 1 within tolerance, sorted in
// non-increasing order.
func (r Result) Validate() error {
	if len(r) != NumClasses {
		return fmt.Errorf("result has %d entries, want %d", len(r), NumClasses)
	}
	var seen [NumClasses]bool
	var sum float64
	for i, s := range r {
		if s.Digit < 0 || s.Digit >= NumClasses {
			return fmt.Errorf("entry %d has digit %d out of range", i, s.Digit)
		}
		if seen[s.Digit] {
			return fmt.Errorf("digit %d appears more than once", s.Digit)
		}
		seen[s.Digit] = true
		if s.Probability < 0 {
			return fmt.Errorf("digit %d has negative probability %v", s.Digit, s.Probability)
		}
		if i > 0 && s.Probability > r[i-1].Probability {
			return fmt.Errorf("entries not sorted: %v before %v", r[i-1].Probability, s.Probability)
		}
		sum += s.Probability
	}
	if sum < 1-1e-6 || sum > 1+1e-6 {
		return fmt.Errorf("probabilities sum to %v, want 1", sum)
	}
	return nil
}
