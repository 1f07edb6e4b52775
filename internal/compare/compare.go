// Package compare runs one drawing through every registered recognizer and
// ranks the results for the side-by-side view.
package compare

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// Entry is one recognizer's contribution to a comparison.
type Entry struct {
	ModelID  string           `json:"model_id"`
	Label    string           `json:"label"`
	Runtime  registry.Runtime `json:"runtime"`
	Accuracy float64          `json:"accuracy,omitempty"`

	Result predict.Result `json:"result,omitempty"`
	Err    string         `json:"error,omitempty"`

	// Fallback marks results produced by the heuristic recognizer instead
	// of the model named in ModelID.
	Fallback bool `json:"fallback,omitempty"`

	ElapsedMS float64 `json:"elapsed_ms"`
}

// Ok reports whether the entry holds a usable result.
func (e *Entry) Ok() bool { return e.Err == "" }

// Comparison is the ranked outcome of running one drawing through the whole
// catalog.
type Comparison struct {
	// Entries are ranked: usable results first by top-digit confidence,
	// failed models last in catalog order.
	Entries []Entry `json:"entries"`

	// Fallback is true when no model was available and the heuristic
	// recognizer answered for the entire catalog.
	Fallback bool `json:"fallback,omitempty"`

	ElapsedMS float64 `json:"elapsed_ms"`
}

// Consensus returns the digit most of the successful entries agree on and
// the fraction that voted for it. ok is false when nothing succeeded. Ties
// go to the smaller digit so the answer is deterministic.
func (c *Comparison) Consensus() (digit int, agreement float64, ok bool) {
	var votes [predict.NumClasses]int
	total := 0
	for i := range c.Entries {
		if !c.Entries[i].Ok() {
			continue
		}
		votes[c.Entries[i].Result.Top().Digit]++
		total++
	}
	if total == 0 {
		return 0, 0, false
	}

	best := 0
	for d := 1; d < predict.NumClasses; d++ {
		if votes[d] > votes[best] {
			best = d
		}
	}
	return best, float64(votes[best]) / float64(total), true
}

// All scores the tensor with every model in the engine's catalog, one
// goroutine per model. In fallback mode the heuristic runs once and every
// entry shares its result, so the view still shows a full table.
func All(ctx context.Context, e *infer.Engine, t *tensor.Tensor) *Comparison {
	start := time.Now()
	descs := e.Registry().List()

	if e.State() == infer.StateFallbackActive {
		return fallbackComparison(e, descs, t, start)
	}

	entries := make([]Entry, len(descs))
	var wg sync.WaitGroup
	for i, d := range descs {
		wg.Add(1)
		go func(i int, d *registry.Descriptor) {
			defer wg.Done()
			began := time.Now()
			res, err := e.Predict(ctx, d.ID, t)
			ent := Entry{
				ModelID:   d.ID,
				Label:     d.Label,
				Runtime:   d.Runtime,
				Accuracy:  d.Accuracy,
				ElapsedMS: millis(time.Since(began)),
			}
			if err != nil {
				ent.Err = err.Error()
			} else {
				ent.Result = res
			}
			entries[i] = ent
		}(i, d)
	}
	wg.Wait()

	rank(entries)
	return &Comparison{Entries: entries, ElapsedMS: millis(time.Since(start))}
}

func fallbackComparison(e *infer.Engine, descs []*registry.Descriptor, t *tensor.Tensor, start time.Time) *Comparison {
	began := time.Now()
	res := e.FallbackPredict(t)
	elapsed := millis(time.Since(began))

	entries := make([]Entry, len(descs))
	for i, d := range descs {
		entries[i] = Entry{
			ModelID:   d.ID,
			Label:     d.Label,
			Runtime:   d.Runtime,
			Accuracy:  d.Accuracy,
			Result:    res,
			Fallback:  true,
			ElapsedMS: elapsed,
		}
	}
	return &Comparison{Entries: entries, Fallback: true, ElapsedMS: millis(time.Since(start))}
}

// rank orders usable entries by top-digit confidence, keeping catalog order
// for ties and pushing failed models to the end.
func rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.Ok() != b.Ok() {
			return a.Ok()
		}
		if !a.Ok() {
			return false
		}
		return a.Result.Top().Probability > b.Result.Top().Probability
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
