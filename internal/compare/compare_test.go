package compare

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/classify"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// fixedModel always answers with the same distribution.
type fixedModel struct {
	res predict.Result
}

func (m fixedModel) Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error) {
	return m.res, nil
}

func (m fixedModel) Close() error { return nil }

func confident(digit int, p float64) predict.Result {
	probs := make([]float64, predict.NumClasses)
	rest := (1 - p) / float64(predict.NumClasses-1)
	for i := range probs {
		probs[i] = rest
	}
	probs[digit] = p
	return predict.FromProbs(probs)
}

func quietOpts() infer.Options {
	return infer.Options{Logger: log.New(io.Discard)}
}

func desc(id string, rt registry.Runtime) *registry.Descriptor {
	return &registry.Descriptor{ID: id, Label: id, Runtime: rt, Input: [2]int{28, 28}, Channels: 1}
}

func inkTensor() *tensor.Tensor {
	tn := tensor.New(28, 28)
	for y := 4; y <= 24; y++ {
		for x := 13; x <= 15; x++ {
			tn.Set(y, x, 1)
		}
	}
	return tn
}

func TestAllRanksByConfidence(t *testing.T) {
	results := map[string]predict.Result{
		"low":  confident(2, 0.6),
		"high": confident(5, 0.9),
	}
	rt := registry.Runtime("cmp-" + t.Name())
	infer.RegisterLoader(rt, func(ctx context.Context, d *registry.Descriptor, opts infer.Options) (infer.Model, error) {
		res, ok := results[d.ID]
		if !ok {
			return nil, errors.New("artifact missing")
		}
		return fixedModel{res: res}, nil
	})

	reg := registry.New()
	reg.Add(desc("low", rt))
	reg.Add(desc("broken", rt))
	reg.Add(desc("high", rt))

	e := infer.NewEngine(reg, classify.NewSeeded(1), quietOpts())
	if err := e.Init(context.Background(), "low"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	c := All(context.Background(), e, inkTensor())
	if len(c.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(c.Entries))
	}
	if c.Fallback {
		t.Error("Fallback = true for a ready engine")
	}

	if got := c.Entries[0].ModelID; got != "high" {
		t.Errorf("rank 1 = %q, want %q", got, "high")
	}
	if got := c.Entries[1].ModelID; got != "low" {
		t.Errorf("rank 2 = %q, want %q", got, "low")
	}
	last := c.Entries[2]
	if last.ModelID != "broken" || last.Ok() {
		t.Errorf("rank 3 = %+v, want the failed model with an error", last)
	}
	if last.Result != nil {
		t.Errorf("failed entry carries a result: %v", last.Result)
	}

	if c.Entries[0].Result.Top().Digit != 5 {
		t.Errorf("rank 1 top digit = %d, want 5", c.Entries[0].Result.Top().Digit)
	}
}

func TestAllFallbackSharesOneResult(t *testing.T) {
	rt := registry.Runtime("cmp-" + t.Name())
	infer.RegisterLoader(rt, func(ctx context.Context, d *registry.Descriptor, opts infer.Options) (infer.Model, error) {
		return nil, errors.New("artifact missing")
	})

	reg := registry.New()
	reg.Add(desc("a", rt))
	reg.Add(desc("b", rt))
	reg.Add(desc("c", rt))

	e := infer.NewEngine(reg, classify.NewSeeded(1), quietOpts())
	if err := e.Init(context.Background(), ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if e.State() != infer.StateFallbackActive {
		t.Fatalf("State() = %v, want fallback", e.State())
	}

	c := All(context.Background(), e, inkTensor())
	if !c.Fallback {
		t.Fatal("Comparison.Fallback = false in fallback mode")
	}
	if len(c.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want one per registered model", len(c.Entries))
	}
	for i := range c.Entries {
		if !c.Entries[i].Fallback {
			t.Errorf("entry %d Fallback = false", i)
		}
		if !c.Entries[i].Ok() {
			t.Errorf("entry %d unexpectedly failed: %s", i, c.Entries[i].Err)
		}
		for j, s := range c.Entries[i].Result {
			if s != c.Entries[0].Result[j] {
				t.Fatalf("entry %d holds a different result; the heuristic should run once", i)
			}
		}
	}
	if got := c.Entries[0].Result.Top().Digit; got != 1 {
		t.Errorf("fallback top digit = %d, want 1 for a vertical stroke", got)
	}
}

func TestConsensus(t *testing.T) {
	c := &Comparison{Entries: []Entry{
		{ModelID: "a", Result: confident(3, 0.8)},
		{ModelID: "b", Result: confident(3, 0.7)},
		{ModelID: "c", Result: confident(7, 0.9)},
		{ModelID: "d", Err: "broken"},
	}}

	digit, agreement, ok := c.Consensus()
	if !ok {
		t.Fatal("Consensus ok = false")
	}
	if digit != 3 {
		t.Errorf("Consensus digit = %d, want 3", digit)
	}
	if agreement < 0.66 || agreement > 0.67 {
		t.Errorf("Consensus agreement = %v, want 2/3", agreement)
	}
}

func TestConsensusNoResults(t *testing.T) {
	c := &Comparison{Entries: []Entry{{ModelID: "a", Err: "broken"}}}
	if _, _, ok := c.Consensus(); ok {
		t.Error("Consensus ok = true with no usable entries")
	}

	empty := &Comparison{}
	if _, _, ok := empty.Consensus(); ok {
		t.Error("Consensus ok = true for an empty comparison")
	}
}
