package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/classify"
	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// fixedModel answers with a confident digit. Warm-up runs on a blank tensor,
// so only calls with ink are counted and delayed.
type fixedModel struct {
	digit int
	delay time.Duration
	calls atomic.Int32
}

func (m *fixedModel) Predict(ctx context.Context, tn *tensor.Tensor) (predict.Result, error) {
	if tn.Sum() > 0 {
		m.calls.Add(1)
		if m.delay > 0 {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	probs := make([]float64, predict.NumClasses)
	probs[m.digit] = 1
	return predict.FromProbs(probs), nil
}

func (m *fixedModel) Close() error { return nil }

// newTestSession wires a session over a two-model registry whose loader
// hands back the given model instance for both entries.
func newTestSession(t *testing.T, m infer.Model, debounceMS int) *Session {
	rt := registry.Runtime("sess-" + t.Name())
	infer.RegisterLoader(rt, func(ctx context.Context, d *registry.Descriptor, opts infer.Options) (infer.Model, error) {
		return m, nil
	})

	reg := registry.New()
	reg.Add(&registry.Descriptor{ID: "m1", Label: "First", Runtime: rt, Input: [2]int{28, 28}, Channels: 1})
	reg.Add(&registry.Descriptor{ID: "m2", Label: "Second", Runtime: rt, Input: [2]int{28, 28}, Channels: 1})

	engine := infer.NewEngine(reg, classify.NewSeeded(1), infer.Options{Logger: log.New(io.Discard)})
	if err := engine.Init(context.Background(), "m1"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	cfg := config.Default()
	cfg.Inference.DefaultModel = "m1"
	cfg.Inference.DebounceMS = debounceMS

	return NewSession(engine, cfg, log.New(io.Discard))
}

func capture(s *Session, ev EventType) <-chan interface{} {
	ch := make(chan interface{}, 16)
	s.On(ev, func(data interface{}) { ch <- data })
	return ch
}

func drawStroke(s *Session) {
	s.StrokeStart(140, 60)
	s.StrokeTo(140, 220)
	s.StrokeEnd()
}

func waitEvent(t *testing.T, ch <-chan interface{}, what string) interface{} {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestStrokePredictsAfterDebounce(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 20)
	preds := capture(s, EventPrediction)

	drawStroke(s)
	if s.Empty() {
		t.Fatal("Empty() = true after stroke")
	}

	ev := waitEvent(t, preds, "prediction").(*PredictionEvent)
	if ev.ModelID != "m1" {
		t.Errorf("ModelID = %q, want %q", ev.ModelID, "m1")
	}
	if ev.Fallback {
		t.Error("Fallback = true on a ready engine")
	}
	if got := ev.Result.Top().Digit; got != 5 {
		t.Errorf("top digit = %d, want 5", got)
	}
}

func TestRapidStrokesPredictOnce(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 40)
	preds := capture(s, EventPrediction)

	drawStroke(s)
	drawStroke(s)
	drawStroke(s)

	waitEvent(t, preds, "prediction")
	time.Sleep(300 * time.Millisecond)

	if got := m.calls.Load(); got != 1 {
		t.Errorf("model calls = %d, want 1", got)
	}
	if extra := len(preds); extra != 0 {
		t.Errorf("got %d extra prediction events", extra)
	}
}

func TestClearBeforeDebounceCancels(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 60)
	preds := capture(s, EventPrediction)
	cleared := capture(s, EventCleared)

	drawStroke(s)
	s.Clear()

	waitEvent(t, cleared, "cleared event")
	if !s.Empty() {
		t.Error("Empty() = false after Clear")
	}

	time.Sleep(300 * time.Millisecond)
	if got := m.calls.Load(); got != 0 {
		t.Errorf("model calls = %d, want 0", got)
	}
	if len(preds) != 0 {
		t.Error("prediction applied after Clear")
	}
}

func TestClearCancelsInFlightPrediction(t *testing.T) {
	m := &fixedModel{digit: 5, delay: 150 * time.Millisecond}
	s := newTestSession(t, m, 10)
	preds := capture(s, EventPrediction)
	errs := capture(s, EventError)

	drawStroke(s)
	time.Sleep(60 * time.Millisecond)
	s.Clear()

	time.Sleep(400 * time.Millisecond)
	if len(preds) != 0 {
		t.Error("stale prediction applied after Clear")
	}
	if len(errs) != 0 {
		t.Error("cancelled prediction reported as error")
	}
}

func TestStaleRunDropped(t *testing.T) {
	m := &fixedModel{digit: 5, delay: 100 * time.Millisecond}
	s := newTestSession(t, m, 10)
	preds := capture(s, EventPrediction)

	drawStroke(s)
	time.Sleep(40 * time.Millisecond)
	drawStroke(s)

	waitEvent(t, preds, "prediction")
	time.Sleep(300 * time.Millisecond)
	if extra := len(preds); extra != 0 {
		t.Errorf("got %d extra prediction events, want only the newest run applied", extra)
	}
}

func TestSetModelRepredictsImmediately(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 10)
	preds := capture(s, EventPrediction)
	changed := capture(s, EventModelChanged)

	drawStroke(s)
	waitEvent(t, preds, "first prediction")

	if err := s.SetModel("m2"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if got := waitEvent(t, changed, "model change").(string); got != "m2" {
		t.Errorf("EventModelChanged = %q, want %q", got, "m2")
	}

	ev := waitEvent(t, preds, "re-prediction").(*PredictionEvent)
	if ev.ModelID != "m2" {
		t.Errorf("re-prediction ModelID = %q, want %q", ev.ModelID, "m2")
	}
}

func TestSetModelUnknown(t *testing.T) {
	s := newTestSession(t, &fixedModel{digit: 5}, 10)

	err := s.SetModel("nope")
	if !errors.Is(err, registry.ErrUnknownModel) {
		t.Fatalf("SetModel error = %v, want ErrUnknownModel", err)
	}
	if got := s.Model(); got != "m1" {
		t.Errorf("Model() = %q after failed switch, want %q", got, "m1")
	}
}

func TestSetModeCompareRunsCatalog(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 10)
	preds := capture(s, EventPrediction)
	comps := capture(s, EventComparison)

	drawStroke(s)
	waitEvent(t, preds, "single prediction")

	s.SetMode(ModeCompare)
	c := waitEvent(t, comps, "comparison").(*compare.Comparison)
	if len(c.Entries) != 2 {
		t.Fatalf("comparison entries = %d, want 2", len(c.Entries))
	}
	digit, agreement, ok := c.Consensus()
	if !ok || digit != 5 || agreement != 1 {
		t.Errorf("Consensus() = (%d, %v, %v), want (5, 1, true)", digit, agreement, ok)
	}
}

func TestSetModeWithoutInkDoesNothing(t *testing.T) {
	m := &fixedModel{digit: 5}
	s := newTestSession(t, m, 10)
	comps := capture(s, EventComparison)

	s.SetMode(ModeCompare)
	if got := s.Mode(); got != ModeCompare {
		t.Fatalf("Mode() = %v, want %v", got, ModeCompare)
	}

	time.Sleep(150 * time.Millisecond)
	if len(comps) != 0 {
		t.Error("comparison ran on an empty canvas")
	}
	if got := m.calls.Load(); got != 0 {
		t.Errorf("model calls = %d, want 0", got)
	}
}

func TestInitEngineReportsState(t *testing.T) {
	s := newTestSession(t, &fixedModel{digit: 5}, 10)
	states := capture(s, EventEngineState)

	s.InitEngine(context.Background())
	if got := waitEvent(t, states, "engine state").(infer.State); got != infer.StateReady {
		t.Errorf("engine state = %v, want %v", got, infer.StateReady)
	}
}
