package infer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/classify"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// State describes the engine lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFallbackActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFallbackActive:
		return "fallback"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Engine resolves registry descriptors to loaded models and runs predictions.
// Models load lazily on first use and stay cached; concurrent requests for
// the same model share one load. Safe for concurrent use.
type Engine struct {
	reg      *registry.Registry
	opts     Options
	fallback *classify.Classifier
	logger   *log.Logger

	mu     sync.Mutex
	models map[string]*entry
	state  State
	active string
}

// entry tracks one memoized load. done closes when the load finishes; model
// and err are written before the close.
type entry struct {
	done  chan struct{}
	model Model
	err   error
}

// NewEngine creates an engine over the given registry. The heuristic
// classifier serves predictions when no model can be loaded; nil means a
// time-seeded one.
func NewEngine(reg *registry.Registry, fallback *classify.Classifier, opts Options) *Engine {
	if fallback == nil {
		fallback = classify.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		reg:      reg,
		opts:     opts,
		fallback: fallback,
		logger:   logger,
		models:   make(map[string]*entry),
		state:    StateUninitialized,
	}
}

// Registry returns the model catalog the engine serves.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ActiveModel returns the model that satisfied startup, or "" before Init
// and in fallback mode.
func (e *Engine) ActiveModel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Loaded reports whether the model is resident in memory.
func (e *Engine) Loaded(id string) bool {
	e.mu.Lock()
	ent, ok := e.models[id]
	e.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-ent.done:
		return ent.err == nil
	default:
		return false
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Init loads and warms the first usable model, preferring the given ID and
// then walking the registry in catalog order. When every candidate fails the
// engine enters fallback mode and predictions come from the heuristic
// recognizer; that is still a successful initialization. The only error
// returned is context cancellation.
func (e *Engine) Init(ctx context.Context, preferred string) error {
	e.setState(StateLoading)

	candidates := make([]string, 0, e.reg.Len())
	if preferred != "" {
		if _, err := e.reg.Get(preferred); err == nil {
			candidates = append(candidates, preferred)
		} else {
			e.logger.Warn("preferred model not in catalog", "model", preferred)
		}
	}
	for _, id := range e.reg.IDs() {
		if id != preferred {
			candidates = append(candidates, id)
		}
	}

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			e.setState(StateUninitialized)
			return err
		}
		if _, err := e.Model(ctx, id); err != nil {
			e.logger.Warn("model unavailable", "model", id, "err", err)
			continue
		}
		e.mu.Lock()
		e.active = id
		e.state = StateReady
		e.mu.Unlock()
		e.logger.Info("inference ready", "model", id)
		return nil
	}

	e.setState(StateFallbackActive)
	e.logger.Warn("no model could be loaded, heuristic recognizer active")
	return nil
}

// Model returns the loaded, warmed model for the given ID, loading it on
// first use. Concurrent callers share a single load; a failed load is not
// cached, so a later call retries.
func (e *Engine) Model(ctx context.Context, id string) (Model, error) {
	d, err := e.reg.Get(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if ent, ok := e.models[id]; ok {
		e.mu.Unlock()
		select {
		case <-ent.done:
			if ent.err != nil {
				return nil, ent.err
			}
			return ent.model, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	ent := &entry{done: make(chan struct{})}
	e.models[id] = ent
	e.mu.Unlock()

	model, err := e.loadAndWarm(ctx, d)
	if err != nil {
		ent.err = &LoadError{ModelID: id, Err: err}
		e.mu.Lock()
		delete(e.models, id)
		e.mu.Unlock()
		close(ent.done)
		return nil, ent.err
	}
	ent.model = model
	close(ent.done)
	return model, nil
}

// loadAndWarm instantiates the model and verifies it can score a blank
// tensor. A model that cannot survive warm-up is closed and never cached.
func (e *Engine) loadAndWarm(ctx context.Context, d *registry.Descriptor) (Model, error) {
	loader := loaderFor(d.Runtime)
	if loader == nil {
		return nil, fmt.Errorf("no loader registered for runtime %q", d.Runtime)
	}

	m, err := loader(ctx, d, e.opts)
	if err != nil {
		return nil, err
	}

	warm := tensor.New(d.Input[0], d.Input[1])
	res, err := m.Predict(ctx, warm)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("warm-up failed: %w", err)
	}
	if err := res.Validate(); err != nil {
		m.Close()
		return nil, fmt.Errorf("warm-up produced an invalid distribution: %w", err)
	}

	e.logger.Debug("model loaded", "model", d.ID, "runtime", d.Runtime)
	return m, nil
}

// Predict scores a normalized tensor with the named model, resampling it to
// the model's declared input shape first. In fallback mode the heuristic
// recognizer answers regardless of the requested model.
func (e *Engine) Predict(ctx context.Context, id string, t *tensor.Tensor) (predict.Result, error) {
	if t == nil {
		return nil, &InferenceError{ModelID: id, Err: errors.New("nil input tensor")}
	}

	if e.State() == StateFallbackActive {
		return e.fallback.Predict(t), nil
	}

	d, err := e.reg.Get(id)
	if err != nil {
		return nil, err
	}
	m, err := e.Model(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := m.Predict(ctx, t.Resample(d.Input[0], d.Input[1]))
	if err != nil {
		return nil, &InferenceError{ModelID: id, Err: err}
	}
	return res, nil
}

// FallbackPredict runs the heuristic recognizer directly, regardless of
// engine state.
func (e *Engine) FallbackPredict(t *tensor.Tensor) predict.Result {
	return e.fallback.Predict(t)
}

// Close releases every loaded model. In-flight loads are waited for so no
// model leaks.
func (e *Engine) Close() error {
	e.mu.Lock()
	entries := make([]*entry, 0, len(e.models))
	for _, ent := range e.models {
		entries = append(entries, ent)
	}
	e.models = make(map[string]*entry)
	e.state = StateUninitialized
	e.active = ""
	e.mu.Unlock()

	var first error
	for _, ent := range entries {
		<-ent.done
		if ent.model == nil {
			continue
		}
		if err := ent.model.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
