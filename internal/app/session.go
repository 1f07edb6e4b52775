// Package app wires the drawing pad to the recognizers: it owns the ink
// bitmap, debounces predictions while the user draws, and publishes results
// through events.
package app

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/ink"
	"github.com/soaravant/DigitRecognizer/internal/normalize"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
)

// Mode selects what happens after a drawing settles.
type Mode int

const (
	// ModeSingle predicts with the selected model only.
	ModeSingle Mode = iota

	// ModeCompare runs the drawing through the whole catalog.
	ModeCompare
)

func (m Mode) String() string {
	if m == ModeCompare {
		return "compare"
	}
	return "single"
}

// EventType identifies session events.
type EventType int

const (
	EventPrediction EventType = iota
	EventComparison
	EventCleared
	EventModelChanged
	EventModeChanged
	EventEngineState
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// PredictionEvent is the payload of EventPrediction.
type PredictionEvent struct {
	ModelID  string
	Result   predict.Result
	Fallback bool
}

// Session holds one user's drawing and drives recognition. Methods are safe
// for concurrent use; predictions run on their own goroutines and stale
// results are dropped.
type Session struct {
	engine *infer.Engine
	norm   *normalize.Normalizer
	logger *log.Logger

	mu       sync.RWMutex
	bitmap   *ink.Bitmap
	mode     Mode
	modelID  string
	debounce time.Duration
	timer    *time.Timer
	cancel   context.CancelFunc

	// seq stamps each prediction run; only the newest may publish.
	seq atomic.Int64

	listenersMu sync.RWMutex
	listeners   map[EventType][]EventListener
}

// NewSession creates a session over the engine using the given settings.
func NewSession(engine *infer.Engine, cfg *config.Config, logger *log.Logger) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}

	bm := ink.NewBitmap(cfg.Canvas.Width, cfg.Canvas.Height)
	bm.SetBrush(cfg.Canvas.Brush)

	return &Session{
		engine:    engine,
		norm:      cfg.Normalizer(),
		logger:    logger,
		bitmap:    bm,
		modelID:   cfg.Inference.DefaultModel,
		debounce:  cfg.Debounce(),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.listenersMu.RLock()
	listeners := s.listeners[event]
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// InitEngine starts model loading in the background and reports the
// resulting engine state. If the preferred model could not be loaded the
// session follows whichever model the engine activated instead.
func (s *Session) InitEngine(ctx context.Context) {
	go func() {
		if err := s.engine.Init(ctx, s.Model()); err != nil {
			s.logger.Warn("engine init interrupted", "err", err)
			return
		}
		if active := s.engine.ActiveModel(); active != "" && active != s.Model() {
			s.mu.Lock()
			s.modelID = active
			s.mu.Unlock()
			s.Emit(EventModelChanged, active)
		}
		s.Emit(EventEngineState, s.engine.State())
	}()
}

// Engine returns the inference engine the session drives.
func (s *Session) Engine() *infer.Engine { return s.engine }

// Models returns the catalog shown in the model picker.
func (s *Session) Models() []*registry.Descriptor {
	return s.engine.Registry().List()
}

// Model returns the selected model ID.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelID
}

// SetModel selects the model used in single mode. With ink on the canvas a
// new prediction starts immediately.
func (s *Session) SetModel(id string) error {
	if _, err := s.engine.Registry().Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	s.modelID = id
	redo := !s.bitmap.Empty()
	if redo {
		s.scheduleLocked(0)
	}
	s.mu.Unlock()

	s.Emit(EventModelChanged, id)
	return nil
}

// Mode returns the current recognition mode.
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches between single and compare mode. With ink on the canvas
// a new run starts immediately.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	redo := !s.bitmap.Empty()
	if redo {
		s.scheduleLocked(0)
	}
	s.mu.Unlock()

	s.Emit(EventModeChanged, m)
}

// SetBrush adjusts the stroke width for subsequent strokes.
func (s *Session) SetBrush(px int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.SetBrush(px)
}

// Brush returns the current stroke width.
func (s *Session) Brush() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.Brush()
}

// StrokeStart begins a stroke at canvas coordinates.
func (s *Session) StrokeStart(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.StrokeStart(x, y)
}

// StrokeTo extends the current stroke.
func (s *Session) StrokeTo(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.StrokeTo(x, y)
}

// StrokeEnd finishes the stroke and schedules recognition after the
// debounce window. Further strokes inside the window push it out.
func (s *Session) StrokeEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.StrokeEnd()
	s.scheduleLocked(s.debounce)
}

// Dot stamps a single touch and schedules recognition.
func (s *Session) Dot(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitmap.Dot(x, y)
	s.scheduleLocked(s.debounce)
}

// Clear wipes the canvas, cancels any pending or in-flight recognition, and
// notifies listeners.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq.Add(1)
	s.bitmap.Clear()
	s.mu.Unlock()

	s.Emit(EventCleared, nil)
}

// Empty reports whether the canvas holds any ink.
func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.Empty()
}

// Image renders the current canvas for display.
func (s *Session) Image() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.Image()
}

// CanvasSize returns the ink canvas dimensions in pixels.
func (s *Session) CanvasSize() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bitmap.W, s.bitmap.H
}

// scheduleLocked arms the debounce timer. Callers hold s.mu.
func (s *Session) scheduleLocked(d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.run)
}

// run snapshots the canvas and kicks off a recognition goroutine stamped
// with a fresh sequence number. Any older in-flight run is cancelled.
func (s *Session) run() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	seq := s.seq.Add(1)
	snap := s.bitmap.Snapshot()
	mode := s.mode
	modelID := s.modelID
	s.mu.Unlock()

	go s.recognize(ctx, seq, snap, mode, modelID)
}

// recognize normalizes the snapshot and publishes exactly one event unless
// the run went stale. Failures keep the previous result on screen and emit
// EventError instead.
func (s *Session) recognize(ctx context.Context, seq int64, bm *ink.Bitmap, mode Mode, modelID string) {
	t := s.norm.Normalize(bm)
	if t == nil {
		if s.seq.Load() == seq {
			s.Emit(EventCleared, nil)
		}
		return
	}

	switch mode {
	case ModeCompare:
		c := compare.All(ctx, s.engine, t)
		if ctx.Err() != nil || s.seq.Load() != seq {
			return
		}
		s.Emit(EventComparison, c)
	default:
		res, err := s.engine.Predict(ctx, modelID, t)
		if ctx.Err() != nil || s.seq.Load() != seq {
			return
		}
		if err != nil {
			s.logger.Error("prediction failed", "model", modelID, "err", err)
			s.Emit(EventError, err)
			return
		}
		s.Emit(EventPrediction, &PredictionEvent{
			ModelID:  modelID,
			Result:   res,
			Fallback: s.engine.State() == infer.StateFallbackActive,
		})
	}
}
