package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

const maxBodyBytes = 10 << 20

type modelView struct {
	*registry.Descriptor
	Active bool `json:"active,omitempty"`
	Loaded bool `json:"loaded,omitempty"`
}

type predictResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Model     string         `json:"model"`
	Fallback  bool           `json:"fallback,omitempty"`
	ElapsedMS float64        `json:"elapsed_ms"`
	Result    predict.Result `json:"result"`
}

type consensusView struct {
	Digit     int     `json:"digit"`
	Agreement float64 `json:"agreement"`
}

type compareResponse struct {
	RequestID string `json:"request_id,omitempty"`
	*compare.Comparison
	Consensus *consensusView `json:"consensus,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"status": "ok",
		"engine": s.engine.State().String(),
		"model":  s.engine.ActiveModel(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	active := s.engine.ActiveModel()
	list := s.engine.Registry().List()
	views := make([]modelView, len(list))
	for i, d := range list {
		views[i] = modelView{
			Descriptor: d,
			Active:     d.ID == active,
			Loaded:     s.engine.Loaded(d.ID),
		}
	}
	s.respond(w, http.StatusOK, map[string]interface{}{
		"engine": s.engine.State().String(),
		"models": views,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, http.StatusNotFound, err)
		return
	}
	s.respond(w, http.StatusOK, d)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	t, err := s.decodeDrawing(w, r)
	if err != nil {
		s.respondErr(w, r, http.StatusBadRequest, err)
		return
	}
	if t == nil {
		s.respond(w, http.StatusOK, map[string]bool{"empty": true})
		return
	}

	id := r.URL.Query().Get("model")
	if id == "" {
		id = s.engine.ActiveModel()
	}
	if id == "" && s.engine.Registry().Len() > 0 {
		id = s.engine.Registry().List()[0].ID
	}

	start := time.Now()
	res, err := s.engine.Predict(r.Context(), id, t)
	if err != nil {
		s.respondErr(w, r, statusFor(err), err)
		return
	}
	s.respond(w, http.StatusOK, predictResponse{
		RequestID: requestID(r.Context()),
		Model:     id,
		Fallback:  s.engine.State() == infer.StateFallbackActive,
		ElapsedMS: time.Since(start).Seconds() * 1000,
		Result:    res,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	t, err := s.decodeDrawing(w, r)
	if err != nil {
		s.respondErr(w, r, http.StatusBadRequest, err)
		return
	}
	if t == nil {
		s.respond(w, http.StatusOK, map[string]bool{"empty": true})
		return
	}

	c := compare.All(r.Context(), s.engine, t)
	resp := compareResponse{
		RequestID:  requestID(r.Context()),
		Comparison: c,
	}
	if digit, agreement, ok := c.Consensus(); ok {
		resp.Consensus = &consensusView{Digit: digit, Agreement: agreement}
	}
	s.respond(w, http.StatusOK, resp)
}

// decodeDrawing reads the request body as either an encoded image or a JSON
// grid of ink values and normalizes it. A nil tensor means the drawing is
// empty.
func (s *Server) decodeDrawing(w http.ResponseWriter, r *http.Request) (*tensor.Tensor, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "image/") {
		img, _, err := image.Decode(r.Body)
		if err != nil {
			return nil, fmt.Errorf("cannot decode image: %w", err)
		}
		return s.norm.NormalizeImage(img), nil
	}

	var req struct {
		Grid [][]float64 `json:"grid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("cannot parse request body: %w", err)
	}
	raw, err := gridTensor(req.Grid)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return s.norm.NormalizeImage(raw.Image()), nil
}

// gridTensor turns a row-major grid of ink values into a tensor. Values are
// clamped to [0, 1]; rows must be equal length.
func gridTensor(grid [][]float64) (*tensor.Tensor, error) {
	if len(grid) == 0 {
		return nil, nil
	}
	width := len(grid[0])
	if width == 0 {
		return nil, errors.New("grid rows must not be empty")
	}

	t := tensor.New(len(grid), width)
	for y, row := range grid {
		if len(row) != width {
			return nil, fmt.Errorf("grid row %d has %d values, want %d", y, len(row), width)
		}
		for x, v := range row {
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			t.Set(y, x, float32(v))
		}
	}
	return t, nil
}

func statusFor(err error) int {
	var le *infer.LoadError
	var ie *infer.InferenceError
	switch {
	case errors.Is(err, registry.ErrUnknownModel):
		return http.StatusNotFound
	case errors.As(err, &le), errors.As(err, &ie):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "err", err)
	}
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	s.respond(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestID(r.Context()),
	})
}
