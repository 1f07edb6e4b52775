// Package infer loads recognizer models and runs handwriting tensors through
// them. Each registry runtime maps to a loader; loaded models are memoized
// and warmed before first use. When no model can be loaded the engine runs
// the heuristic recognizer instead.
package infer

import (
	"context"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// Model is a loaded recognizer ready to score tensors. Implementations must
// be safe for concurrent use; the comparison view predicts on several models
// at once.
type Model interface {
	// Predict scores a tensor already resampled to the model's input shape.
	Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error)
	Close() error
}

// Options carries the shared environment loaders need.
type Options struct {
	// ModelsDir anchors relative artifact paths.
	ModelsDir string

	// CacheDir stores artifacts fetched from URLs. Empty means the user
	// cache directory.
	CacheDir string

	Logger *log.Logger
}

// Loader instantiates a model for one descriptor.
type Loader func(ctx context.Context, d *registry.Descriptor, opts Options) (Model, error)

var (
	loadersMu sync.RWMutex
	loaders   = map[registry.Runtime]Loader{}
)

// RegisterLoader binds a runtime name to a loader, replacing any previous
// binding.
func RegisterLoader(rt registry.Runtime, l Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[rt] = l
}

func loaderFor(rt registry.Runtime) Loader {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	return loaders[rt]
}

func init() {
	RegisterLoader(registry.RuntimeONNX, loadONNX)
	RegisterLoader(registry.RuntimeOpenCV, loadOpenCV)
	RegisterLoader(registry.RuntimeTesseract, loadTesseract)
	RegisterLoader(registry.RuntimePrototype, loadPrototype)
}

// resultFromScores converts raw network output to a distribution. Networks
// exported with a softmax head already emit probabilities and pass through;
// raw logits go through a stable softmax.
func resultFromScores(scores []float32) predict.Result {
	probs := make([]float64, len(scores))
	sum := 0.0
	inRange := true
	for i, v := range scores {
		probs[i] = float64(v)
		sum += probs[i]
		if v < 0 || v > 1 {
			inRange = false
		}
	}
	if inRange && math.Abs(sum-1) < 0.01 {
		return predict.FromProbs(probs)
	}

	maxv := math.Inf(-1)
	for _, v := range probs {
		if v > maxv {
			maxv = v
		}
	}
	var expSum float64
	for i, v := range probs {
		probs[i] = math.Exp(v - maxv)
		expSum += probs[i]
	}
	for i := range probs {
		probs[i] /= expSum
	}
	return predict.FromProbs(probs)
}
