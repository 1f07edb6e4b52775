package classify

import (
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// baseWeight keeps every digit reachable so the output is always a full
// distribution.
const baseWeight = 0.2

// defaultNoise is the jitter added per digit. It stays well below the
// smallest rule weight so it can never flip a rule-backed winner.
const defaultNoise = 0.05

// Classifier is the heuristic digit recognizer. Safe for concurrent use.
type Classifier struct {
	rules []rule
	noise float64

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a classifier with a time-seeded noise stream.
func New() *Classifier {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a classifier with a deterministic noise stream.
func NewSeeded(seed int64) *Classifier {
	return &Classifier{
		rules: rules,
		noise: defaultNoise,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Predict scores the tensor against the rule table and returns the digit
// distribution. A nil or blank tensor yields the uniform distribution.
func (c *Classifier) Predict(t *tensor.Tensor) predict.Result {
	f, ok := Extract(t)
	if !ok {
		return predict.Uniform()
	}

	scores := c.Score(f)

	c.mu.Lock()
	for i := range scores {
		scores[i] += c.noise * c.rng.Float64()
	}
	c.mu.Unlock()

	return predict.FromProbs(scores)
}

// Score returns the deterministic rule weight accumulated per digit, before
// noise and normalization.
func (c *Classifier) Score(f Features) []float64 {
	scores := make([]float64, predict.NumClasses)
	floats.AddConst(baseWeight, scores)
	for _, r := range c.rules {
		if r.when(f) {
			scores[r.digit] += r.weight
		}
	}
	return scores
}

// Fired returns the names of the rules that matched, for diagnostics.
func (c *Classifier) Fired(f Features) []string {
	var names []string
	for _, r := range c.rules {
		if r.when(f) {
			names = append(names, r.name)
		}
	}
	return names
}
