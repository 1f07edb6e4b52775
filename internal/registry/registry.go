// Package registry maintains the catalog of recognizer models: the trained
// networks shipped with the app plus any heuristic recognizers that stand in
// for them. The inference engine resolves descriptors to runnable models.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModel is returned when a lookup names a model that is not
// registered.
var ErrUnknownModel = errors.New("unknown model")

// Runtime identifies which inference backend executes a model.
type Runtime string

const (
	RuntimeONNX      Runtime = "onnx"
	RuntimeOpenCV    Runtime = "opencv"
	RuntimeTesseract Runtime = "tesseract"
	RuntimePrototype Runtime = "prototype"
)

// Valid reports whether the runtime names a known backend.
func (rt Runtime) Valid() bool {
	switch rt {
	case RuntimeONNX, RuntimeOpenCV, RuntimeTesseract, RuntimePrototype:
		return true
	}
	return false
}

// Descriptor describes one recognizer: where its artifact lives, which
// backend runs it, and the input shape it expects.
type Descriptor struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Runtime     Runtime `json:"runtime"`

	// Path locates the model artifact: an absolute path, a path relative
	// to the models directory, or an http(s) URL fetched on first load.
	// Heuristic runtimes leave it empty.
	Path string `json:"path,omitempty"`

	// Input is the (height, width) the model consumes. Tensors are
	// resampled to this shape before inference.
	Input    [2]int `json:"input"`
	Channels int    `json:"channels"`

	// Parameters and Accuracy are informational, shown in the picker and
	// the comparison table. Accuracy is a fraction in [0,1].
	Parameters int64   `json:"parameters,omitempty"`
	Accuracy   float64 `json:"accuracy,omitempty"`
}

// Validate checks the fields every descriptor must carry.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("descriptor missing id")
	}
	if !d.Runtime.Valid() {
		return fmt.Errorf("descriptor %q: unsupported runtime %q", d.ID, d.Runtime)
	}
	if d.Input[0] <= 0 || d.Input[1] <= 0 {
		return fmt.Errorf("descriptor %q: invalid input shape %dx%d", d.ID, d.Input[0], d.Input[1])
	}
	if d.Channels <= 0 {
		return fmt.Errorf("descriptor %q: invalid channel count %d", d.ID, d.Channels)
	}
	return nil
}

// Registry stores descriptors in registration order. The order is what the
// picker and the comparison table display, so it is preserved rather than
// sorted.
type Registry struct {
	models []*Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{models: make([]*Descriptor, 0)}
}

// Add registers a descriptor, replacing any existing entry with the same ID
// in place.
func (r *Registry) Add(d *Descriptor) {
	for i, m := range r.models {
		if m.ID == d.ID {
			r.models[i] = d
			return
		}
	}
	r.models = append(r.models, d)
}

// Remove drops a descriptor by ID. Unknown IDs are ignored.
func (r *Registry) Remove(id string) {
	for i, m := range r.models {
		if m.ID == id {
			r.models = append(r.models[:i], r.models[i+1:]...)
			return
		}
	}
}

// Get returns the descriptor with the given ID.
func (r *Registry) Get(id string) (*Descriptor, error) {
	for _, m := range r.models {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("model %q: %w", id, ErrUnknownModel)
}

// List returns the descriptors in registration order. The slice is a copy;
// the descriptors are shared.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, len(r.models))
	copy(out, r.models)
	return out
}

// IDs returns the registered model IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.models))
	for i, m := range r.models {
		out[i] = m.ID
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// Describe returns a one-line human-readable summary for the given model.
func (r *Registry) Describe(id string) (string, error) {
	d, err := r.Get(id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s, %dx%d input", d.ID, d.Label, d.Runtime, d.Input[0], d.Input[1])
	if d.Parameters > 0 {
		fmt.Fprintf(&b, ", %s params", formatParams(d.Parameters))
	}
	if d.Accuracy > 0 {
		fmt.Fprintf(&b, ", %.1f%% test accuracy", d.Accuracy*100)
	}
	b.WriteString(")")
	return b.String(), nil
}

// formatParams renders a parameter count the way model cards do: 1.2M, 300K.
func formatParams(n int64) string {
	switch {
	case n >= 1_000_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000_000), ".0") + "M"
	case n >= 1_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000), ".0") + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}
