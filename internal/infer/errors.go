package infer

import "fmt"

// LoadError reports that a model could not be loaded or failed its warm-up.
// The engine treats it as a signal to try the next candidate.
type LoadError struct {
	ModelID string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.ModelID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InferenceError reports that a loaded model failed to produce a prediction.
type InferenceError struct {
	ModelID string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference with model %s: %v", e.ModelID, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
