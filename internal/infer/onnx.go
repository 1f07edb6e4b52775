package infer

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

var (
	ortInit    sync.Once
	ortInitErr error
)

// initONNXRuntime brings up the shared ONNX runtime environment once per
// process. It stays up until exit; models come and go independently.
// ONNXRUNTIME_SHARED_LIBRARY overrides the library lookup path.
func initONNXRuntime() error {
	ortInit.Do(func() {
		if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// onnxModel runs a network through the ONNX runtime. The session owns fixed
// input/output tensors, so runs are serialized.
type onnxModel struct {
	id string

	mu      sync.Mutex
	session *ort.AdvancedSession
	in      *ort.Tensor[float32]
	out     *ort.Tensor[float32]
}

func loadONNX(ctx context.Context, d *registry.Descriptor, opts Options) (Model, error) {
	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	path, err := resolveArtifact(ctx, d.Path, opts)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("model %s declares no artifact", d.ID)
	}

	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(d.Channels), int64(d.Input[0]), int64(d.Input[1])))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, predict.NumClasses))
	if err != nil {
		in.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out},
		nil)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &onnxModel{id: d.ID, session: session, in: in, out: out}, nil
}

func (m *onnxModel) Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.in.GetData(), t.Data)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := make([]float32, predict.NumClasses)
	copy(scores, m.out.GetData())
	return resultFromScores(scores), nil
}

func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	if err := m.in.Destroy(); err != nil {
		first = err
	}
	if err := m.out.Destroy(); err != nil && first == nil {
		first = err
	}
	if err := m.session.Destroy(); err != nil && first == nil {
		first = err
	}
	return first
}
