package infer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// opencvModel runs an ONNX network through the OpenCV DNN module.
type opencvModel struct {
	id    string
	input image.Point

	mu  sync.Mutex
	net gocv.Net
}

func loadOpenCV(ctx context.Context, d *registry.Descriptor, opts Options) (Model, error) {
	path, err := resolveArtifact(ctx, d.Path, opts)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("model %s declares no artifact", d.ID)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to read network from %s", path)
	}

	return &opencvModel{
		id:    d.ID,
		input: image.Pt(d.Input[1], d.Input[0]),
		net:   net,
	}, nil
}

func (m *opencvModel) Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageGrayToMatGray(inkGray(t))
	if err != nil {
		return nil, fmt.Errorf("failed to convert tensor: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, m.input, gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.net.SetInput(blob, "")
	prob := m.net.Forward("")
	defer prob.Close()

	scores := make([]float32, predict.NumClasses)
	for i := range scores {
		scores[i] = prob.GetFloatAt(0, i)
	}
	return resultFromScores(scores), nil
}

func (m *opencvModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// inkGray renders a tensor in training orientation: bright ink on black.
func inkGray(t *tensor.Tensor) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, t.W, t.H))
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			v := t.At(y, x)
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.Pix[y*img.Stride+x] = uint8(v*255 + 0.5)
		}
	}
	return img
}
