package infer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// digitChars restricts OCR to the ten digits; everything else is noise here.
const digitChars = "0123456789"

// ocrUpscale is the side length glyphs are scaled to before OCR. Tesseract
// degrades sharply below roughly 100 px glyph height.
const ocrUpscale = 160

// ocrHitProb is the probability assigned to a recognized digit. Tesseract
// reports no per-class scores, so the rest of the mass spreads uniformly.
const ocrHitProb = 0.7

// tesseractModel recognizes digits with the Tesseract OCR engine. The
// client holds one image at a time, so runs are serialized.
type tesseractModel struct {
	id string

	mu     sync.Mutex
	client *gosseract.Client
}

func loadTesseract(ctx context.Context, d *registry.Descriptor, opts Options) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Dictionary correction only hurts single digits.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetWhitelist(digitChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &tesseractModel{id: d.ID, client: client}, nil
}

func (m *tesseractModel) Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Nothing drawn, nothing to read. Covers engine warm-up as well.
	if t.Sum() == 0 {
		return predict.Uniform(), nil
	}

	buf, err := encodeForOCR(t)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := m.client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	for _, r := range text {
		if r >= '0' && r <= '9' {
			probs := make([]float64, predict.NumClasses)
			for i := range probs {
				probs[i] = (1 - ocrHitProb) / (predict.NumClasses - 1)
			}
			probs[r-'0'] = ocrHitProb
			return predict.FromProbs(probs), nil
		}
	}

	// OCR saw no digit. Report maximal uncertainty rather than an error so
	// drawings Tesseract cannot read still produce a ranking.
	return predict.Uniform(), nil
}

func (m *tesseractModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client.Close()
}

// encodeForOCR renders the tensor dark-on-light, upscales it for Tesseract,
// and encodes it as PNG.
func encodeForOCR(t *tensor.Tensor) (*gocv.NativeByteBuffer, error) {
	mat, err := gocv.ImageGrayToMatGray(t.Image())
	if err != nil {
		return nil, fmt.Errorf("failed to convert tensor: %w", err)
	}
	defer mat.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(mat, &scaled, image.Pt(ocrUpscale, ocrUpscale), 0, 0, gocv.InterpolationCubic)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, scaled)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf, nil
}
