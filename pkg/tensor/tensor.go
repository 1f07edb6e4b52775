// Package tensor provides the fixed-size grayscale tensor exchanged between
// the normalization pipeline and the classifiers.
package tensor

import (
	"image"
	"image/color"
)

// Tensor is a single-channel float image in row-major order.
// Values are in [0,1] with 0 = background and high values = ink.
type Tensor struct {
	H, W int
	Data []float32
}

// New creates a zero-filled tensor of the given dimensions.
func New(h, w int) *Tensor {
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	return &Tensor{H: h, W: w, Data: make([]float32, h*w)}
}

// At returns the value at row y, column x.
func (t *Tensor) At(y, x int) float32 {
	return t.Data[y*t.W+x]
}

// Set stores v at row y, column x.
func (t *Tensor) Set(y, x int, v float32) {
	t.Data[y*t.W+x] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{H: t.H, W: t.W, Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// Sum returns the total intensity across all cells.
func (t *Tensor) Sum() float64 {
	var s float64
	for _, v := range t.Data {
		s += float64(v)
	}
	return s
}

// Centroid returns the intensity-weighted center of mass as (row, column).
// An all-zero tensor yields the geometric center.
func (t *Tensor) Centroid() (cy, cx float64) {
	var sum, sy, sx float64
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			v := float64(t.Data[y*t.W+x])
			sum += v
			sy += v * float64(y)
			sx += v * float64(x)
		}
	}
	if sum <= 0 {
		return float64(t.H-1) / 2, float64(t.W-1) / 2
	}
	return sy / sum, sx / sum
}

// Resample returns a bilinearly resampled copy with the given dimensions.
// Sampling uses pixel-center alignment, so Resample(t.H, t.W) is an exact copy.
func (t *Tensor) Resample(h, w int) *Tensor {
	if h < 1 {
		h = 1
	}
	if w < 1 {
		w = 1
	}
	if h == t.H && w == t.W {
		return t.Clone()
	}

	out := New(h, w)
	scaleY := float64(t.H) / float64(h)
	scaleX := float64(t.W) / float64(w)

	for y := 0; y < h; y++ {
		sy := (float64(y)+0.5)*scaleY - 0.5
		y0 := int(sy)
		fy := sy - float64(y0)
		if sy < 0 {
			y0, fy = 0, 0
		}
		y1 := y0 + 1
		if y1 >= t.H {
			y1 = t.H - 1
		}
		for x := 0; x < w; x++ {
			sx := (float64(x)+0.5)*scaleX - 0.5
			x0 := int(sx)
			fx := sx - float64(x0)
			if sx < 0 {
				x0, fx = 0, 0
			}
			x1 := x0 + 1
			if x1 >= t.W {
				x1 = t.W - 1
			}

			top := float64(t.At(y0, x0))*(1-fx) + float64(t.At(y0, x1))*fx
			bot := float64(t.At(y1, x0))*(1-fx) + float64(t.At(y1, x1))*fx
			out.Set(y, x, float32(top*(1-fy)+bot*fy))
		}
	}
	return out
}

// Image renders the tensor back to the visual convention of dark ink on a
// white background, suitable for OCR and hashing backends.
func (t *Tensor) Image() *image.Gray {
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
			img.SetGray(x, y, color.Gray{Y: uint8(255 - v*255)})
		}
	}
	return img
}
