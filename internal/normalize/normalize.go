// Package normalize converts captured ink into the canonical tensor the
// classifiers consume: cropped, uniformly scaled, centered by mass, and
// inverted so ink is high-valued on a zero background.
package normalize

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/soaravant/DigitRecognizer/internal/ink"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// inkThreshold is the luminance below which a pixel counts as ink when
// scanning source images drawn dark-on-white.
const inkThreshold = 250.0

// Normalizer holds the canonicalization parameters. The zero value is not
// useful; use Default or fill every field.
type Normalizer struct {
	// TargetSize is the side length of the square output tensor.
	TargetSize int

	// FitRatio is the fraction of TargetSize the longer ink dimension is
	// scaled to, leaving a margin like the reference training corpus.
	FitRatio float64

	// Padding expands the ink bounding box on all sides before scaling.
	Padding int

	// Centering re-renders the digit so its intensity-weighted centroid
	// lands on the geometric center. Matches the mass-centered bias of the
	// training corpus and measurably improves accuracy over bounding-box
	// centering alone.
	Centering bool
}

// Default returns the parameters used by the drawing pad: a 28x28 tensor
// with the digit scaled to 75% of the frame.
func Default() *Normalizer {
	return &Normalizer{TargetSize: 28, FitRatio: 0.75, Padding: 6, Centering: true}
}

// Normalize converts an ink bitmap to the canonical tensor. It returns nil
// when the bitmap holds no ink; callers treat that as "nothing to predict",
// not as an error.
func (n *Normalizer) Normalize(bm *ink.Bitmap) *tensor.Tensor {
	if bm == nil || bm.Empty() {
		return nil
	}
	return n.NormalizeImage(bm.Image())
}

// NormalizeImage is the image-input boundary used by the HTTP API and CLI
// tools. The source is expected to be dark ink on a light background; nil is
// returned when no ink is found.
//
// The pipeline: tight ink bounding box expanded by Padding, uniform
// aspect-preserving bilinear scale so the longer side equals
// TargetSize*FitRatio, composite onto a white square, optional center-of-mass
// re-render, then luminance grayscale, invert, and scale to [0,1].
func (n *Normalizer) NormalizeImage(img image.Image) *tensor.Tensor {
	bbox, ok := inkBounds(img)
	if !ok {
		return nil
	}

	bbox = expand(bbox, n.Padding).Intersect(img.Bounds())
	if bbox.Empty() {
		return nil
	}

	scaled := n.scaleCrop(img, bbox)

	ox := (n.TargetSize - scaled.Bounds().Dx()) / 2
	oy := (n.TargetSize - scaled.Bounds().Dy()) / 2
	canvas := n.composite(scaled, ox, oy)

	if n.Centering {
		t := n.toTensor(canvas)
		cy, cx := t.Centroid()
		center := float64(n.TargetSize-1) / 2
		dy := int(math.Round(center - cy))
		dx := int(math.Round(center - cx))
		if dx != 0 || dy != 0 {
			canvas = n.composite(scaled, ox+dx, oy+dy)
		}
	}

	return n.toTensor(canvas)
}

// scaleCrop resizes the cropped region so its longer side equals
// TargetSize*FitRatio, preserving aspect ratio. Dimensions are clamped to at
// least one pixel so a single dot still produces a valid tensor.
func (n *Normalizer) scaleCrop(img image.Image, bbox image.Rectangle) *image.RGBA {
	fit := float64(n.TargetSize) * n.FitRatio
	if fit < 1 {
		fit = 1
	}

	w, h := bbox.Dx(), bbox.Dy()
	long := w
	if h > long {
		long = h
	}
	scale := fit / float64(long)

	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	if sw > n.TargetSize {
		sw = n.TargetSize
	}
	if sh > n.TargetSize {
		sh = n.TargetSize
	}

	scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, bbox, xdraw.Src, nil)
	return scaled
}

// composite draws the scaled crop onto a fresh white TargetSize canvas with
// its top-left at (ox, oy). Portions shifted outside the frame are clipped.
func (n *Normalizer) composite(scaled *image.RGBA, ox, oy int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, n.TargetSize, n.TargetSize))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	dst := scaled.Bounds().Add(image.Pt(ox, oy))
	xdraw.Draw(canvas, dst, scaled, scaled.Bounds().Min, xdraw.Over)
	return canvas
}

// toTensor converts the white-background canvas to the inverted [0,1] tensor.
func (n *Normalizer) toTensor(canvas *image.RGBA) *tensor.Tensor {
	t := tensor.New(n.TargetSize, n.TargetSize)
	for y := 0; y < n.TargetSize; y++ {
		for x := 0; x < n.TargetSize; x++ {
			c := canvas.RGBAAt(x, y)
			lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			v := (255 - lum) / 255
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			t.Set(y, x, float32(v))
		}
	}
	return t
}

// inkBounds scans for the tight bounding box of ink pixels. ok is false when
// the image holds no ink.
func inkBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			if lum >= inkThreshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// expand grows a rectangle by pad on all sides.
func expand(r image.Rectangle, pad int) image.Rectangle {
	return image.Rect(r.Min.X-pad, r.Min.Y-pad, r.Max.X+pad, r.Max.Y+pad)
}
