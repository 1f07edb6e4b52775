// Package ink captures freehand pointer strokes into a persistent bitmap.
// The bitmap is the only thing downstream components ever see; raw pointer
// events stay in the UI layer.
package ink

import (
	"image"
	"image/color"
)

const (
	// DefaultBrush is the stroke diameter in pixels when none is configured.
	DefaultBrush = 18

	// MinBrush is the floor for the stroke diameter. Requests below it are
	// clamped so a stray zero never produces invisible ink.
	MinBrush = 4
)

// Bitmap is a W by H grid of ink intensities in [0,1], 1 = fully inked.
// It is not safe for concurrent use; callers serialize access.
type Bitmap struct {
	W, H int

	pix   []float32
	brush int

	lastX, lastY int
	stroking     bool
}

// NewBitmap creates a blank bitmap with the default brush.
func NewBitmap(w, h int) *Bitmap {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Bitmap{W: w, H: h, pix: make([]float32, w*h), brush: DefaultBrush}
}

// SetBrush sets the stroke diameter in pixels, clamped to MinBrush.
func (b *Bitmap) SetBrush(px int) {
	if px < MinBrush {
		px = MinBrush
	}
	b.brush = px
}

// Brush returns the current stroke diameter.
func (b *Bitmap) Brush() int {
	return b.brush
}

// At returns the ink intensity at (x, y), zero outside the bitmap.
func (b *Bitmap) At(x, y int) float32 {
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return 0
	}
	return b.pix[y*b.W+x]
}

// StrokeStart begins a stroke at (x, y), stamping the brush there.
func (b *Bitmap) StrokeStart(x, y int) {
	b.stamp(x, y)
	b.lastX, b.lastY = x, y
	b.stroking = true
}

// StrokeTo extends the current stroke to (x, y) with a thick line segment.
// Without a preceding StrokeStart it behaves like one.
func (b *Bitmap) StrokeTo(x, y int) {
	if !b.stroking {
		b.StrokeStart(x, y)
		return
	}
	b.line(b.lastX, b.lastY, x, y)
	b.lastX, b.lastY = x, y
}

// StrokeEnd finishes the current stroke.
func (b *Bitmap) StrokeEnd() {
	b.stroking = false
}

// Dot stamps a single brush mark, used for taps.
func (b *Bitmap) Dot(x, y int) {
	b.stamp(x, y)
}

// Clear resets every cell to blank and ends any stroke in progress.
func (b *Bitmap) Clear() {
	for i := range b.pix {
		b.pix[i] = 0
	}
	b.stroking = false
}

// Empty reports whether the bitmap holds no ink at all.
func (b *Bitmap) Empty() bool {
	for _, v := range b.pix {
		if v > 0 {
			return false
		}
	}
	return true
}

// Mass returns the total ink intensity.
func (b *Bitmap) Mass() float64 {
	var m float64
	for _, v := range b.pix {
		m += float64(v)
	}
	return m
}

// InkBounds returns the tight bounding box of inked cells, or the zero
// rectangle when the bitmap is blank.
func (b *Bitmap) InkBounds() image.Rectangle {
	minX, minY := b.W, b.H
	maxX, maxY := -1, -1
	for y := 0; y < b.H; y++ {
		row := b.pix[y*b.W : (y+1)*b.W]
		for x, v := range row {
			if v <= 0 {
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
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Snapshot returns an independent copy, letting a prediction run against a
// stable view while the user keeps drawing.
func (b *Bitmap) Snapshot() *Bitmap {
	c := &Bitmap{W: b.W, H: b.H, pix: make([]float32, len(b.pix)), brush: b.brush}
	copy(c.pix, b.pix)
	return c
}

// Image renders the bitmap in the visual convention of black ink on a white
// background.
func (b *Bitmap) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.W, b.H))
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			v := b.pix[y*b.W+x]
			if v > 1 {
				v = 1
			}
			g := uint8(255 - v*255)
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}

// stamp marks a filled disc of the brush diameter centered at (x, y).
func (b *Bitmap) stamp(x, y int) {
	r := b.brush / 2
	if r < 1 {
		r = 1
	}
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		py := y + dy
		if py < 0 || py >= b.H {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			px := x + dx
			if px < 0 || px >= b.W {
				continue
			}
			if dx*dx+dy*dy <= r2 {
				b.pix[py*b.W+px] = 1
			}
		}
	}
}

// line stamps the brush along a Bresenham walk from (x1, y1) to (x2, y2).
func (b *Bitmap) line(x1, y1, x2, y2 int) {
	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		b.stamp(x1, y1)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}
