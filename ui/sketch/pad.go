// Package sketch provides the drawing pad widget.
package sketch

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"

	"github.com/soaravant/DigitRecognizer/internal/app"
)

// Pad is the drawing surface. Drags become strokes and taps become dots;
// the session owns the ink and decides when to recognize it.
type Pad struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster
	minSize fyne.Size

	dragging bool
}

// NewPad creates a drawing pad over the session's ink canvas.
func NewPad(session *app.Session) *Pad {
	w, h := session.CanvasSize()
	p := &Pad{
		session: session,
		minSize: fyne.NewSize(float32(w), float32(h)),
	}
	p.raster = fynecanvas.NewRaster(p.draw)
	p.raster.ScaleMode = fynecanvas.ImageScalePixels
	p.raster.SetMinSize(p.minSize)
	p.ExtendBaseWidget(p)
	return p
}

func (p *Pad) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.raster)
}

// MinSize keeps the pad at the ink canvas resolution.
func (p *Pad) MinSize() fyne.Size {
	return p.minSize
}

// Refresh redraws the ink.
func (p *Pad) Refresh() {
	p.raster.Refresh()
	p.BaseWidget.Refresh()
}

// draw renders the session canvas at the requested raster size.
func (p *Pad) draw(w, h int) image.Image {
	src := p.session.Image()
	if b := src.Bounds(); w == b.Dx() && h == b.Dy() {
		return src
	}
	// Nearest neighbor keeps stroke edges crisp when the pad is scaled.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// inkPoint converts a widget position to ink canvas coordinates.
func (p *Pad) inkPoint(pos fyne.Position) (x, y int) {
	w, h := p.session.CanvasSize()
	size := p.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return int(pos.X), int(pos.Y)
	}
	x = int(float64(pos.X) / float64(size.Width) * float64(w))
	y = int(float64(pos.Y) / float64(size.Height) * float64(h))
	return x, y
}

// Dragged extends the current stroke, starting one on the first event.
func (p *Pad) Dragged(ev *fyne.DragEvent) {
	x, y := p.inkPoint(ev.Position)
	if !p.dragging {
		p.dragging = true
		p.session.StrokeStart(x, y)
	} else {
		p.session.StrokeTo(x, y)
	}
	p.Refresh()
}

// DragEnd finishes the stroke and lets the session schedule recognition.
func (p *Pad) DragEnd() {
	if !p.dragging {
		return
	}
	p.dragging = false
	p.session.StrokeEnd()
	p.Refresh()
}

// Tapped stamps a single dot, so isolated clicks still leave ink.
func (p *Pad) Tapped(ev *fyne.PointEvent) {
	x, y := p.inkPoint(ev.Position)
	p.session.Dot(x, y)
	p.Refresh()
}

// TappedSecondary clears the canvas on right click.
func (p *Pad) TappedSecondary(*fyne.PointEvent) {
	p.session.Clear()
}
