package infer

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/rivo/duplo"

	"github.com/soaravant/DigitRecognizer/internal/ink"
	"github.com/soaravant/DigitRecognizer/internal/predict"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// protoCanvas is the side length prototypes are rendered at. Large enough
// that the perceptual hash sees stroke shape, not raster artifacts.
const protoCanvas = 160

// protoMargin keeps glyph strokes away from the canvas edge.
const protoMargin = 24

// protoBrushes are the stroke widths each digit is rendered with, so both
// thin and thick handwriting finds a nearby prototype.
var protoBrushes = []int{12, 20}

// protoRankProbs is the probability assigned to the closest, second, and
// third distinct digits of a similarity query.
var protoRankProbs = []float64{0.62, 0.18, 0.08}

// prototypeModel recognizes digits by perceptual-hash similarity against
// rendered digit prototypes. duplo stores are concurrency safe, so no
// serialization is needed.
type prototypeModel struct {
	id    string
	store *duplo.Store
}

func loadPrototype(ctx context.Context, d *registry.Descriptor, opts Options) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A descriptor may point at a store built by the prototrain tool;
	// otherwise prototypes are rendered on the spot.
	if d.Path != "" {
		path, err := resolveArtifact(ctx, d.Path, opts)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read prototype store: %w", err)
		}
		store := duplo.NewStore()
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(store); err != nil {
			return nil, fmt.Errorf("cannot decode prototype store: %w", err)
		}
		return &prototypeModel{id: d.ID, store: store}, nil
	}

	return &prototypeModel{id: d.ID, store: BuildPrototypeStore()}, nil
}

func (m *prototypeModel) Predict(ctx context.Context, t *tensor.Tensor) (predict.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Nothing drawn, nothing to match. Covers engine warm-up as well.
	if t.Sum() == 0 {
		return predict.Uniform(), nil
	}

	hash, _ := duplo.CreateHash(t.Image())
	return resultFromMatches(m.store.Query(hash)), nil
}

func (m *prototypeModel) Close() error { return nil }

// resultFromMatches turns a ranked similarity list into a distribution over
// digits. Matches arrive best first; duplicate digits from brush variants
// count once.
func resultFromMatches(matches []*duplo.Match) predict.Result {
	probs := make([]float64, predict.NumClasses)
	var seen [predict.NumClasses]bool
	remaining := 1.0
	rank := 0

	for _, m := range matches {
		if rank >= len(protoRankProbs) {
			break
		}
		d, ok := m.ID.(int)
		if !ok || d < 0 || d >= predict.NumClasses || seen[d] {
			continue
		}
		seen[d] = true
		probs[d] = protoRankProbs[rank]
		remaining -= protoRankProbs[rank]
		rank++
	}
	if rank == 0 {
		return predict.Uniform()
	}

	rest := 0
	for d := range probs {
		if !seen[d] {
			rest++
		}
	}
	for d := range probs {
		if !seen[d] {
			probs[d] = remaining / float64(rest)
		}
	}
	return predict.FromProbs(probs)
}

// BuildPrototypeStore renders every digit prototype and indexes it by
// perceptual hash. The prototrain tool uses this to build the store it
// writes to disk.
func BuildPrototypeStore() *duplo.Store {
	store := duplo.NewStore()
	for digit := 0; digit < predict.NumClasses; digit++ {
		for _, brush := range protoBrushes {
			hash, _ := duplo.CreateHash(RenderPrototype(digit, brush))
			store.Add(digit, hash)
		}
	}
	return store
}

// RenderPrototype draws one digit glyph with the same brush engine the
// drawing pad uses.
func RenderPrototype(digit, brush int) image.Image {
	bm := ink.NewBitmap(protoCanvas, protoCanvas)
	bm.SetBrush(brush)

	span := float64(protoCanvas - 2*protoMargin)
	for _, stroke := range protoStrokes[digit] {
		for i, p := range stroke {
			x := protoMargin + int(p.x*span+0.5)
			y := protoMargin + int(p.y*span+0.5)
			if i == 0 {
				bm.StrokeStart(x, y)
			} else {
				bm.StrokeTo(x, y)
			}
		}
		bm.StrokeEnd()
	}
	return bm.Image()
}

type protoPoint struct{ x, y float64 }

// protoStrokes holds each digit as polylines in unit space, y down.
var protoStrokes = buildProtoStrokes()

func buildProtoStrokes() [10][][]protoPoint {
	// arc samples an ellipse from angle a0 to a1. Angles follow screen
	// coordinates: 0 is right, pi/2 is down, 3*pi/2 (or -pi/2) is up.
	arc := func(cx, cy, rx, ry, a0, a1 float64, steps int) []protoPoint {
		pts := make([]protoPoint, 0, steps+1)
		for i := 0; i <= steps; i++ {
			a := a0 + (a1-a0)*float64(i)/float64(steps)
			pts = append(pts, protoPoint{cx + rx*math.Cos(a), cy + ry*math.Sin(a)})
		}
		return pts
	}
	loop := func(cx, cy, rx, ry float64) []protoPoint {
		return arc(cx, cy, rx, ry, 0, 2*math.Pi, 24)
	}
	p := func(x, y float64) protoPoint { return protoPoint{x, y} }

	var g [10][][]protoPoint
	g[0] = [][]protoPoint{loop(0.5, 0.5, 0.3, 0.43)}
	g[1] = [][]protoPoint{{p(0.35, 0.2), p(0.52, 0.05), p(0.52, 0.95)}}
	g[2] = [][]protoPoint{append(arc(0.5, 0.3, 0.3, 0.22, math.Pi, 2.15*math.Pi, 10), p(0.2, 0.95), p(0.82, 0.95))}
	g[3] = [][]protoPoint{
		arc(0.45, 0.28, 0.3, 0.23, 1.1*math.Pi, 2.6*math.Pi, 12),
		arc(0.45, 0.72, 0.32, 0.24, 1.45*math.Pi, 2.85*math.Pi, 12),
	}
	g[4] = [][]protoPoint{
		{p(0.6, 0.05), p(0.18, 0.62), p(0.85, 0.62)},
		{p(0.68, 0.35), p(0.68, 0.95)},
	}
	g[5] = [][]protoPoint{
		{p(0.8, 0.05), p(0.25, 0.05), p(0.22, 0.45)},
		arc(0.48, 0.68, 0.3, 0.26, 1.2*math.Pi, 2.8*math.Pi, 12),
	}
	g[6] = [][]protoPoint{
		{p(0.7, 0.05), p(0.45, 0.3), p(0.32, 0.55)},
		loop(0.5, 0.72, 0.24, 0.2),
	}
	g[7] = [][]protoPoint{{p(0.15, 0.08), p(0.85, 0.08), p(0.45, 0.95)}}
	g[8] = [][]protoPoint{
		loop(0.5, 0.28, 0.23, 0.2),
		loop(0.5, 0.72, 0.27, 0.22),
	}
	g[9] = [][]protoPoint{
		loop(0.5, 0.3, 0.24, 0.21),
		{p(0.74, 0.3), p(0.7, 0.95)},
	}
	return g
}
