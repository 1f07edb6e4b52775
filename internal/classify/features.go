// Package classify implements the heuristic digit recognizer used when no
// trained model can be loaded. It scores shape features extracted from the
// normalized tensor against a rule table and produces a full probability
// distribution over the ten digits.
package classify

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

// inkLevel is the tensor value above which a cell counts as ink.
const inkLevel = 0.35

// minHoleArea filters out single-cell gaps left by antialiased strokes.
const minHoleArea = 3

// Features holds the shape measurements extracted from a normalized digit.
// All fractions are relative to the ink bounding box.
type Features struct {
	// Geometry
	Aspect float64 // bbox width over height
	Fill   float64 // ink cells over bbox area

	// Topology
	Holes int     // enclosed background regions
	HoleY float64 // centroid of enclosed regions, 0 = top of bbox, 1 = bottom

	// Mass distribution
	CentroidX float64 // ink centroid within bbox, 0..1
	CentroidY float64
	TopMass   float64 // ink fraction in the top half of the bbox
	LeftMass  float64 // ink fraction in the left half

	// Scan profile
	RowRuns    float64 // mean ink runs per occupied row
	RowRunsMax int     // most ink runs in any row

	// Stroke bars and symmetry
	TopBar    float64 // mean row coverage across the top fifth
	BottomBar float64 // mean row coverage across the bottom fifth
	MirrorSym float64 // left/right mirror agreement, 1 = symmetric
}

// Extract measures shape features on a normalized tensor. ok is false when
// the tensor is nil or holds no ink.
func Extract(t *tensor.Tensor) (Features, bool) {
	if t == nil {
		return Features{}, false
	}

	// Binarize and find the ink bounding box.
	minX, minY := t.W, t.H
	maxX, maxY := -1, -1
	ink := make([]bool, t.H*t.W)
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			if t.At(y, x) < inkLevel {
				continue
			}
			ink[y*t.W+x] = true
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
		return Features{}, false
	}

	box := image.Rect(minX, minY, maxX+1, maxY+1)
	w, h := box.Dx(), box.Dy()

	var f Features
	f.Aspect = float64(w) / float64(h)

	// Mass distribution over the binary ink.
	var mass, top, left, sx, sy float64
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if !ink[y*t.W+x] {
				continue
			}
			mass++
			sx += float64(x - box.Min.X)
			sy += float64(y - box.Min.Y)
			if y-box.Min.Y < h/2 {
				top++
			}
			if x-box.Min.X < w/2 {
				left++
			}
		}
	}
	f.Fill = mass / float64(w*h)
	f.CentroidX = sx / mass / float64(max(w-1, 1))
	f.CentroidY = sy / mass / float64(max(h-1, 1))
	f.TopMass = top / mass
	f.LeftMass = left / mass

	f.Holes, f.HoleY = countHoles(ink, t.W, box)

	// Ink runs per row.
	var runs []float64
	for y := box.Min.Y; y < box.Max.Y; y++ {
		n := rowRuns(ink, t.W, box, y)
		if n == 0 {
			continue
		}
		runs = append(runs, float64(n))
		if n > f.RowRunsMax {
			f.RowRunsMax = n
		}
	}
	if len(runs) > 0 {
		f.RowRuns = stat.Mean(runs, nil)
	}

	// Coverage of the top and bottom fifths.
	band := max(h/5, 1)
	f.TopBar = bandCoverage(ink, t.W, box, box.Min.Y, box.Min.Y+band)
	f.BottomBar = bandCoverage(ink, t.W, box, box.Max.Y-band, box.Max.Y)

	// Mirror symmetry on the continuous tensor values.
	var diff, total float64
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			v := float64(t.At(y, x))
			m := float64(t.At(y, box.Max.X-1-(x-box.Min.X)))
			if v > m {
				diff += v - m
			} else {
				diff += m - v
			}
			total += v
		}
	}
	if total > 0 {
		f.MirrorSym = 1 - diff/(2*total)
		if f.MirrorSym < 0 {
			f.MirrorSym = 0
		}
	}

	return f, true
}

// countHoles flood-fills the background from the bbox border and counts the
// enclosed background components left over. Returns the count and the
// combined centroid of the enclosed cells relative to bbox height.
func countHoles(ink []bool, stride int, box image.Rectangle) (int, float64) {
	w, h := box.Dx(), box.Dy()
	visited := make([]bool, w*h)

	bg := func(x, y int) bool { return !ink[(box.Min.Y+y)*stride+box.Min.X+x] }

	flood := func(seeds []image.Point) (area int, sumY float64) {
		queue := seeds
		for _, p := range queue {
			visited[p.Y*w+p.X] = true
		}
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			area++
			sumY += float64(p.Y)
			for _, d := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := p.X+d.X, p.Y+d.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				if visited[ny*w+nx] || !bg(nx, ny) {
					continue
				}
				visited[ny*w+nx] = true
				queue = append(queue, image.Point{X: nx, Y: ny})
			}
		}
		return area, sumY
	}

	// Outside background: everything reachable from the border.
	var border []image.Point
	for x := 0; x < w; x++ {
		if bg(x, 0) && !visited[x] {
			border = append(border, image.Point{X: x, Y: 0})
		}
		if bg(x, h-1) && !visited[(h-1)*w+x] {
			border = append(border, image.Point{X: x, Y: h - 1})
		}
	}
	for y := 0; y < h; y++ {
		if bg(0, y) && !visited[y*w] {
			border = append(border, image.Point{X: 0, Y: y})
		}
		if bg(w-1, y) && !visited[y*w+w-1] {
			border = append(border, image.Point{X: w - 1, Y: y})
		}
	}
	if len(border) > 0 {
		flood(border)
	}

	// Remaining background components are enclosed.
	holes := 0
	var areaSum, ySum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !bg(x, y) {
				continue
			}
			area, sy := flood([]image.Point{{X: x, Y: y}})
			if area < minHoleArea {
				continue
			}
			holes++
			areaSum += float64(area)
			ySum += sy
		}
	}
	if holes == 0 || areaSum == 0 {
		return 0, 0
	}
	return holes, ySum / areaSum / float64(max(h-1, 1))
}

// rowRuns counts contiguous ink runs in one row of the bbox.
func rowRuns(ink []bool, stride int, box image.Rectangle, y int) int {
	runs := 0
	inRun := false
	for x := box.Min.X; x < box.Max.X; x++ {
		if ink[y*stride+x] {
			if !inRun {
				runs++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	return runs
}

// bandCoverage returns the mean fraction of inked cells per row over [y0, y1).
func bandCoverage(ink []bool, stride int, box image.Rectangle, y0, y1 int) float64 {
	if y0 < box.Min.Y {
		y0 = box.Min.Y
	}
	if y1 > box.Max.Y {
		y1 = box.Max.Y
	}
	if y1 <= y0 {
		return 0
	}

	var rows []float64
	for y := y0; y < y1; y++ {
		n := 0
		for x := box.Min.X; x < box.Max.X; x++ {
			if ink[y*stride+x] {
				n++
			}
		}
		rows = append(rows, float64(n)/float64(box.Dx()))
	}
	return stat.Mean(rows, nil)
}
