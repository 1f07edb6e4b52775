// Command prototrain renders reference digit glyphs, hashes them into a
// perceptual similarity index, and writes the store the prototype runtime
// loads.
//
// Usage: prototrain -out store.gob [-samples n] [-seed n]
package main

import (
	"encoding/gob"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/rivo/duplo"

	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/predict"
)

var (
	flagOut     = flag.String("out", "", "Output store path (gob)")
	flagSamples = flag.Int("samples", 8, "Samples per digit")
	flagSeed    = flag.Int64("seed", 1, "Jitter seed")
	flagPreview = flag.String("preview", "", "Save rendered samples as PNGs to this directory")
)

// brushes covers the stroke widths users actually draw with.
var brushes = []int{10, 14, 18, 22}

func main() {
	flag.Parse()

	if *flagOut == "" {
		fmt.Println("Usage: prototrain -out <store.gob> [-samples n] [-seed n]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *flagSamples < 1 {
		fmt.Fprintln(os.Stderr, "-samples must be at least 1")
		os.Exit(1)
	}

	if *flagPreview != "" {
		if err := os.MkdirAll(*flagPreview, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create preview directory: %v\n", err)
			os.Exit(1)
		}
	}

	rng := rand.New(rand.NewSource(*flagSeed))
	store := duplo.NewStore()
	count := 0

	for digit := 0; digit < predict.NumClasses; digit++ {
		for s := 0; s < *flagSamples; s++ {
			img := infer.RenderPrototype(digit, brushes[rng.Intn(len(brushes))])
			if s > 0 {
				// The first sample stays canonical; the rest wobble in
				// scale and position like real handwriting does.
				img = jitter(img, rng)
			}
			hash, _ := duplo.CreateHash(img)
			store.Add(digit, hash)
			count++

			if *flagPreview != "" {
				if err := savePreview(*flagPreview, digit, s, img); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to save preview: %v\n", err)
					os.Exit(1)
				}
			}
		}
		fmt.Printf("digit %d: %d samples\n", digit, *flagSamples)
	}

	f, err := os.Create(*flagOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *flagOut, err)
		os.Exit(1)
	}
	if err := gob.NewEncoder(f).Encode(store); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Failed to encode store: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *flagOut, err)
		os.Exit(1)
	}

	info, _ := os.Stat(*flagOut)
	fmt.Printf("\nIndexed %d samples into %s (%d bytes)\n", count, *flagOut, info.Size())
}

// jitter rescales the glyph and shifts it on a fresh canvas.
func jitter(img image.Image, rng *rand.Rand) image.Image {
	b := img.Bounds()
	scale := 0.85 + 0.3*rng.Float64()
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	scaled := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)

	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)

	dx := (b.Dx()-w)/2 + rng.Intn(13) - 6
	dy := (b.Dy()-h)/2 + rng.Intn(13) - 6
	draw.Draw(out, image.Rect(dx, dy, dx+w, dy+h), scaled, scaled.Bounds().Min, draw.Over)
	return out
}

func savePreview(dir string, digit, sample int, img image.Image) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%d_%02d.png", digit, sample)))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
