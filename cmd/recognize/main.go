// Command recognize scores a drawing image against the model catalog and
// prints the ranked digits.
//
// Usage: recognize -image digit.png [-model id | -all]
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/tiff"

	"github.com/soaravant/DigitRecognizer/internal/classify"
	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/pkg/tensor"
)

var (
	flagImage   = flag.String("image", "", "Path to the drawing image (PNG, JPEG, TIFF)")
	flagModel   = flag.String("model", "", "Model ID, empty=configured default")
	flagAll     = flag.Bool("all", false, "Run every model and print a comparison table")
	flagSeed    = flag.Int64("seed", 0, "Heuristic recognizer seed, 0=time")
	flagConfig  = flag.String("config", "", "Config file path, empty=default location")
	flagVerbose = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if *flagImage == "" {
		fmt.Println("Usage: recognize -image <file> [-model id | -all] [-seed n]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})
	if *flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	reg, err := catalog(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load model catalog: %v\n", err)
		os.Exit(1)
	}

	var fallback *classify.Classifier
	if *flagSeed != 0 {
		fallback = classify.NewSeeded(*flagSeed)
	}

	engine := infer.NewEngine(reg, fallback, infer.Options{
		ModelsDir: cfg.Inference.ModelsDir,
		Logger:    logger,
	})
	defer engine.Close()

	t, err := loadDrawing(cfg, *flagImage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read drawing: %v\n", err)
		os.Exit(1)
	}
	if t == nil {
		fmt.Println("The image contains no ink.")
		return
	}

	ctx := context.Background()
	preferred := *flagModel
	if preferred == "" {
		preferred = cfg.Inference.DefaultModel
	}
	if err := engine.Init(ctx, preferred); err != nil {
		fmt.Fprintf(os.Stderr, "Engine init failed: %v\n", err)
		os.Exit(1)
	}
	if engine.State() == infer.StateFallbackActive {
		fmt.Println("No model artifacts available, using the heuristic recognizer.")
	}

	if *flagAll {
		printComparison(compare.All(ctx, engine, t))
		return
	}

	id := preferred
	if engine.ActiveModel() != "" && *flagModel == "" {
		id = engine.ActiveModel()
	}
	res, err := engine.Predict(ctx, id, t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Prediction failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model: %s\n\n", id)
	for i, sc := range res {
		marker := "  "
		if i == 0 {
			marker = "->"
		}
		fmt.Printf("%s %d  %6.2f%%  %s\n", marker, sc.Digit, sc.Probability*100, bar(sc.Probability))
	}
}

// catalog builds the registry from the manifest when one is configured.
func catalog(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Inference.Manifest != "" {
		return registry.LoadManifest(cfg.Inference.Manifest)
	}
	return registry.Builtin(), nil
}

func loadDrawing(cfg *config.Config, path string) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return cfg.Normalizer().NormalizeImage(img), nil
}

func printComparison(c *compare.Comparison) {
	fmt.Printf("%-12s %-18s %-10s %-6s %-8s %s\n",
		"MODEL", "LABEL", "RUNTIME", "DIGIT", "CONF", "TIME")
	for _, e := range c.Entries {
		if !e.Ok() {
			fmt.Printf("%-12s %-18s %-10s %-6s %-8s %-8s error: %s\n",
				e.ModelID, e.Label, e.Runtime, "-", "-", "-", e.Err)
			continue
		}
		top := e.Result.Top()
		fmt.Printf("%-12s %-18s %-10s %-6d %6.2f%%  %6.1fms\n",
			e.ModelID, e.Label, e.Runtime, top.Digit, top.Probability*100, e.ElapsedMS)
	}

	if digit, agreement, ok := c.Consensus(); ok {
		fmt.Printf("\nConsensus: %d (%.0f%% agreement)\n", digit, agreement*100)
	}
	if c.Fallback {
		fmt.Println("All entries served by the heuristic recognizer.")
	}
}

func bar(p float64) string {
	return strings.Repeat("#", int(p*40+0.5))
}
