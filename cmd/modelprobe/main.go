// Command modelprobe tries to load and warm every cataloged model and
// reports what the inference engine would see at startup.
//
// Usage: modelprobe [-manifest path] [-id model]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/registry"
)

var (
	flagManifest  = flag.String("manifest", "", "Model manifest path, empty=builtin catalog")
	flagModelsDir = flag.String("models-dir", "", "Artifact directory, empty=configured value")
	flagID        = flag.String("id", "", "Probe a single model, empty=all")
	flagConfig    = flag.String("config", "", "Config file path, empty=default location")
	flagVerbose   = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
	if *flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *flagModelsDir != "" {
		cfg.Inference.ModelsDir = *flagModelsDir
	}
	if *flagManifest != "" {
		cfg.Inference.Manifest = *flagManifest
	}

	var reg *registry.Registry
	if cfg.Inference.Manifest != "" {
		reg, err = registry.LoadManifest(cfg.Inference.Manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load manifest: %v\n", err)
			os.Exit(1)
		}
	} else {
		reg = registry.Builtin()
	}

	targets := reg.List()
	if *flagID != "" {
		d, err := reg.Get(*flagID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		targets = []*registry.Descriptor{d}
	}

	engine := infer.NewEngine(reg, nil, infer.Options{
		ModelsDir: cfg.Inference.ModelsDir,
		Logger:    logger,
	})
	defer engine.Close()

	fmt.Printf("=== Probing %d models (artifacts: %s) ===\n", len(targets), cfg.Inference.ModelsDir)

	ctx := context.Background()
	loaded := 0
	failed := 0
	for _, d := range targets {
		start := time.Now()
		_, err := engine.Model(ctx, d.ID)
		elapsed := time.Since(start)

		if err != nil {
			failed++
			fmt.Printf("%-14s %-10s FAIL  %v\n", d.ID, d.Runtime, err)
			continue
		}
		loaded++
		fmt.Printf("%-14s %-10s ok    %.1fms\n", d.ID, d.Runtime, float64(elapsed.Microseconds())/1000)
	}

	fmt.Printf("\n=== %d/%d loaded ===\n", loaded, len(targets))
	if loaded == 0 {
		fmt.Println("The engine would start in fallback mode.")
	}
	if *flagID != "" && failed > 0 {
		os.Exit(1)
	}
}
