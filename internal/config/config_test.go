package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soaravant/DigitRecognizer/internal/ink"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if *c != *def {
		t.Errorf("Load(missing) = %+v, want defaults %+v", c, def)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	c := Default()
	c.Canvas.Brush = 24
	c.Inference.DefaultModel = "model_7"
	c.Normalize.Centering = false
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *c {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[inference]\ndefault_model = \"model_5\"\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Inference.DefaultModel != "model_5" {
		t.Errorf("DefaultModel = %q, want %q", c.Inference.DefaultModel, "model_5")
	}
	if c.Canvas.Brush != ink.DefaultBrush {
		t.Errorf("Brush = %d, want default %d", c.Canvas.Brush, ink.DefaultBrush)
	}
	if !c.Normalize.Centering {
		t.Error("Centering = false, want default true")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("canvas = [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted invalid TOML")
	}
}

func TestLoadSanitizesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	bad := `
[canvas]
width = -10
brush = 1

[normalize]
fit_ratio = 2.5

[inference]
debounce_ms = -5
`
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if c.Canvas.Width != def.Canvas.Width {
		t.Errorf("Width = %d, want default %d", c.Canvas.Width, def.Canvas.Width)
	}
	if c.Canvas.Brush != def.Canvas.Brush {
		t.Errorf("Brush = %d, want default %d", c.Canvas.Brush, def.Canvas.Brush)
	}
	if c.Normalize.FitRatio != def.Normalize.FitRatio {
		t.Errorf("FitRatio = %v, want default %v", c.Normalize.FitRatio, def.Normalize.FitRatio)
	}
	if c.Inference.DebounceMS != def.Inference.DebounceMS {
		t.Errorf("DebounceMS = %d, want default %d", c.Inference.DebounceMS, def.Inference.DebounceMS)
	}
}

func TestNormalizerView(t *testing.T) {
	c := Default()
	c.Normalize.TargetSize = 32
	c.Normalize.Centering = false

	n := c.Normalizer()
	if n.TargetSize != 32 || n.Centering {
		t.Errorf("Normalizer() = %+v, want TargetSize 32 and Centering false", n)
	}
}
