// Package config holds the app settings: canvas geometry, normalization
// parameters, inference preferences, and the HTTP listen address. Settings
// live in a TOML file under the user config directory; missing keys keep
// their defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/soaravant/DigitRecognizer/internal/ink"
	"github.com/soaravant/DigitRecognizer/internal/normalize"
)

type Config struct {
	Canvas    CanvasConfig    `toml:"canvas"`
	Normalize NormalizeConfig `toml:"normalize"`
	Inference InferenceConfig `toml:"inference"`
	Server    ServerConfig    `toml:"server"`
}

type CanvasConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	Brush  int `toml:"brush"`
}

type NormalizeConfig struct {
	TargetSize int     `toml:"target_size"`
	FitRatio   float64 `toml:"fit_ratio"`
	Padding    int     `toml:"padding"`
	Centering  bool    `toml:"centering"`
}

type InferenceConfig struct {
	DefaultModel string `toml:"default_model"`
	ModelsDir    string `toml:"models_dir"`

	// Manifest overrides the built-in model catalog when set.
	Manifest string `toml:"manifest,omitempty"`

	DebounceMS int `toml:"debounce_ms"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

// Default returns the settings the app ships with.
func Default() *Config {
	n := normalize.Default()
	return &Config{
		Canvas: CanvasConfig{Width: 280, Height: 280, Brush: ink.DefaultBrush},
		Normalize: NormalizeConfig{
			TargetSize: n.TargetSize,
			FitRatio:   n.FitRatio,
			Padding:    n.Padding,
			Centering:  n.Centering,
		},
		Inference: InferenceConfig{
			DefaultModel: "model_1",
			ModelsDir:    "models",
			DebounceMS:   300,
		},
		Server: ServerConfig{Listen: ":8080"},
	}
}

// Load reads settings from path, or from DefaultPath when path is empty. A
// missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Default(), err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("cannot read config: %w", err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return Default(), fmt.Errorf("cannot parse config: %w", err)
	}
	c.sanitize()
	return c, nil
}

// Save writes the settings to path, or to DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cannot serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// DefaultPath returns the config file location under the platform config
// directory, creating the app directory if needed.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}

	appDir := filepath.Join(configDir, "digit-recognizer")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}

	return filepath.Join(appDir, "config.toml"), nil
}

// Normalizer builds the canonicalization pipeline these settings describe.
func (c *Config) Normalizer() *normalize.Normalizer {
	return &normalize.Normalizer{
		TargetSize: c.Normalize.TargetSize,
		FitRatio:   c.Normalize.FitRatio,
		Padding:    c.Normalize.Padding,
		Centering:  c.Normalize.Centering,
	}
}

// Debounce returns the prediction debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Inference.DebounceMS) * time.Millisecond
}

// sanitize resets out-of-range values to their defaults so a hand-edited
// file cannot wedge the app.
func (c *Config) sanitize() {
	def := Default()
	if c.Canvas.Width <= 0 {
		c.Canvas.Width = def.Canvas.Width
	}
	if c.Canvas.Height <= 0 {
		c.Canvas.Height = def.Canvas.Height
	}
	if c.Canvas.Brush < ink.MinBrush {
		c.Canvas.Brush = def.Canvas.Brush
	}
	if c.Normalize.TargetSize <= 0 {
		c.Normalize.TargetSize = def.Normalize.TargetSize
	}
	if c.Normalize.FitRatio <= 0 || c.Normalize.FitRatio > 1 {
		c.Normalize.FitRatio = def.Normalize.FitRatio
	}
	if c.Normalize.Padding < 0 {
		c.Normalize.Padding = def.Normalize.Padding
	}
	if c.Inference.DebounceMS < 0 {
		c.Inference.DebounceMS = def.Inference.DebounceMS
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
}
