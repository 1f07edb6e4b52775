package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestVersion = "1.0"

// Manifest is the on-disk model catalog format.
type Manifest struct {
	Version string        `json:"version"`
	Created string        `json:"created"`
	Models  []*Descriptor `json:"models"`
}

// LoadManifest reads a model catalog from path and returns it as a registry.
// Catalog order is preserved.
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read model manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse model manifest: %w", err)
	}

	r := New()
	for _, d := range m.Models {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("cannot load model manifest: %w", err)
		}
		r.Add(d)
	}
	return r, nil
}

// SaveManifest writes the registry to path in the manifest format.
func (r *Registry) SaveManifest(path string) error {
	m := Manifest{
		Version: manifestVersion,
		Created: time.Now().UTC().Format(time.RFC3339),
		Models:  r.List(),
	}

	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot serialize model manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write model manifest: %w", err)
	}
	return nil
}

// DefaultManifestPath returns the user-level manifest location under the
// platform config directory, creating the app directory if needed.
func DefaultManifestPath() (string, error) {
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

	return filepath.Join(appDir, "manifest.json"), nil
}
