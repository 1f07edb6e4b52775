package infer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var fetchClient = &http.Client{Timeout: 60 * time.Second}

// resolveArtifact turns a descriptor path into a local file path. Absolute
// paths are used as-is, relative paths resolve against the models directory,
// and http(s) URLs are downloaded once into the cache directory. An empty
// descriptor path resolves to "" for runtimes that need no artifact.
func resolveArtifact(ctx context.Context, artifact string, opts Options) (string, error) {
	if artifact == "" {
		return "", nil
	}

	if strings.HasPrefix(artifact, "http://") || strings.HasPrefix(artifact, "https://") {
		return fetchArtifact(ctx, artifact, opts)
	}

	p := artifact
	if !filepath.IsAbs(p) {
		p = filepath.Join(opts.ModelsDir, p)
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("model artifact %s: %w", p, err)
	}
	return p, nil
}

// fetchArtifact downloads a model artifact into the cache directory, keyed by
// URL so different sources never collide. A previously fetched copy is reused.
func fetchArtifact(ctx context.Context, rawURL string, opts Options) (string, error) {
	dir := opts.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine cache directory: %w", err)
		}
		dir = filepath.Join(base, "digit-recognizer", "models")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create cache directory: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL %q: %w", rawURL, err)
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		base = "model"
	}
	sum := sha256.Sum256([]byte(rawURL))
	dst := filepath.Join(dir, fmt.Sprintf("%x_%s", sum[:6], base))

	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("cannot build artifact request: %w", err)
	}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch model artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot fetch model artifact: %s returned %s", rawURL, resp.Status)
	}

	// Download to a temp file first so a failed transfer never leaves a
	// truncated artifact behind.
	tmp, err := os.CreateTemp(dir, base+".*")
	if err != nil {
		return "", fmt.Errorf("cannot create artifact file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cannot download model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cannot write model artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cannot store model artifact: %w", err)
	}
	return dst, nil
}
