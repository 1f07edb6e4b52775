package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// HotReloader watches the running binary and fires a callback once a newer
// build appears on disk. Development convenience; the callback runs on a
// background goroutine.
type HotReloader struct {
	binPath  string
	baseline time.Time
	interval time.Duration
	stop     chan struct{}
	onUpdate func()
}

// NewHotReloader watches the current executable. Returns nil when the
// executable path cannot be resolved.
func NewHotReloader(interval time.Duration) *HotReloader {
	binPath, err := os.Executable()
	if err != nil {
		return nil
	}
	// go build replaces the file behind the symlink, so watch the target.
	if real, err := filepath.EvalSymlinks(binPath); err == nil {
		binPath = real
	}

	info, err := os.Stat(binPath)
	if err != nil {
		return nil
	}

	return &HotReloader{
		binPath:  binPath,
		baseline: info.ModTime(),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// OnUpdate sets the callback invoked when a newer binary is detected.
func (h *HotReloader) OnUpdate(callback func()) {
	h.onUpdate = callback
}

// Start begins polling in a background goroutine.
func (h *HotReloader) Start() {
	h.stop = make(chan struct{})
	go h.poll()
}

// Stop ends the polling goroutine.
func (h *HotReloader) Stop() {
	close(h.stop)
}

// BinPath returns the watched executable path.
func (h *HotReloader) BinPath() string { return h.binPath }

// Baseline returns the modification time the watcher compares against.
func (h *HotReloader) Baseline() time.Time { return h.baseline }

// ResetBaseline accepts the current binary as the new baseline. Call this
// when the user declines a restart so the prompt does not repeat.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.binPath); err == nil {
		h.baseline = info.ModTime()
	}
}

// Restart replaces the current process with the watched binary, preserving
// arguments and environment. Does not return on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.binPath, os.Args, os.Environ())
}

func (h *HotReloader) poll() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			info, err := os.Stat(h.binPath)
			if err != nil {
				continue
			}
			if info.ModTime().After(h.baseline) && h.onUpdate != nil {
				// Fire once; a restart or ResetBaseline+Start rearms.
				h.onUpdate()
				return
			}
		}
	}
}
