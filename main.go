// Package main provides the entry point for the digit recognizer application.
package main

import (
	"context"
	"os"
	"time"

	"github.com/soaravant/DigitRecognizer/internal/app"
	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/internal/version"
	"github.com/soaravant/DigitRecognizer/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/charmbracelet/log"
)

const (
	appTitle = "Digit Recognizer"
	appID    = "io.github.soaravant.digitrecognizer"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.Info("starting", "app", appTitle, "version", version.Version)

	// An optional config path may be passed on the command line.
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not usable, falling back to defaults", "err", err)
		cfg = config.Default()
	}

	reg := registry.Builtin()
	if cfg.Inference.Manifest != "" {
		if r, err := registry.LoadManifest(cfg.Inference.Manifest); err != nil {
			logger.Warn("model manifest not usable, using builtin catalog",
				"path", cfg.Inference.Manifest, "err", err)
		} else {
			reg = r
		}
	}

	engine := infer.NewEngine(reg, nil, infer.Options{
		ModelsDir: cfg.Inference.ModelsDir,
		Logger:    logger,
	})
	defer engine.Close()

	session := app.NewSession(engine, cfg, logger)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.RecognizerTheme{})

	win := mainwindow.New(fyneApp, session)

	// Models load in the background; the window comes up immediately.
	session.InitEngine(context.Background())

	setupHotReload(win, logger)

	win.ShowAndRun()
}

// setupHotReload configures automatic restart detection when the binary is recompiled.
func setupHotReload(win *mainwindow.MainWindow, logger *log.Logger) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		logger.Debug("hot reload disabled, executable path unknown")
		return
	}

	logger.Debug("hot reload watching",
		"bin", reloader.BinPath(), "since", reloader.Baseline().Format("15:04:05"))

	reloader.OnUpdate(func() {
		logger.Info("newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				if err := reloader.Restart(); err != nil {
					logger.Error("restart failed", "err", err)
				}
			}, win.Window)
	})

	reloader.Start()
}
