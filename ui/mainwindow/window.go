// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"image/png"
	"path/filepath"
	"sync"
	"time"

	"github.com/soaravant/DigitRecognizer/internal/app"
	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/version"
	"github.com/soaravant/DigitRecognizer/ui/panels"
	"github.com/soaravant/DigitRecognizer/ui/sketch"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyModel   = "lastModel"
	prefKeyBrush   = "brushSize"
	prefKeyCompare = "compareMode"
	prefKeyLastDir = "lastDirectory"
)

// errorFlash is how long a transient failure stays in the status bar.
const errorFlash = 5 * time.Second

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session

	pad       *sketch.Pad
	controls  *panels.ControlsPanel
	results   *panels.ResultsPanel
	statusBar *widget.Label

	// Guards the transient-status timer; events arrive from worker goroutines.
	statusMu    sync.Mutex
	statusReset *time.Timer
}

// New creates a new main window.
func New(fyneApp fyne.App, session *app.Session) *MainWindow {
	win := fyneApp.NewWindow("Digit Recognizer")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
	}

	// Apply saved settings before the panels read the session state.
	mw.restorePreferences()

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	mw.Resize(fyne.NewSize(920, 600))
	mw.SetCloseIntercept(func() {
		mw.savePreferences()
		mw.Close()
	})

	return mw
}

// setupUI creates the main window layout.
func (mw *MainWindow) setupUI() {
	mw.pad = sketch.NewPad(mw.session)
	mw.controls = panels.NewControlsPanel(mw.session)
	mw.results = panels.NewResultsPanel(mw.session)
	mw.statusBar = widget.NewLabel("Starting engine...")

	// The pad stays at its native resolution, centered in its pane
	padArea := container.NewCenter(mw.pad)

	side := container.NewVScroll(container.NewVBox(
		mw.controls.Container(),
		mw.results.Container(),
	))

	split := container.NewHSplit(padArea, side)
	split.SetOffset(0.55) // Drawing pad takes a little over half the width

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Drawing...", mw.onSaveDrawing),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Canvas", func() { mw.session.Clear() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			mw.savePreferences()
			mw.app.Quit()
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventPrediction, func(data interface{}) {
		ev, ok := data.(*app.PredictionEvent)
		if !ok {
			return
		}
		top := ev.Result.Top()
		if ev.Fallback {
			mw.updateStatus(fmt.Sprintf("Heuristic guess: %d (no model backend available)", top.Digit))
			return
		}
		mw.updateStatus(fmt.Sprintf("Recognized %d (%.1f%%) with %s", top.Digit, top.Probability*100, ev.ModelID))
	})

	mw.session.On(app.EventComparison, func(data interface{}) {
		c, ok := data.(*compare.Comparison)
		if !ok {
			return
		}
		if digit, agreement, ok := c.Consensus(); ok {
			mw.updateStatus(fmt.Sprintf("Consensus %d across %d models (%.0f%% agree, %.0f ms)",
				digit, len(c.Entries), agreement*100, c.ElapsedMS))
		} else {
			mw.updateStatus("No model produced a result")
		}
	})

	mw.session.On(app.EventCleared, func(interface{}) {
		mw.pad.Refresh()
		mw.updateStatus("Canvas cleared")
	})

	mw.session.On(app.EventModelChanged, func(data interface{}) {
		id, ok := data.(string)
		if !ok {
			return
		}
		mw.app.Preferences().SetString(prefKeyModel, id)
		mw.updateStatus("Model: " + id)
	})

	mw.session.On(app.EventModeChanged, func(data interface{}) {
		mode, ok := data.(app.Mode)
		if !ok {
			return
		}
		mw.app.Preferences().SetBool(prefKeyCompare, mode == app.ModeCompare)
		mw.updateStatus("Mode: " + mode.String())
	})

	mw.session.On(app.EventEngineState, func(data interface{}) {
		state, ok := data.(infer.State)
		if !ok {
			return
		}
		switch state {
		case infer.StateReady:
			mw.updateStatus(fmt.Sprintf("Engine ready, model %s", mw.session.Model()))
		case infer.StateFallbackActive:
			mw.updateStatus("No model backend available, using heuristic fallback")
		default:
			mw.updateStatus("Engine " + state.String())
		}
	})

	mw.session.On(app.EventError, func(data interface{}) {
		err, ok := data.(error)
		if !ok {
			return
		}
		mw.flashStatus("Recognition failed: " + err.Error())
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusMu.Lock()
	if mw.statusReset != nil {
		mw.statusReset.Stop()
		mw.statusReset = nil
	}
	mw.statusMu.Unlock()

	mw.statusBar.SetText(text)
}

// flashStatus shows a transient notice that reverts to the engine state.
func (mw *MainWindow) flashStatus(text string) {
	mw.updateStatus(text)

	mw.statusMu.Lock()
	mw.statusReset = time.AfterFunc(errorFlash, func() {
		mw.statusBar.SetText("Engine " + mw.session.Engine().State().String())
	})
	mw.statusMu.Unlock()
}

// restorePreferences applies the saved model, brush, and mode to the session.
func (mw *MainWindow) restorePreferences() {
	p := mw.app.Preferences()

	if id := p.String(prefKeyModel); id != "" {
		// The saved model may be gone from the catalog; keep the default then.
		_ = mw.session.SetModel(id)
	}
	if px := p.Int(prefKeyBrush); px > 0 {
		mw.session.SetBrush(px)
	}
	if p.Bool(prefKeyCompare) {
		mw.session.SetMode(app.ModeCompare)
	}
}

// savePreferences persists the session settings.
func (mw *MainWindow) savePreferences() {
	p := mw.app.Preferences()
	p.SetString(prefKeyModel, mw.session.Model())
	p.SetInt(prefKeyBrush, mw.session.Brush())
	p.SetBool(prefKeyCompare, mw.session.Mode() == app.ModeCompare)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	dir := filepath.Dir(filePath)
	mw.app.Preferences().SetString(prefKeyLastDir, dir)
}

// onSaveDrawing exports the canvas as a PNG.
func (mw *MainWindow) onSaveDrawing() {
	if mw.session.Empty() {
		dialog.ShowInformation("Save Drawing", "The canvas is empty.", mw.Window)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		mw.saveLastDir(writer.URI().Path())
		if err := png.Encode(writer, mw.session.Image()); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Drawing saved: " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("digit.png")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Digit Recognizer",
		fmt.Sprintf("Digit Recognizer v%s\n\n"+
			"Draw a digit and a catalog of recognizers reads it:\n"+
			"neural nets, classic vision, OCR, and a rule-based fallback.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
