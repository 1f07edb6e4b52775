// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/soaravant/DigitRecognizer/internal/app"
	"github.com/soaravant/DigitRecognizer/internal/compare"
	"github.com/soaravant/DigitRecognizer/internal/predict"
)

// ResultsPanel shows what the recognizers made of the drawing: a ranked
// probability list in single mode, a per-model scoreboard in compare mode.
type ResultsPanel struct {
	session *app.Session

	digit    *fynecanvas.Text
	subtitle *widget.Label
	note     *widget.Label

	bars      [predict.NumClasses]*widget.ProgressBar
	singleBox *fyne.Container

	compareList *fyne.Container
	compareBox  *fyne.Container

	container fyne.CanvasObject
}

// NewResultsPanel creates the results panel and subscribes it to session events.
func NewResultsPanel(session *app.Session) *ResultsPanel {
	rp := &ResultsPanel{session: session}

	rp.digit = fynecanvas.NewText("", color.NRGBA{R: 0x1A, G: 0x56, B: 0xDB, A: 0xFF})
	rp.digit.TextSize = 72
	rp.digit.TextStyle = fyne.TextStyle{Bold: true}
	rp.digit.Alignment = fyne.TextAlignCenter

	rp.subtitle = widget.NewLabel("Draw a digit")
	rp.subtitle.Alignment = fyne.TextAlignCenter

	rp.note = widget.NewLabel("")
	rp.note.Alignment = fyne.TextAlignCenter
	rp.note.TextStyle = fyne.TextStyle{Italic: true}
	rp.note.Wrapping = fyne.TextWrapWord
	rp.note.Hide()

	rows := make([]fyne.CanvasObject, 0, predict.NumClasses)
	for d := 0; d < predict.NumClasses; d++ {
		rp.bars[d] = widget.NewProgressBar()
		label := widget.NewLabel(strconv.Itoa(d))
		label.TextStyle = fyne.TextStyle{Monospace: true}
		rows = append(rows, container.NewBorder(nil, nil, label, nil, rp.bars[d]))
	}
	rp.singleBox = container.NewVBox(rows...)

	rp.compareList = container.NewVBox()
	rp.compareBox = container.NewVBox(rp.compareList)
	rp.compareBox.Hide()

	rp.container = container.NewVBox(
		rp.digit,
		rp.subtitle,
		rp.note,
		widget.NewSeparator(),
		rp.singleBox,
		rp.compareBox,
	)

	session.On(app.EventPrediction, func(data interface{}) {
		if ev, ok := data.(*app.PredictionEvent); ok {
			rp.ShowPrediction(ev)
		}
	})
	session.On(app.EventComparison, func(data interface{}) {
		if c, ok := data.(*compare.Comparison); ok {
			rp.ShowComparison(c)
		}
	})
	session.On(app.EventCleared, func(interface{}) {
		rp.Reset()
	})

	return rp
}

// Container returns the panel container.
func (rp *ResultsPanel) Container() fyne.CanvasObject {
	return rp.container
}

// ShowPrediction displays a single-model result.
func (rp *ResultsPanel) ShowPrediction(ev *app.PredictionEvent) {
	top := ev.Result.Top()

	rp.digit.Text = strconv.Itoa(top.Digit)
	rp.digit.Refresh()
	rp.subtitle.SetText(fmt.Sprintf("%.1f%% confident", top.Probability*100))

	for d := 0; d < predict.NumClasses; d++ {
		rp.bars[d].SetValue(ev.Result.Probability(d))
	}

	if ev.Fallback {
		rp.note.SetText("Heuristic guess: no model backend is available")
		rp.note.Show()
	} else {
		rp.note.Hide()
	}

	rp.compareBox.Hide()
	rp.singleBox.Show()
}

// ShowComparison displays the scoreboard for a catalog-wide run.
func (rp *ResultsPanel) ShowComparison(c *compare.Comparison) {
	rows := make([]fyne.CanvasObject, 0, len(c.Entries))
	for i := range c.Entries {
		rows = append(rows, rp.compareRow(&c.Entries[i]))
	}
	rp.compareList.Objects = rows
	rp.compareList.Refresh()

	if digit, agreement, ok := c.Consensus(); ok {
		rp.digit.Text = strconv.Itoa(digit)
		rp.subtitle.SetText(fmt.Sprintf("%.0f%% of models agree", agreement*100))
	} else {
		rp.digit.Text = "?"
		rp.subtitle.SetText("No model produced a result")
	}
	rp.digit.Refresh()

	if c.Fallback {
		rp.note.SetText("Heuristic guesses: no model backend is available")
		rp.note.Show()
	} else {
		rp.note.Hide()
	}

	rp.singleBox.Hide()
	rp.compareBox.Show()
}

// Reset returns the panel to its empty-canvas state.
func (rp *ResultsPanel) Reset() {
	rp.digit.Text = ""
	rp.digit.Refresh()
	rp.subtitle.SetText("Draw a digit")
	rp.note.Hide()

	for d := 0; d < predict.NumClasses; d++ {
		rp.bars[d].SetValue(0)
	}

	rp.compareBox.Hide()
	rp.singleBox.Show()
}

// compareRow renders one model's line on the scoreboard.
func (rp *ResultsPanel) compareRow(e *compare.Entry) fyne.CanvasObject {
	name := e.Label
	if e.Fallback {
		name += " (heuristic)"
	}
	label := widget.NewLabel(name)

	if !e.Ok() {
		status := widget.NewLabel("unavailable")
		status.TextStyle = fyne.TextStyle{Italic: true}
		return container.NewBorder(nil, nil, label, status, nil)
	}

	top := e.Result.Top()
	digit := widget.NewLabel(strconv.Itoa(top.Digit))
	digit.TextStyle = fyne.TextStyle{Bold: true}

	bar := widget.NewProgressBar()
	bar.SetValue(top.Probability)

	elapsed := widget.NewLabel(fmt.Sprintf("%.0f ms", e.ElapsedMS))

	return container.NewBorder(nil, nil, container.NewHBox(label, digit), elapsed, bar)
}
