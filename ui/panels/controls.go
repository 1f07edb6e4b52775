package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/soaravant/DigitRecognizer/internal/app"
	"github.com/soaravant/DigitRecognizer/internal/ink"
)

// ControlsPanel holds the model picker, recognition mode, and brush controls.
type ControlsPanel struct {
	session *app.Session

	modelSelect *widget.Select
	compareMode *widget.Check
	brushSlider *widget.Slider
	brushLabel  *widget.Label

	container fyne.CanvasObject

	// Select options show labels; this maps them back to catalog ids.
	idByLabel map[string]string
	labelByID map[string]string
}

// NewControlsPanel creates the controls panel and subscribes it to session events.
func NewControlsPanel(session *app.Session) *ControlsPanel {
	cp := &ControlsPanel{
		session:   session,
		idByLabel: make(map[string]string),
		labelByID: make(map[string]string),
	}

	models := session.Models()
	labels := make([]string, 0, len(models))
	for _, d := range models {
		labels = append(labels, d.Label)
		cp.idByLabel[d.Label] = d.ID
		cp.labelByID[d.ID] = d.Label
	}

	cp.modelSelect = widget.NewSelect(labels, func(selected string) {
		id, ok := cp.idByLabel[selected]
		if !ok || id == session.Model() {
			return
		}
		// Options come from the catalog, so the id always resolves.
		_ = session.SetModel(id)
	})
	if label, ok := cp.labelByID[session.Model()]; ok {
		cp.modelSelect.SetSelected(label)
	}

	cp.compareMode = widget.NewCheck("Compare all models", func(on bool) {
		if on {
			session.SetMode(app.ModeCompare)
		} else {
			session.SetMode(app.ModeSingle)
		}
	})
	cp.compareMode.SetChecked(session.Mode() == app.ModeCompare)

	cp.brushLabel = widget.NewLabel(fmt.Sprintf("%d px", session.Brush()))
	cp.brushSlider = widget.NewSlider(float64(ink.MinBrush), 40)
	cp.brushSlider.Step = 1
	cp.brushSlider.SetValue(float64(session.Brush()))
	cp.brushSlider.OnChanged = func(v float64) {
		session.SetBrush(int(v))
		cp.brushLabel.SetText(fmt.Sprintf("%d px", session.Brush()))
	}

	clearButton := widget.NewButton("Clear", func() {
		session.Clear()
	})

	cp.container = container.NewVBox(
		widget.NewCard("Model", "", container.NewVBox(
			cp.modelSelect,
			cp.compareMode,
		)),
		widget.NewCard("Brush", "", container.NewBorder(nil, nil, nil, cp.brushLabel, cp.brushSlider)),
		clearButton,
	)

	session.On(app.EventModelChanged, func(data interface{}) {
		id, ok := data.(string)
		if !ok {
			return
		}
		if label, ok := cp.labelByID[id]; ok && cp.modelSelect.Selected != label {
			cp.modelSelect.SetSelected(label)
		}
	})

	session.On(app.EventModeChanged, func(data interface{}) {
		mode, ok := data.(app.Mode)
		if !ok {
			return
		}
		comparing := mode == app.ModeCompare
		if cp.compareMode.Checked != comparing {
			cp.compareMode.SetChecked(comparing)
		}
		// The picker only matters in single mode.
		if comparing {
			cp.modelSelect.Disable()
		} else {
			cp.modelSelect.Enable()
		}
	})

	return cp
}

// Container returns the panel container.
func (cp *ControlsPanel) Container() fyne.CanvasObject {
	return cp.container
}
