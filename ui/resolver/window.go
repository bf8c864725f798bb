// Package resolver is the desktop window for resolving pending conflicts
// field by field.
package resolver

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	sparkapp "sparkscan/internal/app"
	"sparkscan/internal/library"
	"sparkscan/internal/logging"
	"sparkscan/internal/record"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/ui/prefs"
)

const (
	optExisting = "Keep existing"
	optNew      = "Take new"
)

// Window lists pending conflicts on the left and the selected conflict's
// divergent fields on the right.
type Window struct {
	state *sparkapp.State
	prefs *prefs.Prefs
	log   *logging.Logger

	win    fyne.Window
	split  *container.Split
	list   *widget.List
	detail *fyne.Container
	status *widget.Label
	apply  *widget.Button

	pending       []library.Conflict
	selected      int
	choices       library.Choices
	hideUnchanged bool
}

// New builds the window. Call Show or ShowAndRun afterwards.
func New(a fyne.App, state *sparkapp.State, p *prefs.Prefs, log *logging.Logger) *Window {
	w := &Window{
		state:         state,
		prefs:         p,
		log:           logging.OrNop(log),
		win:           a.NewWindow("sparkscan - pending conflicts"),
		selected:      -1,
		hideUnchanged: p.Bool(prefs.KeyHideUnchanged, false),
	}

	w.list = widget.NewList(
		func() int { return len(w.pending) },
		func() fyne.CanvasObject { return widget.NewLabel("conflict") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(w.pending) {
				obj.(*widget.Label).SetText(conflictTitle(w.pending[id]))
			}
		},
	)
	w.list.OnSelected = func(id widget.ListItemID) { w.Select(id) }

	w.detail = container.NewVBox()
	w.status = widget.NewLabel("")
	w.apply = widget.NewButtonWithIcon("Apply and save", theme.DocumentSaveIcon(), func() {
		if err := w.Apply(context.Background()); err != nil {
			dialog.ShowError(err, w.win)
		}
	})
	reload := widget.NewButtonWithIcon("Reload", theme.ViewRefreshIcon(), func() {
		if err := w.state.Load(context.Background()); err != nil {
			dialog.ShowError(err, w.win)
		}
	})
	hide := widget.NewCheck("Hide unchanged sparks", func(on bool) {
		w.hideUnchanged = on
		w.prefs.SetBool(prefs.KeyHideUnchanged, on)
		w.showDetail()
	})
	hide.SetChecked(w.hideUnchanged)

	w.split = container.NewHSplit(w.list, container.NewVScroll(w.detail))
	w.split.Offset = p.FloatWithFallback(prefs.KeySplitOffset, 0.3)

	toolbar := container.NewHBox(w.apply, reload, hide)
	w.win.SetContent(container.NewBorder(toolbar, w.status, nil, nil, w.split))
	w.win.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1100)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 700)),
	))
	w.win.SetOnClosed(w.savePrefs)

	state.On(sparkapp.EventLibraryLoaded, func(interface{}) { w.refresh() })
	state.On(sparkapp.EventLibrarySaved, func(interface{}) { w.refresh() })
	w.refresh()
	return w
}

func (w *Window) Show()       { w.win.Show() }
func (w *Window) ShowAndRun() { w.win.ShowAndRun() }

// Pending returns the conflicts currently listed.
func (w *Window) Pending() []library.Conflict { return w.pending }

// Select shows conflict i and resets every choice to the existing side.
func (w *Window) Select(i int) {
	if i < 0 || i >= len(w.pending) {
		w.selected = -1
		w.choices = nil
	} else {
		w.selected = i
		w.choices = library.Choices{}
	}
	w.showDetail()
}

// Choose records the side kept for field f of the selected conflict.
func (w *Window) Choose(f record.Field, side library.Side) {
	if w.choices == nil {
		return
	}
	w.choices[f] = side
}

// Apply resolves the selected conflict with the current choices and saves
// the library.
func (w *Window) Apply(ctx context.Context) error {
	if w.selected < 0 {
		return fmt.Errorf("no conflict selected")
	}
	c := w.pending[w.selected]
	merged, err := w.state.Resolve(c.Hash, w.choices)
	if err != nil {
		return err
	}
	if err := w.state.Save(ctx); err != nil {
		// the resolution is kept in memory and written by the next save
		w.refresh()
		w.status.SetText(fmt.Sprintf("Resolved %s, not saved: %v", merged.Name, err))
		return err
	}
	w.status.SetText(fmt.Sprintf("Resolved %s (entry %d)", merged.Name, merged.EntryID))
	return nil
}

func (w *Window) refresh() {
	w.pending = w.state.Pending()
	w.list.UnselectAll()
	w.list.Refresh()
	w.selected = -1
	w.choices = nil
	w.status.SetText(fmt.Sprintf("%d pending conflict(s)", len(w.pending)))
	if len(w.pending) > 0 {
		w.list.Select(0)
	} else {
		w.showDetail()
	}
}

func (w *Window) showDetail() {
	w.detail.Objects = nil
	if w.selected < 0 {
		w.apply.Disable()
		w.detail.Add(widget.NewLabel("No pending conflicts."))
		w.detail.Refresh()
		return
	}
	w.apply.Enable()

	c := w.pending[w.selected]
	var plain, sparks []fyne.CanvasObject
	for _, f := range c.Fields() {
		if o, ok := f.Origin(); ok {
			sparks = append(sparks, w.sparkCard(c, f, o))
			continue
		}
		plain = append(plain,
			widget.NewLabelWithStyle(string(f), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			w.sideChoice(f,
				record.Format(c.Existing.Value(f)),
				record.Format(c.New.Value(f))),
		)
	}

	w.detail.Add(widget.NewLabelWithStyle(conflictTitle(c), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	if len(plain) > 0 {
		w.detail.Add(container.NewGridWithColumns(2, plain...))
	}
	for _, card := range sparks {
		w.detail.Add(card)
	}
	w.detail.Refresh()
}

func (w *Window) sideChoice(f record.Field, existing, incoming string) fyne.CanvasObject {
	radio := widget.NewRadioGroup([]string{optExisting, optNew}, func(s string) {
		side := library.KeepExisting
		if s == optNew {
			side = library.TakeNew
		}
		w.Choose(f, side)
	})
	radio.Horizontal = true
	if w.choices[f] == library.TakeNew {
		radio.SetSelected(optNew)
	} else {
		radio.SetSelected(optExisting)
	}
	values := container.NewGridWithColumns(2,
		widget.NewLabel("existing: "+existing),
		widget.NewLabel("new: "+incoming),
	)
	return container.NewVBox(values, radio)
}

// sparkCard shows both spark lists of one origin side by side, colored by
// how each spark changed.
func (w *Window) sparkCard(c library.Conflict, f record.Field, o spark.Origin) fyne.CanvasObject {
	changes := library.DiffSparks(c.Existing.Sparks.Of(o), c.New.Sparks.Of(o))
	left := container.NewVBox(widget.NewLabelWithStyle("Existing", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	right := container.NewVBox(widget.NewLabelWithStyle("New", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, ch := range changes {
		if w.hideUnchanged && ch.Kind == library.Unchanged {
			continue
		}
		clr := sparkapp.ChangeColor(ch.Kind)
		if ch.Existing > 0 {
			left.Add(canvas.NewText(sparkLine(ch.Color, ch.Name, ch.Existing), clr))
		}
		if ch.New > 0 {
			right.Add(canvas.NewText(sparkLine(ch.Color, ch.Name, ch.New), clr))
		}
	}
	body := container.NewVBox(
		container.NewGridWithColumns(2, left, right),
		w.sideChoice(f, fmt.Sprintf("%d sparks", len(c.Existing.Sparks.Of(o))), fmt.Sprintf("%d sparks", len(c.New.Sparks.Of(o)))),
	)
	return widget.NewCard("Sparks: "+o.Label(w.state.Naming), "", body)
}

func sparkLine(color vocab.Color, name string, count int) string {
	return fmt.Sprintf("[%s] %s x%d", color, name, count)
}

func conflictTitle(c library.Conflict) string {
	return fmt.Sprintf("#%d %s (%d fields)", c.Existing.EntryID, c.Existing.Name, len(c.Fields()))
}

func (w *Window) savePrefs() {
	size := w.win.Canvas().Size()
	w.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	w.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	w.prefs.SetFloat(prefs.KeySplitOffset, w.split.Offset)
	if err := w.prefs.Save(); err != nil {
		w.log.Warn("failed to save preferences", "error", err)
	}
}
