package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	sparkapp "sparkscan/internal/app"
	"sparkscan/internal/library"
	"sparkscan/internal/record"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/ui/prefs"
)

func conflictedLibrary(t *testing.T) *library.JSONStore {
	t.Helper()
	dir := t.TempDir()
	store := library.NewJSONStore(filepath.Join(dir, "records.json"), filepath.Join(dir, "conflicts.json"), nil)

	r := record.New("run1", "Special Week")
	r.Speed = 1000
	r.Sparks.Parent = []spark.Spark{{Color: vocab.Blue, Name: "Speed", Count: 3}}
	snap := library.Reconcile(library.Snapshot{}, []record.Record{r}, time.Unix(0, 0)).Snapshot

	changed := r
	changed.Speed = 1100
	changed.Wit = 400
	changed.Sparks.Parent = []spark.Spark{{Color: vocab.Blue, Name: "Speed", Count: 2}}
	snap = library.Reconcile(snap, []record.Record{changed}, time.Unix(10, 0)).Snapshot

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestWindowResolvesSelectedConflict(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	store := conflictedLibrary(t)
	state := sparkapp.NewState(store, spark.Lineage, nil)
	if err := state.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := New(a, state, prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json")), nil)

	if len(w.Pending()) != 1 {
		t.Fatalf("pending = %d, want 1", len(w.Pending()))
	}
	w.Select(0)
	w.Choose(record.FieldSpeed, library.TakeNew)
	w.Choose(record.FieldSparksParent, library.TakeNew)

	if err := w.Apply(context.Background()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(w.Pending()) != 0 {
		t.Errorf("pending after apply = %d", len(w.Pending()))
	}

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := snap.Records[0]
	if got.Speed != 1100 {
		t.Errorf("speed = %d, want 1100", got.Speed)
	}
	if got.Wit != 0 {
		t.Errorf("wit = %d, want existing 0", got.Wit)
	}
	if got.Sparks.Parent[0].Count != 2 {
		t.Errorf("parent sparks = %+v, want new", got.Sparks.Parent)
	}
}

func TestWindowApplyWithoutSelection(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	dir := t.TempDir()
	store := library.NewJSONStore(filepath.Join(dir, "r.json"), filepath.Join(dir, "c.json"), nil)
	state := sparkapp.NewState(store, spark.Lineage, nil)
	w := New(a, state, prefs.LoadFrom(filepath.Join(dir, "prefs.json")), nil)
	if err := w.Apply(context.Background()); err == nil {
		t.Fatal("expected error with nothing selected")
	}
}

// readOnlyStore serves a snapshot and refuses to save it.
type readOnlyStore struct{ library.Store }

func (readOnlyStore) Save(context.Context, library.Snapshot) error {
	return errors.New("disk full")
}

func TestWindowApplyRefreshesWhenSaveFails(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	state := sparkapp.NewState(readOnlyStore{conflictedLibrary(t)}, spark.Lineage, nil)
	if err := state.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	w := New(a, state, prefs.LoadFrom(filepath.Join(t.TempDir(), "prefs.json")), nil)
	w.Select(0)
	w.Choose(record.FieldSpeed, library.TakeNew)

	if err := w.Apply(context.Background()); err == nil {
		t.Fatal("Apply succeeded with a failing store")
	}
	if len(w.Pending()) != 0 {
		t.Errorf("pending after failed save = %d, want the resolved conflict gone", len(w.Pending()))
	}
	if got := w.state.Records()[0].Speed; got != 1100 {
		t.Errorf("speed in memory = %d, want 1100", got)
	}
	if err := w.Apply(context.Background()); err == nil {
		t.Error("Apply of a stale selection succeeded")
	}
}
