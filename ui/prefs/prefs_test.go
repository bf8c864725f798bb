package prefs

import (
	"path/filepath"
	"testing"
)

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")
	p := LoadFrom(path)
	if got := p.FloatWithFallback(KeyWindowWidth, 900); got != 900 {
		t.Fatalf("fallback width = %v", got)
	}
	p.SetFloat(KeyWindowWidth, 1280)
	p.SetBool(KeyHideUnchanged, true)
	if err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again := LoadFrom(path)
	if got := again.FloatWithFallback(KeyWindowWidth, 900); got != 1280 {
		t.Errorf("width = %v, want 1280", got)
	}
	if !again.Bool(KeyHideUnchanged, false) {
		t.Error("hide_unchanged not persisted")
	}
}
