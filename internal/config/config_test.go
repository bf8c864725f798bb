package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Sparks.BoxHeight != 88 {
		t.Errorf("BoxHeight = %d, want 88", cfg.Sparks.BoxHeight)
	}
	if cfg.Zones.IoUThreshold != 0.5 {
		t.Errorf("IoUThreshold = %v, want 0.5", cfg.Zones.IoUThreshold)
	}
	if got := cfg.Portrait.Box; got.X != -110 || got.Width != 90 || got.Height != 116 {
		t.Errorf("portrait box = %+v", got)
	}
	if got := cfg.Matching.Cutoffs["white"]; got != 0.75 {
		t.Errorf("white cutoff = %v, want 0.75", got)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := `
workers: 2
sparks:
  box_height: 90
  star_hsv:
    lower: [18, 90, 90]
    upper: [36, 255, 255]
store:
  driver: sqlite
  dsn: ":memory:"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 || cfg.Sparks.BoxHeight != 90 {
		t.Errorf("overrides not applied: workers=%d box=%d", cfg.Workers, cfg.Sparks.BoxHeight)
	}
	if cfg.Sparks.StarBand.Lower[0] != 18 {
		t.Errorf("star band lower = %v", cfg.Sparks.StarBand.Lower)
	}
	if cfg.Sparks.MinTail != 40 {
		t.Errorf("MinTail = %d, default should survive", cfg.Sparks.MinTail)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q", cfg.Store.Driver)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Sparks.BoxHeight = 0
	cfg.Sparks.Shape = "grid"
	cfg.Store.Driver = "postgres"
	cfg.Portrait.Scales = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"box_height", "sparks.shape", "store.driver", "portraits.scales"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
