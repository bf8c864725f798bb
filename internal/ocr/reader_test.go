package ocr

import (
	"image"
	"math"
	"testing"

	"sparkscan/pkg/geometry"
)

func TestAverageConfidence(t *testing.T) {
	if got := AverageConfidence(nil); got != 0 {
		t.Errorf("AverageConfidence(nil) = %v, want 0", got)
	}
	results := []Result{{Text: "Sprint", Confidence: 0.9}, {Text: "Specialist", Confidence: 0.5}}
	if got := AverageConfidence(results); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("AverageConfidence = %v, want 0.7", got)
	}
	if got := Join(results); got != "Sprint Specialist" {
		t.Errorf("Join = %q", got)
	}
}

func TestUnscale(t *testing.T) {
	r := image.Rect(20, 40, 120, 80)
	if got := unscale(r, 1); got != geometry.FromImageRect(r) {
		t.Errorf("unscale(1) = %+v", got)
	}
	got := unscale(r, 2)
	want := geometry.RectInt{X: 10, Y: 20, Width: 50, Height: 20}
	if got != want {
		t.Errorf("unscale(2) = %+v, want %+v", got, want)
	}
}
