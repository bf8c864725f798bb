package ocr

import (
	"strings"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"sparkscan/pkg/geometry"
)

// Level selects the granularity of OCR results.
type Level int

const (
	// Words returns one result per recognized word.
	Words Level = iota
	// Lines returns one result per text line.
	Lines
)

// Result represents a single OCR detection result. Bounds are in the
// coordinates of the image passed to Read; Confidence is in [0,1].
type Result struct {
	Text       string
	Bounds     geometry.RectInt
	Confidence float64
}

// Reader recognizes text in a BGR image. Implementations are not required to
// be safe for concurrent use; each worker owns its own Reader.
type Reader interface {
	Read(img gocv.Mat, level Level) ([]Result, error)
}

// Texts returns the text of each result, in order.
func Texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

// Join concatenates result texts with single spaces.
func Join(results []Result) string {
	return strings.Join(Texts(results), " ")
}

// AverageConfidence is the mean confidence of results, 0 when empty.
func AverageConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	conf := make([]float64, len(results))
	for i, r := range results {
		conf[i] = r.Confidence
	}
	return stat.Mean(conf, nil)
}
