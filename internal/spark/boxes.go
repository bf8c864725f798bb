package spark

import (
	"gocv.io/x/gocv"

	"sparkscan/internal/config"
)

// Span is a horizontal band [Y0, Y1) of a column image.
type Span struct {
	Y0, Y1 int
}

// Height returns Y1 - Y0.
func (s Span) Height() int { return s.Y1 - s.Y0 }

// BoxDetector tiles a column of the inspiration panel into fixed-height
// spark boxes.
type BoxDetector struct {
	boxHeight int
	threshold uint8
	minTail   int
}

// NewBoxDetector builds a detector from the spark configuration.
func NewBoxDetector(cfg config.SparkConfig) *BoxDetector {
	return &BoxDetector{
		boxHeight: cfg.BoxHeight,
		threshold: uint8(min(max(cfg.StartThreshold, 0), 255)),
		minTail:   cfg.MinTail,
	}
}

// Detect returns the box spans of a BGR column image. Tiling starts at the
// first row whose midline pixel is darker than the threshold (row 0 if none
// is), steps by the box height, and closes with one short box when the
// leftover strip is at least minTail rows tall.
func (d *BoxDetector) Detect(column gocv.Mat) []Span {
	if column.Empty() {
		return nil
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(column, &gray, gocv.ColorBGRToGray)

	h := gray.Rows()
	return d.tile(h, d.start(gray))
}

func (d *BoxDetector) start(gray gocv.Mat) int {
	mid := gray.Cols() / 2
	for y := 0; y < gray.Rows(); y++ {
		if gray.GetUCharAt(y, mid) < d.threshold {
			return y
		}
	}
	return 0
}

func (d *BoxDetector) tile(h, y int) []Span {
	if d.boxHeight <= 0 {
		return nil
	}
	var spans []Span
	for y+d.boxHeight <= h {
		spans = append(spans, Span{Y0: y, Y1: y + d.boxHeight})
		y += d.boxHeight
	}
	if h-y >= d.minTail && h > y {
		spans = append(spans, Span{Y0: y, Y1: h})
	}
	return spans
}
