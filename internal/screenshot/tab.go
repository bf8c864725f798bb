package screenshot

import (
	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/pkg/colorutil"
	"sparkscan/pkg/geometry"
)

// Tab is the profile tab that is selected in a screenshot.
type Tab int

const (
	Unknown Tab = iota
	Inspiration
	Skills
)

func (t Tab) String() string {
	switch t {
	case Inspiration:
		return "inspiration"
	case Skills:
		return "skills"
	default:
		return "unknown"
	}
}

// ClassifyTab looks for the highlighted (green) tab button. Inspiration wins
// when both buttons pass the threshold.
func ClassifyTab(img gocv.Mat, cfg config.TabConfig) Tab {
	if BandRatio(img, cfg.Inspiration, cfg.Green) > cfg.MinRatio {
		return Inspiration
	}
	if BandRatio(img, cfg.Skills, cfg.Green) > cfg.MinRatio {
		return Skills
	}
	return Unknown
}

// BandRatio returns the fraction of pixels of img inside rect whose HSV
// value lies in band. The rectangle is clamped to the image; an empty
// intersection gives 0.
func BandRatio(img gocv.Mat, rect geometry.RectInt, band colorutil.HSVRange) float64 {
	if img.Empty() {
		return 0
	}
	r := rect.Clamp(img.Cols(), img.Rows())
	if r.Empty() {
		return 0
	}
	roi := img.Region(r.ToImageRect())
	defer roi.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(roi, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lo, hi := band.Lower, band.Upper
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(lo[0], lo[1], lo[2], 0),
		gocv.NewScalar(hi[0], hi[1], hi[2], 0),
		&mask)

	return float64(gocv.CountNonZero(mask)) / float64(r.Area())
}
