package spark

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/pkg/colorutil"
)

// StarCounter counts the filled star glyphs along the bottom of a spark box.
type StarCounter struct {
	band        colorutil.HSVRange
	areaMin     int
	areaMax     int
	topFraction float64
	leftMargin  int
	maxStars    int
}

// NewStarCounter builds a counter from the spark configuration.
func NewStarCounter(cfg config.SparkConfig) *StarCounter {
	return &StarCounter{
		band:        cfg.StarBand,
		areaMin:     cfg.StarAreaMin,
		areaMax:     cfg.StarAreaMax,
		topFraction: cfg.StarTopFraction,
		leftMargin:  cfg.StarLeftMargin,
		maxStars:    cfg.MaxStars,
	}
}

// Count returns the number of stars in a BGR box image, between 0 and the
// configured maximum. Only the lower part of the box is inspected and a
// left margin is skipped so the portrait frame is never counted.
func (s *StarCounter) Count(box gocv.Mat) int {
	if box.Empty() {
		return 0
	}
	h, w := box.Rows(), box.Cols()
	top := int(math.Floor(float64(h)*s.topFraction + 1e-9))
	if top >= h || s.leftMargin >= w {
		return 0
	}

	strip := box.Region(image.Rect(s.leftMargin, top, w, h))
	defer strip.Close()

	mask := s.mask(strip)
	defer mask.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(mask, &labels, &stats, &centroids)
	count := 0
	// label 0 is the background
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area > s.areaMin && area < s.areaMax {
			count++
		}
	}
	return min(count, s.maxStars)
}

// mask thresholds the strip to the star color band and cleans it with a
// 3x3 open then close.
func (s *StarCounter) mask(strip gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(strip, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv, hsvScalar(s.band.Lower), hsvScalar(s.band.Upper), &mask)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)
	return mask
}

func hsvScalar(c colorutil.HSV) gocv.Scalar {
	return gocv.NewScalar(c[0], c[1], c[2], 0)
}
