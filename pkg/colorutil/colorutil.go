// Package colorutil provides shared color utilities: HSV conversion in the
// OpenCV convention and HSV bands used for thresholding.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Overlay colors used by debug renderers.
var (
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	h = h / 2

	return h, s, v
}

// HSV is a color in OpenCV HSV space.
type HSV [3]float64

// HSVRange is an inclusive HSV band for cv::inRange style thresholding.
type HSVRange struct {
	Lower HSV `yaml:"lower" json:"lower"`
	Upper HSV `yaml:"upper" json:"upper"`
}

// Contains reports whether c lies inside the band.
func (r HSVRange) Contains(c HSV) bool {
	for i := 0; i < 3; i++ {
		if c[i] < r.Lower[i] || c[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

// Valid reports whether every lower bound is at most its upper bound.
func (r HSVRange) Valid() bool {
	for i := 0; i < 3; i++ {
		if r.Lower[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

// ParseHex parses "#rrggbb" (the leading # is optional).
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// BandAround returns an HSV band centered on an RGB color: +/- hueTol on hue,
// +/- svTol on saturation and value, clipped to OpenCV limits.
func BandAround(c color.RGBA, hueTol, svTol float64) HSVRange {
	h, s, v := RGBToHSV(float64(c.R), float64(c.G), float64(c.B))
	return HSVRange{
		Lower: HSV{math.Max(0, h-hueTol), math.Max(0, s-svTol), math.Max(0, v-svTol)},
		Upper: HSV{math.Min(180, h+hueTol), math.Min(255, s+svTol), math.Min(255, v+svTol)},
	}
}
