// Package geometry provides the small set of geometric types shared by the
// zone detector, the region parser and the OCR adapter.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromCorners builds a RectInt from corner coordinates (x2, y2 exclusive).
func FromCorners(x1, y1, x2, y2 int) RectInt {
	return RectInt{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// FromImageRect converts an image.Rectangle.
func FromImageRect(r image.Rectangle) RectInt {
	return FromCorners(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// X2 returns the exclusive right edge.
func (r RectInt) X2() int { return r.X + r.Width }

// Y2 returns the exclusive bottom edge.
func (r RectInt) Y2() int { return r.Y + r.Height }

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the area in pixels, 0 for empty rectangles.
func (r RectInt) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the center point of the rectangle.
func (r RectInt) Center() Point2D {
	return Point2D{X: float64(r.X) + float64(r.Width)/2, Y: float64(r.Y) + float64(r.Height)/2}
}

// Intersect returns the overlapping rectangle, empty if none.
func (r RectInt) Intersect(other RectInt) RectInt {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X2(), other.X2())
	y2 := min(r.Y2(), other.Y2())
	if x2 <= x1 || y2 <= y1 {
		return RectInt{}
	}
	return FromCorners(x1, y1, x2, y2)
}

// IoU returns the intersection-over-union ratio of two rectangles.
func (r RectInt) IoU(other RectInt) float64 {
	inter := r.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	return float64(inter) / float64(union)
}

// Clamp restricts the rectangle to a width x height canvas.
func (r RectInt) Clamp(width, height int) RectInt {
	return r.Intersect(RectInt{Width: width, Height: height})
}

// ToImageRect converts to image.Rectangle for gocv Region calls.
func (r RectInt) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X2(), r.Y2())
}

// Less orders rectangles by (X, Y), the reading order used for zones.
func (r RectInt) Less(other RectInt) bool {
	if r.X != other.X {
		return r.X < other.X
	}
	return r.Y < other.Y
}
