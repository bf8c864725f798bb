package colorutil

import (
	"math"
	"testing"
)

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		r, g, b float64
		h, s, v float64
	}{
		{255, 0, 0, 0, 255, 255},
		{0, 255, 0, 60, 255, 255},
		{0, 0, 255, 120, 255, 255},
		{255, 255, 0, 30, 255, 255},
		{0, 0, 0, 0, 0, 0},
		{255, 255, 255, 0, 0, 255},
	}
	for _, tt := range tests {
		h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
		if math.Abs(h-tt.h) > 0.01 || math.Abs(s-tt.s) > 0.01 || math.Abs(v-tt.v) > 0.01 {
			t.Errorf("RGBToHSV(%v,%v,%v) = (%v,%v,%v), want (%v,%v,%v)",
				tt.r, tt.g, tt.b, h, s, v, tt.h, tt.s, tt.v)
		}
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#f0bd1a")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if c.R != 0xf0 || c.G != 0xbd || c.B != 0x1a || c.A != 255 {
		t.Errorf("ParseHex = %+v", c)
	}
	if _, err := ParseHex("xyz"); err == nil {
		t.Error("expected error for short input")
	}
}

func TestBandAround(t *testing.T) {
	c, _ := ParseHex("#32c8e6")
	band := BandAround(c, 8, 60)
	if !band.Valid() {
		t.Fatalf("band not valid: %+v", band)
	}
	h, s, v := RGBToHSV(float64(c.R), float64(c.G), float64(c.B))
	if !band.Contains(HSV{h, s, v}) {
		t.Errorf("band %+v does not contain its own center", band)
	}
	if band.Contains(HSV{0, 255, 255}) {
		t.Error("band should not contain pure red")
	}
}
