package vocab

import "fmt"

// Color is a spark category.
type Color string

const (
	NoColor Color = ""
	Blue    Color = "blue"
	Pink    Color = "pink"
	Green   Color = "green"
	White   Color = "white"
)

// Colors lists every color in matching order.
var Colors = []Color{Blue, Pink, Green, White}

// ParseColor converts a lowercase color name.
func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if string(c) == s {
			return c, nil
		}
	}
	return NoColor, fmt.Errorf("unknown spark color %q", s)
}

// Rank is the position of c in Colors, len(Colors) for unknown values.
func (c Color) Rank() int {
	for i, known := range Colors {
		if known == c {
			return i
		}
	}
	return len(Colors)
}
