package tileparams

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arxos/tile-server/internal/tileerr"
)

// Colour is an RGB or RGBA colour with 0..255 channels. Alpha is only
// meaningful when HasAlpha is true; callers that need a fixed channel count
// should use RGBA().
type Colour struct {
	R, G, B, A uint8
	HasAlpha   bool
}

// RGBA returns the four channels, defaulting alpha to 255 when the colour
// was parsed without one.
func (c Colour) RGBA() (r, g, b, a uint8) {
	a = 255
	if c.HasAlpha {
		a = c.A
	}
	return c.R, c.G, c.B, a
}

// Hex renders the colour as a "#rrggbb" string, alpha dropped.
func (c Colour) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RangeTo linearly interpolates n colours from c to other in RGB space,
// inclusive of both endpoints, so n must be >= 2 for a meaningful range.
func (c Colour) RangeTo(other Colour, n int) []Colour {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []Colour{c}
	}
	out := make([]Colour, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		out[i] = Colour{
			R: lerpChannel(c.R, other.R, t),
			G: lerpChannel(c.G, other.G, t),
			B: lerpChannel(c.B, other.B, t),
		}
	}
	return out
}

func lerpChannel(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// ParseColour accepts a 3- or 4-int tuple literal, a "#rgb"/"#rrggbb" hex
// string, or a bracket-delimited comma-separated list of 3 or 4 ints, and
// returns the parsed Colour. Anything else is InvalidColour.
func ParseColour(value string) (Colour, error) {
	trimmed := strings.TrimSpace(value)

	if strings.HasPrefix(trimmed, "#") {
		return parseHexColour(trimmed)
	}

	if looksBracketed(trimmed) {
		return parseTupleColour(trimmed)
	}

	return Colour{}, tileerr.InvalidColour(value, fmt.Errorf("unrecognised colour literal"))
}

func looksBracketed(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	opens := first == '(' || first == '['
	closes := last == ')' || last == ']'
	return opens && closes
}

func parseHexColour(s string) (Colour, error) {
	hex := strings.TrimPrefix(s, "#")
	var r, g, b uint8
	switch len(hex) {
	case 3:
		rr, err1 := parseHexDigitPair(string(hex[0]) + string(hex[0]))
		gg, err2 := parseHexDigitPair(string(hex[1]) + string(hex[1]))
		bb, err3 := parseHexDigitPair(string(hex[2]) + string(hex[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("invalid hex digits"))
		}
		r, g, b = rr, gg, bb
	case 6:
		rr, err1 := parseHexDigitPair(hex[0:2])
		gg, err2 := parseHexDigitPair(hex[2:4])
		bb, err3 := parseHexDigitPair(hex[4:6])
		if err1 != nil || err2 != nil || err3 != nil {
			return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("invalid hex digits"))
		}
		r, g, b = rr, gg, bb
	default:
		return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("hex colour must be 3 or 6 digits"))
	}
	return Colour{R: r, G: g, B: b}, nil
}

func parseHexDigitPair(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func parseTupleColour(s string) (Colour, error) {
	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("expected 3 or 4 comma-separated ints"))
	}
	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("non-integer channel %q: %w", p, err))
		}
		if n < 0 || n > 255 {
			return Colour{}, tileerr.InvalidColour(s, fmt.Errorf("channel %d out of range 0..255", n))
		}
		values[i] = n
	}
	c := Colour{R: uint8(values[0]), G: uint8(values[1]), B: uint8(values[2])}
	if len(values) == 4 {
		c.A = uint8(values[3])
		c.HasAlpha = true
	}
	return c, nil
}
