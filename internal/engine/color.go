package engine

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a 24-bit 0xRRGGBB value.
type Color uint32

// InitialColor is the fill color of the target before any trigger.
const InitialColor Color = 0xFF00FF

// NeonPalette is the fixed set of replacement colors.
var NeonPalette = []Color{
	0xFF00FF, // magenta
	0x00FFFF, // cyan
	0xFF3300, // neon orange
	0x39FF14, // neon green
	0xFF0099, // neon pink
	0x00FF00, // lime
	0xFF6600, // orange-red
	0xFFFF00, // yellow
}

// Hex returns the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// ToRGBA converts c to an opaque image/color value.
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, fmt.Errorf("parse color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color(v), nil
}

// MarshalJSON encodes the color as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON decodes a hex string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
