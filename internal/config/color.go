package config

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

var namedColors = map[string]color.Color{
	"white":       color.White,
	"black":       color.Black,
	"transparent": color.Transparent,
	"none":        color.Transparent,
}

// ParseColor accepts a colour name (white, black, transparent) or a hex
// value "#rrggbb" / "#rrggbbaa" (the leading # is optional).
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	raw := strings.TrimPrefix(s, "#")
	if len(raw) != 6 && len(raw) != 8 {
		return nil, fmt.Errorf("invalid colour %q (use white, black, transparent or #rrggbb[aa])", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}
