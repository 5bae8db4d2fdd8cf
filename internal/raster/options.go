// Package raster scan-converts mapped pixel cells onto the output canvas.
//
// Every source pixel becomes one polygon whose corners are the mapped grid
// points around it. Polygons are painted in scan order with source-over
// compositing using golang.org/x/image/vector.
package raster

import (
	"fmt"
	"image/color"
	"strings"
)

// Mode selects the fill quality.
type Mode int

const (
	// ModeHQ fills anti-aliased and strokes every polygon with a 1 px
	// outline of the same colour so adjacent cells leave no seams.
	ModeHQ Mode = iota
	// ModeLowRAM fills aliased (coverage thresholded at 50%) with no stroke.
	ModeLowRAM
)

func (m Mode) String() string {
	switch m {
	case ModeHQ:
		return "hq"
	case ModeLowRAM:
		return "lowram"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Tag is the short label used in generated file names.
func (m Mode) Tag() string {
	if m == ModeLowRAM {
		return "LoRAM"
	}
	return "HQ"
}

// ParseMode accepts "hq" or "lowram" (and a few spellings of each).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hq", "high", "high-quality":
		return ModeHQ, nil
	case "lowram", "low-ram", "loram", "low":
		return ModeLowRAM, nil
	default:
		return ModeHQ, fmt.Errorf("unknown render mode %q (valid: hq, lowram)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ProgressFunc is called after each source row is painted.
type ProgressFunc func(done, total int)

// Options control how polygons are painted.
type Options struct {
	Mode Mode
	// IgnoreColor, when set, skips source pixels of exactly this colour.
	IgnoreColor color.Color
	Progress    ProgressFunc
}
