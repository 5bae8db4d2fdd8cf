package pipeline

import (
	"fmt"
	"image/color"
	"runtime"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// DPIChoices are the printer densities offered by the front ends. Any
// positive density is accepted.
var DPIChoices = []float64{600, 360, 300, 150}

// InterpolationChoices are the interpolation counts offered by the front
// ends. Any n >= 0 is accepted.
var InterpolationChoices = []int{0, 3, 5, 7, 9, 11, 13}

// Options are the render settings of one Transform call. The zero value is
// not usable; start from DefaultOptions.
type Options struct {
	TargetDPI     float64
	Interpolation int
	Mode          raster.Mode
	// IgnoreColor skips source pixels of exactly this colour (nil: none).
	IgnoreColor      color.Color
	DrawCylinderBase bool
	// Background fills the canvas before drawing; alpha 0 keeps it
	// transparent.
	Background color.Color

	// Workers bounds the grid-mapping pool (0: runtime.NumCPU()).
	Workers int
	// Resample names the imaging filter used when the source is downscaled.
	Resample string
	// MaxCanvasSide caps either side of the output raster (0: no cap).
	MaxCanvasSide int
	Progress      ProgressCallback
}

// DefaultOptions returns the desktop front end defaults:
// 600 dpi, no interpolation, high quality, cylinder base drawn, flattened to
// white.
func DefaultOptions() Options {
	return Options{
		TargetDPI:        600,
		Interpolation:    0,
		Mode:             raster.ModeHQ,
		DrawCylinderBase: true,
		Background:       color.White,
		Workers:          runtime.NumCPU(),
		Resample:         utils.DefaultResampleFilter,
		MaxCanvasSide:    compose.DefaultMaxCanvasSide,
	}
}

// WithIgnoreWhite returns a copy that skips pure white source pixels.
func (o Options) WithIgnoreWhite() Options {
	o.IgnoreColor = color.White
	return o
}

// WithTransparentBackground returns a copy with a transparent canvas.
func (o Options) WithTransparentBackground() Options {
	o.Background = color.Transparent
	return o
}

// IgnoresWhite reports whether the ignore colour is pure white.
func (o Options) IgnoresWhite() bool {
	return o.IgnoreColor != nil && utils.SameColor(o.IgnoreColor, color.White)
}

// Transparent reports whether the canvas background is left transparent.
func (o Options) Transparent() bool {
	if o.Background == nil {
		return true
	}
	_, _, _, a := o.Background.RGBA()
	return a == 0
}

// Validate checks the render settings.
func (o Options) Validate() error {
	if err := geometry.ValidateDPI(o.TargetDPI); err != nil {
		return err
	}
	if err := geometry.ValidateInterpolation(o.Interpolation); err != nil {
		return err
	}
	if o.Mode != raster.ModeHQ && o.Mode != raster.ModeLowRAM {
		return &geometry.ParameterError{Field: "mode", Value: float64(o.Mode), Reason: "unknown render mode"}
	}
	if o.Workers < 0 {
		return &geometry.ParameterError{Field: "workers", Value: float64(o.Workers), Reason: "must not be negative"}
	}
	if o.MaxCanvasSide < 0 {
		return &geometry.ParameterError{
			Field: "max_canvas_side", Value: float64(o.MaxCanvasSide), Reason: "must not be negative",
		}
	}
	if _, err := utils.ParseResampleFilter(o.Resample); err != nil {
		return fmt.Errorf("%w: %w", geometry.ErrInvalidGeometry, err)
	}
	return nil
}

func (o Options) progress() ProgressCallback {
	if o.Progress == nil {
		return NoOpProgressCallback{}
	}
	return o.Progress
}
