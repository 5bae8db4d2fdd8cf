package raster

import (
	"context"
	"errors"
	"image"
	"image/color"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// Stats summarises one Render call.
type Stats struct {
	Emitted  int `json:"emitted" yaml:"emitted"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Vertices int `json:"vertices" yaml:"vertices"`
}

// Rasterizer paints pixel polygons onto a canvas.
type Rasterizer struct {
	canvas *image.RGBA
	opts   Options
	fill   *filler
	ring   []utils.Point
}

// NewRasterizer creates a rasterizer drawing onto canvas.
func NewRasterizer(canvas *image.RGBA, opts Options) *Rasterizer {
	return &Rasterizer{
		canvas: canvas,
		opts:   opts,
		fill:   newFiller(canvas),
	}
}

// Canvas returns the canvas being drawn on.
func (r *Rasterizer) Canvas() *image.RGBA { return r.canvas }

// Render paints one polygon per source pixel in scan order (rows top to
// bottom, columns left to right). Fully transparent pixels and pixels equal
// to the ignore colour are skipped. Painting is serial so the output does
// not depend on scheduling.
func (r *Rasterizer) Render(ctx context.Context, src image.Image, g *CanvasGrid, interp int) (Stats, error) {
	var stats Stats
	if r.canvas == nil {
		return stats, errors.New("raster: nil canvas")
	}
	if src == nil {
		return stats, errors.New("raster: nil source image")
	}
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if err := g.Validate(width, height, interp); err != nil {
		return stats, err
	}

	for row := range height {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for col := range width {
			c := src.At(b.Min.X+col, b.Min.Y+row)
			if r.skip(c) {
				stats.Skipped++
				continue
			}
			r.ring = PixelPolygon(g, row, col, interp, r.ring)
			r.FillPolygon(r.ring, c)
			stats.Emitted++
			stats.Vertices += len(r.ring)
		}
		if r.opts.Progress != nil {
			r.opts.Progress(row+1, height)
		}
	}
	return stats, nil
}

func (r *Rasterizer) skip(c color.Color) bool {
	if _, _, _, a := c.RGBA(); a == 0 {
		return true
	}
	return r.opts.IgnoreColor != nil && utils.SameColor(c, r.opts.IgnoreColor)
}

func (r *Rasterizer) paint(ring []utils.Point, c color.Color) {
	if r.opts.Mode == ModeLowRAM {
		r.fill.fillAliased(ring, c)
		return
	}
	r.fill.fillHQ(ring, c, true)
}

// FillPolygon paints a single closed ring with the rasterizer's mode.
func (r *Rasterizer) FillPolygon(ring []utils.Point, c color.Color) {
	if len(ring) < 3 || r.canvas == nil {
		return
	}
	r.paint(ring, c)
}

// StrokeCircle draws a 1 px circle outline.
func (r *Rasterizer) StrokeCircle(cx, cy, radius float64, c color.Color) {
	if r.canvas == nil {
		return
	}
	r.fill.strokeCircle(cx, cy, radius, 1, c)
}
