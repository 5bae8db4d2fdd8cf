// Package compose places the mapped grid on the output canvas: it computes
// the translation that keeps the drawing in positive coordinates, scales it
// from the native density to the target density, sizes and allocates the
// canvas and describes the optional cylinder base outline.
package compose

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

// DefaultMaxCanvasSide bounds either side of the output raster.
const DefaultMaxCanvasSide = 16384

// minYWindow is the fraction of the top grid row scanned for the smallest
// mapped y.
const minYWindow = 0.25

// Offset is the translation, in native pixels, applied before scaling.
type Offset struct {
	MinX float64 `json:"min_x" yaml:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y"`
}

// ComputeOffset derives the canvas origin from the top row of the mapped grid.
//
// MinX is the floored x of the top-left corner. When the cylinder base is
// drawn it is lowered to at least -ceil(radiusPx) so the whole circle fits.
// MinY is the floored minimum y over the first quarter of the top row, where
// the leftmost extreme of the drawing lies.
func ComputeOffset(mg *geometry.MappedGrid, radiusPx float64, drawCylinder bool) (Offset, error) {
	if mg == nil || mg.Stride == 0 || mg.Rows == 0 || len(mg.X) < mg.Stride {
		return Offset{}, errors.New("compose: empty mapped grid")
	}

	minX := math.Floor(mg.X[0])
	if drawCylinder {
		if r := -math.Ceil(radiusPx); minX > r {
			minX = r
		}
	}

	// The row holds W*(n+1)+1 points; the window covers W*(n+1)/4 of them.
	window := int(math.Ceil(minYWindow * float64(mg.Stride-1)))
	window = max(1, min(window, mg.Stride))
	minY := math.Floor(floats.Min(mg.Y[:window]))

	return Offset{MinX: minX, MinY: minY}, nil
}

// Contain lowers off until no mapped point, and no part of the cylinder base
// when it is drawn, lands at a negative canvas coordinate. ComputeOffset only
// looks at the top row, which does not bound the drawing for every setup
// (without the base clamp, lower rows reach closer to the mirror than the
// top-left corner). The second result reports whether off moved.
func Contain(off Offset, mg *geometry.MappedGrid, radiusPx float64, drawCylinder bool) (Offset, bool) {
	if mg == nil || len(mg.X) == 0 || len(mg.Y) == 0 {
		return off, false
	}
	out := Offset{
		MinX: math.Min(off.MinX, math.Floor(floats.Min(mg.X))),
		MinY: math.Min(off.MinY, math.Floor(floats.Min(mg.Y))),
	}
	if drawCylinder {
		out.MinY = math.Min(out.MinY, -math.Ceil(radiusPx))
	}
	return out, out != off
}

// Scale is the native-to-target density ratio s. Native pixel distances are
// divided by s to obtain canvas pixels.
func Scale(nativeDPI, targetDPI float64) float64 {
	return nativeDPI / targetDPI
}

// Project converts the mapped grid into canvas pixels. The table's y axis
// becomes the canvas x axis and the table's x axis the canvas y axis.
func Project(mg *geometry.MappedGrid, off Offset, s float64) *raster.CanvasGrid {
	cx := make([]float64, len(mg.Y))
	cy := make([]float64, len(mg.X))
	copy(cx, mg.Y)
	copy(cy, mg.X)

	floats.AddConst(-off.MinY, cx)
	floats.Scale(1/s, cx)
	floats.AddConst(-off.MinX, cy)
	floats.Scale(1/s, cy)

	return &raster.CanvasGrid{X: cx, Y: cy, Stride: mg.Stride, Rows: mg.Rows}
}

// Circle is an outline in canvas pixels.
type Circle struct {
	CX     float64 `json:"cx" yaml:"cx"`
	CY     float64 `json:"cy" yaml:"cy"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// CylinderBase returns the footprint of the mirror on the canvas. The
// cylinder axis is the table origin, so it lands at the negated offset.
func CylinderBase(off Offset, s, radius, targetDPI float64) Circle {
	return Circle{
		CX:     -off.MinY / s,
		CY:     -off.MinX / s,
		Radius: radius * targetDPI,
	}
}

// CanvasSize returns the smallest canvas holding every projected point and,
// if non-nil, the circle outline. Either side above maxSide (when positive)
// fails with a capacity error before anything is allocated.
func CanvasSize(cg *raster.CanvasGrid, circle *Circle, maxSide int) (image.Point, error) {
	if cg == nil || len(cg.X) == 0 {
		return image.Point{}, errors.New("compose: empty canvas grid")
	}
	maxX := floats.Max(cg.X)
	maxY := floats.Max(cg.Y)
	if circle != nil {
		maxX = math.Max(maxX, circle.CX+circle.Radius+0.5)
		maxY = math.Max(maxY, circle.CY+circle.Radius+0.5)
	}
	if math.IsNaN(maxX) || math.IsNaN(maxY) || math.IsInf(maxX, 0) || math.IsInf(maxY, 0) {
		return image.Point{}, &geometry.CapacityError{What: "canvas"}
	}

	w := max(1, int(math.Ceil(maxX)))
	h := max(1, int(math.Ceil(maxY)))
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		return image.Point{}, &geometry.CapacityError{What: "canvas", Width: w, Height: h, Limit: maxSide}
	}
	return image.Pt(w, h), nil
}

// NewCanvas allocates the output raster. A background with zero alpha
// leaves the canvas transparent; any other colour is painted opaque-over.
func NewCanvas(size image.Point, background color.Color) *image.RGBA {
	canvas := image.NewRGBA(image.Rectangle{Max: size})
	if background != nil {
		if _, _, _, a := background.RGBA(); a > 0 {
			draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
		}
	}
	return canvas
}

// Metadata describes the physical density of the output raster.
type Metadata struct {
	DPI         float64 `json:"dpi" yaml:"dpi"`
	PixelsPerMM float64 `json:"pixels_per_mm" yaml:"pixels_per_mm"`
	PixelSizeMM float64 `json:"pixel_size_mm" yaml:"pixel_size_mm"`
	Width       int     `json:"width" yaml:"width"`
	Height      int     `json:"height" yaml:"height"`
}

const mmPerInch = 25.4

// NewMetadata builds the density metadata for a canvas printed at dpi.
func NewMetadata(dpi float64, size image.Point) Metadata {
	return Metadata{
		DPI:         dpi,
		PixelsPerMM: dpi / mmPerInch,
		PixelSizeMM: mmPerInch / dpi,
		Width:       size.X,
		Height:      size.Y,
	}
}

// PrintSize returns the physical size of the canvas in inches.
func (m Metadata) PrintSize() (width, height float64) {
	return float64(m.Width) / m.DPI, float64(m.Height) / m.DPI
}
