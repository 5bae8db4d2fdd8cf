package raster

import (
	"errors"
	"fmt"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// CanvasGrid is a mapped grid already projected into canvas pixels,
// row-major with row 0 at the top of the source.
type CanvasGrid struct {
	X      []float64
	Y      []float64
	Stride int
	Rows   int
}

// Validate checks that the grid matches a width x height source sampled with
// interp extra points per column.
func (g *CanvasGrid) Validate(width, height, interp int) error {
	if g == nil {
		return errors.New("raster: nil canvas grid")
	}
	if g.Stride != width*(interp+1)+1 || g.Rows != height+1 {
		return fmt.Errorf("raster: grid %dx%d does not match %dx%d source with n=%d",
			g.Stride, g.Rows, width, height, interp)
	}
	if len(g.X) != g.Stride*g.Rows || len(g.Y) != len(g.X) {
		return fmt.Errorf("raster: grid has %d/%d points, want %d", len(g.X), len(g.Y), g.Stride*g.Rows)
	}
	return nil
}

func (g *CanvasGrid) point(i int) utils.Point {
	return utils.Point{X: g.X[i], Y: g.Y[i]}
}

// VertexCount is the number of vertices of every pixel polygon.
func VertexCount(interp int) int { return 2 * (interp + 2) }

// PixelPolygon builds the ring for the source pixel at (row, col): the n+2
// points of the grid row above it left to right, then the n+2 points of the
// row below it right to left. The ring is appended to dst[:0].
func PixelPolygon(g *CanvasGrid, row, col, interp int, dst []utils.Point) []utils.Point {
	steps := interp + 1
	top := row*g.Stride + col*steps
	bottom := top + g.Stride

	dst = dst[:0]
	for i := top; i <= top+steps; i++ {
		dst = append(dst, g.point(i))
	}
	for i := bottom + steps; i >= bottom; i-- {
		dst = append(dst, g.point(i))
	}
	return dst
}
