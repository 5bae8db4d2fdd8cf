package geometry

import "fmt"

// Grid is the picture-plane sampling lattice in pixel units.
//
// Y holds Width*(Interp+1)+1 horizontal sample positions, centred on the
// mirror axis. Z holds the Height+1 pixel-row boundaries measured up from the
// table. Both are strictly increasing. Grid rows are addressed top-down:
// row 0 is the top edge of the image (z = Height).
type Grid struct {
	Y      []float64
	Z      []float64
	Width  int
	Height int
	Interp int
}

// HorizontalOffset is subtracted from every column position so that the image
// is centred on the cylinder axis. Width/2 is used for every width, odd or
// even, so the grid is always symmetric about y = 0.
func HorizontalOffset(width int) float64 {
	return 0.5 * float64(width)
}

// NewGrid builds the sampling grid for a width x height source with interp
// extra samples between adjacent pixel columns.
func NewGrid(width, height, interp int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, &CapacityError{What: "grid", Width: width, Height: height}
	}
	if err := ValidateInterpolation(interp); err != nil {
		return nil, err
	}

	steps := interp + 1
	hOffset := HorizontalOffset(width)

	y := make([]float64, width*steps+1)
	for i := range y {
		y[i] = float64(i)/float64(steps) - hOffset
	}

	z := make([]float64, height+1)
	for k := range z {
		z[k] = float64(k)
	}

	return &Grid{Y: y, Z: z, Width: width, Height: height, Interp: interp}, nil
}

// Stride is the number of grid points in one row.
func (g *Grid) Stride() int { return len(g.Y) }

// Rows is the number of grid rows (pixel rows + 1).
func (g *Grid) Rows() int { return len(g.Z) }

// ZAt returns the picture-plane height of grid row `row`, counting from the top.
func (g *Grid) ZAt(row int) float64 {
	return g.Z[g.Height-row]
}

// Points returns the total number of grid points.
func (g *Grid) Points() int { return g.Stride() * g.Rows() }

func (g *Grid) String() string {
	return fmt.Sprintf("grid %dx%d n=%d (%d points)", g.Width, g.Height, g.Interp, g.Points())
}
