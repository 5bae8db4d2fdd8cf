package compose

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

var goldenParams = geometry.PhysicalParameters{Radius: 2, Height: 3, Distance: 10, ViewHeight: 5}

// mapped sizes a w x h source at 150 dpi and maps its grid.
func mapped(t *testing.T, w, h, n int) (geometry.Size, *geometry.MappedGrid) {
	t.Helper()
	size, err := geometry.SizeImage(w, h, goldenParams, 150)
	require.NoError(t, err)
	g, err := geometry.NewGrid(size.Width, size.Height, n)
	require.NoError(t, err)
	mg, err := geometry.NewMapper(goldenParams.Scaled(size.NativeDPI)).MapGrid(context.Background(), g, 0)
	require.NoError(t, err)
	return size, mg
}

func TestComputeOffset_Golden(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		cylinder bool
		minX     float64
		minY     float64
	}{
		{"checkerboard with cylinder", 2, 2, true, -2, -10},
		{"checkerboard without cylinder", 2, 2, false, 4, -10},
		{"photo", 4000, 3000, true, -900, -5831},
		{"wide", 100, 50, true, -139, -240},
		{"wide without cylinder", 100, 50, false, -139, -240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, mg := mapped(t, tt.w, tt.h, 0)
			off, err := ComputeOffset(mg, goldenParams.Radius*size.NativeDPI, tt.cylinder)
			require.NoError(t, err)
			assert.InDelta(t, tt.minX, off.MinX, 0)
			assert.InDelta(t, tt.minY, off.MinY, 0)
		})
	}
}

// The minimum y is searched over the first quarter of the top row only.
func TestComputeOffset_QuarterRowWindow(t *testing.T) {
	mg := &geometry.MappedGrid{
		X:      []float64{0, 0, 0, 0, 0, 0, 0, 0, 0},
		Y:      []float64{-1, -3.5, -2, -50, -50, -50, -50, -50, -50},
		Stride: 9,
		Rows:   1,
	}
	off, err := ComputeOffset(mg, 1, false)
	require.NoError(t, err)
	assert.InDelta(t, -4.0, off.MinY, 0)

	_, err = ComputeOffset(&geometry.MappedGrid{}, 1, false)
	require.Error(t, err)
	_, err = ComputeOffset(nil, 1, false)
	require.Error(t, err)
}

func TestContain(t *testing.T) {
	tests := []struct {
		name     string
		cylinder bool
		minX     float64
		minY     float64
		moved    bool
	}{
		// The bottom row reaches x = 1.85 native px, left of the top-left corner.
		{"checkerboard without cylinder", false, 1, -10, true},
		{"checkerboard with cylinder", true, -2, -10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, mg := mapped(t, 2, 2, 0)
			rPx := goldenParams.Radius * size.NativeDPI
			off, err := ComputeOffset(mg, rPx, tt.cylinder)
			require.NoError(t, err)

			got, moved := Contain(off, mg, rPx, tt.cylinder)
			assert.Equal(t, tt.moved, moved)
			assert.InDelta(t, tt.minX, got.MinX, 0)
			assert.InDelta(t, tt.minY, got.MinY, 0)

			cg := Project(mg, got, Scale(size.NativeDPI, 150))
			for i := range cg.X {
				assert.GreaterOrEqual(t, cg.X[i], 0.0)
				assert.GreaterOrEqual(t, cg.Y[i], 0.0)
			}
		})
	}
}

func TestContain_BeyondQuarterRowAndCircle(t *testing.T) {
	mg := &geometry.MappedGrid{
		X:      []float64{0, 0, 0, 0, 0, 0, 0, 0, 0},
		Y:      []float64{-1, -3.5, -2, -50, -50, -50, -50, -50, -50},
		Stride: 9,
		Rows:   1,
	}
	got, moved := Contain(Offset{MinX: 0, MinY: -4}, mg, 1, false)
	assert.True(t, moved)
	assert.Equal(t, Offset{MinX: 0, MinY: -50}, got)

	// A drawn base pushes y left of -ceil(radius) even when the grid does not.
	small := &geometry.MappedGrid{X: []float64{5, 6}, Y: []float64{-1, 1}, Stride: 2, Rows: 1}
	got, moved = Contain(Offset{MinX: -8, MinY: -1}, small, 7.5, true)
	assert.True(t, moved)
	assert.Equal(t, Offset{MinX: -8, MinY: -8}, got)

	got, moved = Contain(Offset{MinX: 1}, nil, 1, true)
	assert.False(t, moved)
	assert.Equal(t, Offset{MinX: 1}, got)
}

func TestProject(t *testing.T) {
	mg := &geometry.MappedGrid{X: []float64{1, 2}, Y: []float64{3, 4}, Stride: 2, Rows: 1}
	cg := Project(mg, Offset{MinX: 1, MinY: 3}, 0.5)
	assert.Equal(t, []float64{0, 2}, cg.X)
	assert.Equal(t, []float64{0, 2}, cg.Y)
	assert.Equal(t, 2, cg.Stride)
	assert.Equal(t, 1, cg.Rows)

	// The mapped grid is left untouched.
	assert.Equal(t, []float64{1, 2}, mg.X)
}

func TestCanvasSize_Golden(t *testing.T) {
	size, mg := mapped(t, 2, 2, 0)
	off, err := ComputeOffset(mg, goldenParams.Radius*size.NativeDPI, true)
	require.NoError(t, err)

	s := Scale(size.NativeDPI, 150)
	assert.InDelta(t, 0.8/150, s, 1e-15)

	cg := Project(mg, off, s)
	circle := CylinderBase(off, s, goldenParams.Radius, 150)
	assert.InDelta(t, 1875, circle.CX, 1e-6)
	assert.InDelta(t, 375, circle.CY, 1e-6)
	assert.InDelta(t, 300, circle.Radius, 1e-12)

	canvas, err := CanvasSize(cg, &circle, DefaultMaxCanvasSide)
	require.NoError(t, err)
	assert.InDelta(t, 3689, canvas.X, 1)
	assert.InDelta(t, 2475, canvas.Y, 1)

	_, err = CanvasSize(cg, &circle, 1000)
	require.ErrorIs(t, err, geometry.ErrCapacityExceeded)
	var cerr *geometry.CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1000, cerr.Limit)
}

func TestCanvasSize_IncludesCircle(t *testing.T) {
	cg := &raster.CanvasGrid{X: []float64{1, 10}, Y: []float64{2, 5}, Stride: 2, Rows: 1}

	size, err := CanvasSize(cg, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 5), size)

	size, err = CanvasSize(cg, &Circle{CX: 20, CY: 30, Radius: 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(25, 35), size)

	_, err = CanvasSize(&raster.CanvasGrid{}, nil, 0)
	require.Error(t, err)
}

func TestNewCanvas(t *testing.T) {
	transparent := NewCanvas(image.Pt(3, 2), color.Transparent)
	assert.Equal(t, image.Rect(0, 0, 3, 2), transparent.Bounds())
	for _, v := range transparent.Pix {
		require.Zero(t, v)
	}

	white := NewCanvas(image.Pt(3, 2), color.White)
	for _, v := range white.Pix {
		require.Equal(t, uint8(0xff), v)
	}

	assert.Equal(t, color.RGBA{}, NewCanvas(image.Pt(1, 1), nil).RGBAAt(0, 0))
}

func TestNewMetadata(t *testing.T) {
	m := NewMetadata(254, image.Pt(508, 254))
	assert.InDelta(t, 10.0, m.PixelsPerMM, 1e-12)
	assert.InDelta(t, 0.1, m.PixelSizeMM, 1e-12)
	assert.Equal(t, 508, m.Width)

	w, h := m.PrintSize()
	assert.InDelta(t, 2.0, w, 1e-12)
	assert.InDelta(t, 1.0, h, 1e-12)
}
