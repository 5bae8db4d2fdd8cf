package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// squareGrid returns a grid whose points sit on a regular lattice with the
// given cell size, like an undistorted picture plane.
func squareGrid(width, height, interp int, cell float64) *CanvasGrid {
	steps := interp + 1
	stride := width*steps + 1
	rows := height + 1
	g := &CanvasGrid{
		X:      make([]float64, stride*rows),
		Y:      make([]float64, stride*rows),
		Stride: stride,
		Rows:   rows,
	}
	for row := range rows {
		for i := range stride {
			g.X[row*stride+i] = float64(i) / float64(steps) * cell
			g.Y[row*stride+i] = float64(row) * cell
		}
	}
	return g
}

func TestPixelPolygon(t *testing.T) {
	g := squareGrid(2, 2, 0, 10)

	ring := PixelPolygon(g, 0, 0, 0, nil)
	assert.Equal(t, []utils.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, ring)

	ring = PixelPolygon(g, 1, 1, 0, ring)
	assert.Equal(t, []utils.Point{{10, 10}, {20, 10}, {20, 20}, {10, 20}}, ring)
}

func TestPixelPolygon_Interpolation(t *testing.T) {
	coarse := squareGrid(3, 2, 0, 12)

	for _, n := range []int{0, 1, 3, 5, 13} {
		g := squareGrid(3, 2, n, 12)
		ring := PixelPolygon(g, 1, 2, n, nil)
		require.Len(t, ring, VertexCount(n))

		// Outer corners do not depend on n.
		ref := PixelPolygon(coarse, 1, 2, 0, nil)
		assert.Equal(t, ref[0], ring[0])
		assert.Equal(t, ref[1], ring[n+1])
		assert.Equal(t, ref[2], ring[n+2])
		assert.Equal(t, ref[3], ring[len(ring)-1])
	}
}

func TestCanvasGridValidate(t *testing.T) {
	g := squareGrid(4, 3, 1, 1)
	require.NoError(t, g.Validate(4, 3, 1))
	require.Error(t, g.Validate(4, 3, 0))
	require.Error(t, g.Validate(3, 3, 1))

	g.X = g.X[:5]
	require.Error(t, g.Validate(4, 3, 1))

	var nilGrid *CanvasGrid
	require.Error(t, nilGrid.Validate(1, 1, 0))
}

func TestModeParsing(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"hq", ModeHQ, true},
		{"", ModeHQ, true},
		{"HQ", ModeHQ, true},
		{"lowram", ModeLowRAM, true},
		{"LoRAM", ModeLowRAM, true},
		{"ultra", ModeHQ, false},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if !tt.ok {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Equal(t, "lowram", ModeLowRAM.String())
	assert.Equal(t, "LoRAM", ModeLowRAM.Tag())
	assert.Equal(t, "HQ", ModeHQ.Tag())

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("low-ram")))
	assert.Equal(t, ModeLowRAM, m)
	text, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "lowram", string(text))
}
