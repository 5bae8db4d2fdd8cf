package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSizeImage_Properties checks purity and that in-bounds sources are untouched.
func TestSizeImage_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	p := goldenParams()
	maxW, maxH, _ := p.PicturePlane()

	properties.Property("sizing is deterministic", prop.ForAll(
		func(w, h int, dpi float64) bool {
			a, errA := SizeImage(w, h, p, dpi)
			b, errB := SizeImage(w, h, p, dpi)
			return a == b && (errA == nil) == (errB == nil)
		},
		gen.IntRange(1, 6000),
		gen.IntRange(1, 6000),
		gen.Float64Range(50, 600),
	))

	properties.Property("in-bounds sources keep their dimensions", prop.ForAll(
		func(w, h int, dpi float64) bool {
			size, err := SizeImage(w, h, p, dpi)

			native, dim := float64(h)/maxH, h
			if float64(w)/float64(h) > maxW/maxH {
				native, dim = float64(w)/maxW, w
			}
			inBounds := native/dpi <= MaxNativeRatio && dim <= MaxSourcePixels

			if err != nil {
				// Only a resample can floor a side to zero.
				return !inBounds && errors.Is(err, ErrCapacityExceeded)
			}
			if inBounds {
				return !size.Resized && size.Width == w && size.Height == h
			}
			return size.Resized
		},
		gen.IntRange(1, 3000),
		gen.IntRange(1, 3000),
		gen.Float64Range(50, 600),
	))

	properties.TestingRun(t)
}

// TestNewGrid_Properties checks the grid lengths, ordering and symmetry.
func TestNewGrid_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("grid lengths and strict ordering", prop.ForAll(
		func(w, h, n int) bool {
			g, err := NewGrid(w, h, n)
			if err != nil {
				return false
			}
			if len(g.Y) != w*(n+1)+1 || len(g.Z) != h+1 {
				return false
			}
			for i := 1; i < len(g.Y); i++ {
				if g.Y[i] <= g.Y[i-1] {
					return false
				}
			}
			for k := 1; k < len(g.Z); k++ {
				if g.Z[k] <= g.Z[k-1] {
					return false
				}
			}
			return g.Y[0] == -g.Y[len(g.Y)-1] && g.ZAt(0) == float64(h)
		},
		gen.IntRange(1, 200),
		gen.IntRange(1, 200),
		gen.IntRange(0, 13),
	))

	properties.TestingRun(t)
}

// TestMapper_Properties checks the mirror symmetry of the reflection.
func TestMapper_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	m := NewMapper(goldenParams().Scaled(100))

	properties.Property("points inside the mirror width always map", prop.ForAll(
		func(py, pz float64) bool {
			x, y, err := m.Map(py, pz)
			return err == nil && !math.IsNaN(x) && !math.IsNaN(y)
		},
		gen.Float64Range(-199, 199),
		gen.Float64Range(0, 250),
	))

	properties.Property("mapping is symmetric about the viewing plane", prop.ForAll(
		func(py, pz float64) bool {
			x1, y1, err1 := m.Map(py, pz)
			x2, y2, err2 := m.Map(-py, pz)
			if err1 != nil || err2 != nil {
				return false
			}
			return math.Abs(x1-x2) < 1e-9 && math.Abs(y1+y2) < 1e-9
		},
		gen.Float64Range(-199, 199),
		gen.Float64Range(0, 250),
	))

	properties.TestingRun(t)
}
