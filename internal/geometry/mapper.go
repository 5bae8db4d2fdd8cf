package geometry

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/mempool"
)

// Mapper reflects picture-plane points through the cylinder onto the table.
// All quantities are in pixel units at a single density.
type Mapper struct {
	r, vx, vz float64
}

// NewMapper creates a mapper from parameters already scaled to pixels.
func NewMapper(p ScaledParameters) Mapper {
	return Mapper{r: p.R, vx: p.VX, vz: p.VZ}
}

// Params returns the pixel-unit parameters the mapper was built with.
func (m Mapper) Params() ScaledParameters {
	return ScaledParameters{R: m.r, VX: m.vx, VZ: m.vz}
}

// Map returns the table point (x, y) whose reflection in the mirror is seen
// at picture-plane point (py, pz).
//
// The viewer's ray towards (0, py, pz) hits the cylinder at parameter ts; the
// reflected ray is then followed down to the table. Map fails with a
// *DomainError when the ray misses the cylinder, when pz equals the viewing
// height or when the result is not finite.
func (m Mapper) Map(py, pz float64) (x, y float64, err error) {
	r, vx, vz := m.r, m.vx, m.vz

	if pz == vz {
		return 0, 0, &DomainError{Py: py, Pz: pz, Reason: "point at viewing height"}
	}

	d := py*py + vx*vx
	radicand := r*r*d - (vx*py)*(vx*py)
	if radicand < 0 {
		return 0, 0, &DomainError{Py: py, Pz: pz, Reason: "ray misses the cylinder"}
	}
	ts := (vx*vx - math.Sqrt(radicand)) / d

	dz := vz - pz
	denom := dz * ((ts*py)*(ts*py) + (vx*(1-ts))*(vx*(1-ts)))
	um := (vx * py * (ts*(pz-vz) + vz)) / denom

	x = 2*(vx-ts*(um*py+vx)) + vx*pz/dz
	y = 2*(ts*py+vx*um*(1-ts)) - vz*py/dz

	if !isFinite(x) || !isFinite(y) {
		return 0, 0, &DomainError{Py: py, Pz: pz, Reason: "non-finite reflection"}
	}
	return x, y, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MappedGrid holds the table image of every grid point, row-major with row 0
// at the top of the source.
type MappedGrid struct {
	X      []float64
	Y      []float64
	Stride int
	Rows   int
}

// At returns the mapped point for grid row `row` and column `col`.
func (g *MappedGrid) At(row, col int) (x, y float64) {
	i := row*g.Stride + col
	return g.X[i], g.Y[i]
}

// MapGrid maps every grid point. Rows are independent and are spread over a
// pool of workers (0 means runtime.NumCPU()); each worker writes only its own
// rows, so the result does not depend on scheduling. The first failure
// cancels the remaining rows and is returned.
func (m Mapper) MapGrid(ctx context.Context, g *Grid, workers int) (*MappedGrid, error) {
	if g == nil {
		return nil, fmt.Errorf("map grid: %w", &CapacityError{What: "grid"})
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	rows, stride := g.Rows(), g.Stride()
	if workers > rows {
		workers = rows
	}

	bufs := mempool.GetFloat64Multiple([]int{rows * stride, rows * stride})
	out := &MappedGrid{X: bufs[0], Y: bufs[1], Stride: stride, Rows: rows}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	jobs := make(chan int, rows)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := m.mapRow(g, out, row); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	for row := range rows {
		jobs <- row
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		out.Release()
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}

// Release hands the coordinate buffers back to the pool. The grid must not
// be used afterwards.
func (g *MappedGrid) Release() {
	if g == nil {
		return
	}
	mempool.PutFloat64Multiple([][]float64{g.X, g.Y})
	g.X, g.Y = nil, nil
}

func (m Mapper) mapRow(g *Grid, out *MappedGrid, row int) error {
	pz := g.ZAt(row)
	base := row * out.Stride
	for col, py := range g.Y {
		x, y, err := m.Map(py, pz)
		if err != nil {
			return err
		}
		out.X[base+col] = x
		out.Y[base+col] = y
	}
	return nil
}
