package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

func TestLimiter_Bounded(t *testing.T) {
	l := NewLimiter(2)
	require.True(t, l.TryAcquire())
	require.NoError(t, l.Acquire(context.Background()))
	assert.False(t, l.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)

	s := l.Stats()
	assert.Equal(t, LimiterStats{Limit: 2, Active: 2, Peak: 2, Rejected: 2}, s)

	l.Release()
	l.Release()
	assert.Zero(t, l.Stats().Active)
	assert.True(t, l.TryAcquire())
}

func TestLimiter_Unbounded(t *testing.T) {
	l := NewLimiter(0)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
		}()
	}
	wg.Wait()
	s := l.Stats()
	assert.EqualValues(t, 20, s.Active)
	assert.EqualValues(t, 20, s.Peak)
	assert.Zero(t, s.Limit)
}

func TestGetMemStats(t *testing.T) {
	s := GetMemStats()
	assert.Positive(t, s.SysBytes)
	assert.Positive(t, s.Goroutines)
}

func TestEstimates(t *testing.T) {
	size := geometry.Size{Width: 2, Height: 2}
	// 3x3 points, four float64 vectors
	assert.EqualValues(t, 9*4*8, EstimateGridBytes(size, 0))
	assert.EqualValues(t, 40*30*4, EstimateCanvasBytes(image.Pt(40, 30)))
}

func TestProfiler(t *testing.T) {
	var p Profiler
	p.Record(nil)
	p.Record(&Report{
		Timings:  Timings{MappingNs: 2_000_000, RenderingNs: 4_000_000, TotalNs: 8_000_000},
		Polygons: rasterStats(5),
	})
	snap := p.Snapshot()
	assert.EqualValues(t, 1, snap["transforms"])
	assert.EqualValues(t, 5, snap["polygons"])
	assert.EqualValues(t, 4, snap["render_ms_total"])
	assert.InDelta(t, 8.0, snap["ms_per_transform"], 1e-9)
}

func rasterStats(emitted int) raster.Stats {
	return raster.Stats{Emitted: emitted, Vertices: 4 * emitted}
}
