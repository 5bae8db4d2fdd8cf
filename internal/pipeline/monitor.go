package pipeline

import (
	"image"
	"runtime"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
)

// MemStats summarizes memory usage information.
type MemStats struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	Goroutines      int    `json:"goroutines"`
}

// GetMemStats captures current memory statistics.
func GetMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		Goroutines:      runtime.NumGoroutine(),
	}
}

// EstimateGridBytes approximates the memory held by the sampling, mapped and
// projected grids for a sampled source of the given size.
func EstimateGridBytes(size geometry.Size, interp int) uint64 {
	points := uint64(size.Width*(interp+1)+1) * uint64(size.Height+1)
	// mapped X/Y plus projected X/Y, float64 each
	return points * 4 * 8
}

// EstimateCanvasBytes is the RGBA buffer size of a canvas.
func EstimateCanvasBytes(canvas image.Point) uint64 {
	return uint64(canvas.X) * uint64(canvas.Y) * 4
}
