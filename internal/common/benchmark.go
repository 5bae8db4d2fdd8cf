package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is the subset of runtime.MemStats the transform benchmarks
// report.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	Mallocs    uint64 `json:"mallocs"`
	HeapInuse  uint64 `json:"heap_inuse"`
	NumGC      uint32 `json:"num_gc"`
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		Mallocs:    m.Mallocs,
		HeapInuse:  m.HeapInuse,
		NumGC:      m.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d",
		m.Alloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC)
}

// BenchmarkResult holds the outcome of one timed benchmark case.
type BenchmarkResult struct {
	Name         string        `json:"name"`
	Duration     time.Duration `json:"duration_ns"`
	MemoryBefore MemoryStats   `json:"memory_before"`
	MemoryAfter  MemoryStats   `json:"memory_after"`
	Iterations   int           `json:"iterations"`
	Error        error         `json:"-"`
}

// Average returns the mean duration per iteration.
func (br BenchmarkResult) Average() time.Duration {
	if br.Iterations <= 0 {
		return 0
	}
	return br.Duration / time.Duration(br.Iterations)
}

// AllocatedBytes returns the bytes allocated between the two snapshots.
func (br BenchmarkResult) AllocatedBytes() uint64 {
	if br.MemoryAfter.TotalAlloc < br.MemoryBefore.TotalAlloc {
		return 0
	}
	return br.MemoryAfter.TotalAlloc - br.MemoryBefore.TotalAlloc
}

func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB",
		br.Name, br.Iterations, br.Average(), br.Duration, br.AllocatedBytes()/1024)
}
