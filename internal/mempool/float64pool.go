// Package mempool pools the coordinate buffers of mapped grids so that
// repeated transforms (batch runs, the HTTP server) reuse memory instead of
// allocating two grid-sized slices per image.
package mempool

import (
	"sync"
)

var float64Pools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 1024 (minimum 1024).
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := float64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float64, cls) }})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetFloat64 returns a []float64 of length n from the pool. Contents are not
// zeroed; callers overwrite every element. Return it with PutFloat64.
func GetFloat64(n int) []float64 {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]float64, n, cls)
	}
	buf, ok := p.Get().([]float64)
	if !ok || cap(buf) < cls {
		buf = make([]float64, cls)
	}
	return buf[:n]
}

// PutFloat64 returns a buffer to the pool. Nil is ignored.
func PutFloat64(buf []float64) {
	if buf == nil {
		return
	}
	// Buffers are filed under the class their capacity fully covers, so a
	// later Get from that class never receives a short slice.
	cls := cap(buf) / 1024 * 1024
	if cls < 1024 {
		return
	}
	if p := poolFor(cls); p != nil {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck // SA6002: slice header is small
	}
}

// GetFloat64Multiple returns one buffer per requested size.
func GetFloat64Multiple(sizes []int) [][]float64 {
	if len(sizes) == 0 {
		return nil
	}
	buffers := make([][]float64, len(sizes))
	for i, size := range sizes {
		buffers[i] = GetFloat64(size)
	}
	return buffers
}

// PutFloat64Multiple returns every buffer to the pool.
func PutFloat64Multiple(bufs [][]float64) {
	for _, buf := range bufs {
		PutFloat64(buf)
	}
}
