package pipeline

import (
	"sync/atomic"
)

// Profiler aggregates stage timings across many transforms.
type Profiler struct {
	MappingTimeNs   atomic.Int64
	RenderingTimeNs atomic.Int64
	TotalTimeNs     atomic.Int64
	Transforms      atomic.Int64
	Polygons        atomic.Int64
}

// Record adds one transform report.
func (p *Profiler) Record(r *Report) {
	if r == nil {
		return
	}
	p.MappingTimeNs.Add(r.Timings.MappingNs)
	p.RenderingTimeNs.Add(r.Timings.RenderingNs)
	p.TotalTimeNs.Add(r.Timings.TotalNs)
	p.Transforms.Add(1)
	p.Polygons.Add(int64(r.Polygons.Emitted))
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	n := p.Transforms.Load()
	mapping := p.MappingTimeNs.Load()
	render := p.RenderingTimeNs.Load()
	total := p.TotalTimeNs.Load()
	out := map[string]any{
		"transforms":       n,
		"polygons":         p.Polygons.Load(),
		"mapping_ms_total": mapping / 1_000_000,
		"render_ms_total":  render / 1_000_000,
		"total_ms_total":   total / 1_000_000,
	}
	if n > 0 {
		out["ms_per_transform"] = float64(total) / 1_000_000.0 / float64(n)
	}
	return out
}
