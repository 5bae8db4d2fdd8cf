// Package benchmark times the anamorphosis pipeline over a matrix of render
// settings.
package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"runtime"
	"strconv"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/common"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

// Benchmark is a named operation timed by a Suite.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite runs registered benchmarks by name.
type Suite struct {
	benchmarks []Benchmark
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a benchmark.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs the named benchmark for the given number of iterations.
func (s *Suite) Run(name string, iterations int) common.BenchmarkResult {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return runBenchmark(b, iterations)
		}
	}
	return common.BenchmarkResult{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

func runBenchmark(b Benchmark, iterations int) common.BenchmarkResult {
	runtime.GC()
	before := common.GetMemoryStats()

	timer := common.NewNamedTimer(b.Name)
	var err error
	done := 0
	for range iterations {
		if err = b.Func(); err != nil {
			break
		}
		done++
	}
	duration := timer.Stop()

	return common.BenchmarkResult{
		Name:         b.Name,
		Duration:     duration,
		MemoryBefore: before,
		MemoryAfter:  common.GetMemoryStats(),
		Iterations:   max(done, 1),
		Error:        err,
	}
}

// Case is one combination of render settings.
type Case struct {
	Name    string
	Options pipeline.Options
}

// Matrix builds one case per dpi, interpolation and mode combination, named
// like "hq/300dpi/n3".
func Matrix(base pipeline.Options, dpis []float64, interps []int, modes []raster.Mode) []Case {
	cases := make([]Case, 0, len(dpis)*len(interps)*len(modes))
	for _, mode := range modes {
		for _, dpi := range dpis {
			for _, n := range interps {
				opts := base
				opts.Mode = mode
				opts.TargetDPI = dpi
				opts.Interpolation = n
				cases = append(cases, Case{
					Name:    fmt.Sprintf("%s/%gdpi/n%d", mode, dpi, n),
					Options: opts,
				})
			}
		}
	}
	return cases
}

// CaseResult is the timing of one Case plus what the last run produced.
type CaseResult struct {
	Case   string                 `json:"case"`
	Result common.BenchmarkResult `json:"result"`
	Width  int                    `json:"width"`
	Height int                    `json:"height"`
	// Polygons is the polygon count of the last iteration.
	Polygons int             `json:"polygons"`
	Timings  pipeline.Timings `json:"timings"`
}

// TransformBenchmark times Transform on one source image.
type TransformBenchmark struct {
	params geometry.PhysicalParameters
	source image.Image
	cases  []Case
}

// NewTransformBenchmark prepares a benchmark for src under p.
func NewTransformBenchmark(p geometry.PhysicalParameters, src image.Image, cases []Case) (*TransformBenchmark, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("benchmark source image is nil")
	}
	return &TransformBenchmark{params: p, source: src, cases: cases}, nil
}

// Run times every case for the given number of iterations. A failing case
// is reported in its result and does not stop the others; ctx cancellation
// does.
func (tb *TransformBenchmark) Run(ctx context.Context, iterations int) ([]CaseResult, error) {
	if iterations < 1 {
		iterations = 1
	}
	suite := NewSuite()
	results := make([]CaseResult, len(tb.cases))
	for i, c := range tb.cases {
		cr := &results[i]
		cr.Case = c.Name
		// keyed by position: a matrix may repeat a name
		suite.Add(strconv.Itoa(i), func() error {
			res, err := pipeline.Transform(ctx, tb.params, c.Options, tb.source)
			if err != nil {
				return err
			}
			cr.Width = res.Metadata.Width
			cr.Height = res.Metadata.Height
			cr.Polygons = res.Report.Polygons.Emitted
			cr.Timings = res.Report.Timings
			return nil
		})
	}

	out := make([]CaseResult, 0, len(tb.cases))
	for i, c := range tb.cases {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		results[i].Result = suite.Run(strconv.Itoa(i), iterations)
		results[i].Result.Name = c.Name
		out = append(out, results[i])
	}
	return out, nil
}

// WriteText prints one line per case.
func WriteText(w io.Writer, results []CaseResult) error {
	for _, r := range results {
		line := r.Result.String()
		if r.Result.Error == nil {
			line += fmt.Sprintf(", canvas: %dx%d, polygons: %d", r.Width, r.Height, r.Polygons)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes the results as CSV with a header row.
func WriteCSV(w io.Writer, results []CaseResult) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"case", "iterations", "avg_ms", "alloc_kb", "width", "height", "polygons",
		"mapping_ms", "rendering_ms", "error",
	})
	for _, r := range results {
		errText := ""
		if r.Result.Error != nil {
			errText = r.Result.Error.Error()
		}
		_ = cw.Write([]string{
			r.Case,
			strconv.Itoa(r.Result.Iterations),
			ms(r.Result.Average().Nanoseconds()),
			strconv.FormatUint(r.Result.AllocatedBytes()/1024, 10),
			strconv.Itoa(r.Width),
			strconv.Itoa(r.Height),
			strconv.Itoa(r.Polygons),
			ms(r.Timings.MappingNs),
			ms(r.Timings.RenderingNs),
			errText,
		})
	}
	cw.Flush()
	return cw.Error()
}

func ms(ns int64) string {
	return strconv.FormatFloat(float64(ns)/1e6, 'f', 2, 64)
}
