package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
)

// Job is one image of a multi-image run. Load is called on a worker, so
// only the images currently being transformed are held in memory.
type Job struct {
	Name string
	Load func() (image.Image, error)
}

// Outcome is the per-job result of TransformMany, in job order.
type Outcome struct {
	Index    int
	Name     string
	Report   *Report
	Err      error
	Duration time.Duration
}

// ParallelConfig holds configuration for multi-image runs.
type ParallelConfig struct {
	MaxWorkers       int              // concurrent transforms (0: runtime.NumCPU())
	ContinueOnError  bool             // keep going after a failed job
	ProgressCallback ProgressCallback // unit: images
	// Sink receives each successful result on the worker that produced it.
	// The canvas is dropped afterwards; an error fails the job.
	Sink func(ctx context.Context, job Job, res *Result) error
}

// DefaultParallelConfig returns sensible defaults for multi-image runs.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type jobItem struct {
	index int
	job   Job
}

// TransformMany transforms every job with the same geometry and options.
// Outcomes are returned in job order. Without ContinueOnError the first
// failure cancels the jobs that have not started and is returned as the
// error; with it, failures are only reported per outcome.
func TransformMany(
	ctx context.Context,
	p geometry.PhysicalParameters,
	opts Options,
	jobs []Job,
	cfg ParallelConfig,
) ([]Outcome, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no images provided")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobs))

	progress := cfg.ProgressCallback
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	// per-image row progress would interleave across workers
	opts.Progress = nil

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan jobItem, len(jobs))
	for i, j := range jobs {
		queue <- jobItem{index: i, job: j}
	}
	close(queue)

	outcomes := make([]Outcome, len(jobs))
	for i, j := range jobs {
		outcomes[i] = Outcome{Index: i, Name: j.Name, Err: context.Canceled}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr error
	)
	progress.OnStart(len(jobs))

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					return
				}
				out := runJob(ctx, p, opts, item, cfg.Sink)

				// progress is reported under mu so counts arrive in order
				mu.Lock()
				outcomes[item.index] = out
				done++
				if out.Err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", item.job.Name, out.Err)
					}
					progress.OnError(done, out.Err)
				}
				progress.OnProgress(done, len(jobs))
				mu.Unlock()

				if out.Err != nil && !cfg.ContinueOnError {
					cancel()
				}
			}
		}()
	}
	wg.Wait()
	progress.OnComplete()

	if firstErr != nil && !cfg.ContinueOnError {
		return outcomes, firstErr
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func runJob(ctx context.Context, p geometry.PhysicalParameters, opts Options, item jobItem, sink func(context.Context, Job, *Result) error) Outcome {
	start := time.Now()
	out := Outcome{Index: item.index, Name: item.job.Name}

	if item.job.Load == nil {
		out.Err = errors.New("job has no image loader")
		return out
	}
	img, err := item.job.Load()
	if err != nil {
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}
	res, err := Transform(ctx, p, opts, img)
	if err != nil {
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}
	out.Report = &res.Report
	if sink != nil {
		if err := sink(ctx, item.job, res); err != nil {
			out.Err = err
		}
	}
	out.Duration = time.Since(start)
	return out
}

// ParallelStats summarizes a multi-image run.
type ParallelStats struct {
	TotalImages      int           `json:"total_images" yaml:"total_images"`
	ProcessedImages  int           `json:"processed_images" yaml:"processed_images"`
	FailedImages     int           `json:"failed_images" yaml:"failed_images"`
	WorkerCount      int           `json:"worker_count" yaml:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns" yaml:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns" yaml:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// CalculateParallelStats summarizes outcomes of a run that took duration.
func CalculateParallelStats(outcomes []Outcome, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(outcomes),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, o := range outcomes {
		if o.Err == nil {
			stats.ProcessedImages++
		} else {
			stats.FailedImages++
		}
	}
	if stats.ProcessedImages > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		if duration > 0 {
			stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
		}
	}
	return stats
}
