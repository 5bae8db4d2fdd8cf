// Package batch transforms many source images with one mirror setup and
// writes every anamorph to disk.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// ProcessBatch discovers the images named by imagePaths, transforms them in
// parallel and saves the results. A nil error with failed images is
// possible when ContinueOnError is set; check Result.Failed.
func ProcessBatch(ctx context.Context, imagePaths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cfg := *config
	cfg.Format, _ = output.ParseFormat(string(config.Format))
	config = &cfg

	files, err := discoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tracker := pipeline.NewProgressTracker(len(files))
	progress := pipeline.NewMultiProgressCallback(tracker, failureLogger{tracker: tracker})
	if config.ShowProgress && !config.Quiet {
		w := config.ProgressWriter
		if w == nil {
			w = os.Stderr
		}
		progress.Add(pipeline.NewConsoleProgressCallback(w, "Transforming: ").
			WithUpdateInterval(config.ProgressInterval))
	}

	planned := planOutputs(files, config)
	workers := config.Workers
	if workers <= 0 {
		workers = pipeline.DefaultParallelConfig().MaxWorkers
	}
	workers = min(workers, len(files))

	start := time.Now()
	outcomes, runErr := pipeline.TransformMany(ctx, config.Params, config.Options, buildJobs(files), pipeline.ParallelConfig{
		MaxWorkers:       workers,
		ContinueOnError:  config.ContinueOnError,
		ProgressCallback: progress,
		Sink:             newSink(planned, config.Format),
	})
	duration := time.Since(start)

	if outcomes == nil {
		return nil, fmt.Errorf("batch processing failed: %w", runErr)
	}
	result := &Result{
		Images:      collectResults(files, outcomes, planned),
		Outcomes:    outcomes,
		Duration:    duration,
		WorkerCount: workers,
	}
	if runErr != nil {
		return result, fmt.Errorf("batch processing failed: %w", runErr)
	}
	return result, nil
}

// failureLogger logs every failed image as it happens, together with the
// tracker's counts for the run so far. The tracker must precede it in the
// callback chain.
type failureLogger struct {
	tracker *pipeline.ProgressTracker
}

func (failureLogger) OnStart(int)         {}
func (failureLogger) OnProgress(int, int) {}
func (failureLogger) OnComplete()         {}

func (f failureLogger) OnError(current int, err error) {
	s := f.tracker.Snapshot()
	slog.Warn("Image failed",
		"error", err,
		"finished", current,
		"failed", s.Failed,
		"total", s.Total,
		"percent", f.tracker.PercentComplete(),
		"eta", s.Remaining.Round(time.Millisecond))
}
