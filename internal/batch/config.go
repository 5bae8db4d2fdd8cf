package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Mirror and render settings shared by every image
	Params  geometry.PhysicalParameters
	Options pipeline.Options

	// Output settings
	Format output.Format
	// OutputDir receives the anamorphs; empty writes next to each source.
	OutputDir string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	// ProgressWriter receives the progress bar (nil: stderr).
	ProgressWriter io.Writer
}

// Validate checks the settings before any file is touched.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil batch config")
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if _, err := output.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Workers)
	}
	return nil
}

// ImageResult is the outcome of one source image.
type ImageResult struct {
	Source   string           `json:"source" yaml:"source"`
	Output   string           `json:"output,omitempty" yaml:"output,omitempty"`
	Report   *pipeline.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error    string           `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration    `json:"duration_ns" yaml:"duration_ns"`
}

// Result holds the result of batch processing.
type Result struct {
	Images      []ImageResult
	Outcomes    []pipeline.Outcome
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Outcomes, r.Duration, r.WorkerCount)
}

// Failed reports whether any image failed.
func (r *Result) Failed() bool {
	return r.Stats().FailedImages > 0
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	text, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(text), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, _ = fmt.Fprint(w, text)
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	_, _ = fmt.Fprint(w, formatStats(r.Stats()))
}
