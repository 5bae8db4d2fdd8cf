package config

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// DefaultConfig returns the desktop front end defaults:
// 600 dpi, no interpolation, high quality, cylinder base drawn, flattened to
// white. The mirror has no default and must be supplied.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Render: RenderConfig{
			DPI:           600,
			Interpolation: 0,
			Mode:          raster.ModeHQ.String(),
			Workers:       0,
			Resample:      utils.DefaultResampleFilter,
			MaxCanvasSide: compose.DefaultMaxCanvasSide,
		},
		Output: OutputConfig{
			CylinderBase: true,
			Background:   "white",
			Format:       string(output.FormatPNG),
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
			MaxConcurrent:   max(1, runtime.NumCPU()/2),
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 30,
				RequestsPerHour:   600,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     2 << 30,
			},
		},
		Batch: BatchConfig{
			Workers:         2,
			Recursive:       false,
			ContinueOnError: false,
		},
	}
}

// Validate checks every section except the mirror geometry, which commands
// validate when they need it (see PhysicalParameters).
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if _, err := c.PipelineOptions(); err != nil {
		return err
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.Report != "" && !slices.Contains(pipeline.ReportFormats, strings.ToLower(c.Output.Report)) {
		return fmt.Errorf("invalid report format: %s (must be one of: %s)",
			c.Output.Report, strings.Join(pipeline.ReportFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("invalid max concurrent transforms: %d (must not be negative)", c.Server.MaxConcurrent)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// PhysicalParameters returns the mirror geometry. Lengths are taken as
// absolute values, as typed lengths never carry a meaningful sign; the
// result is validated.
func (c *Config) PhysicalParameters() (geometry.PhysicalParameters, error) {
	p := geometry.PhysicalParameters{
		Radius:     math.Abs(c.Geometry.Radius),
		Height:     math.Abs(c.Geometry.Height),
		Distance:   math.Abs(c.Geometry.Distance),
		ViewHeight: math.Abs(c.Geometry.ViewHeight),
	}
	if err := p.Validate(); err != nil {
		return geometry.PhysicalParameters{}, err
	}
	return p, nil
}

// PipelineOptions converts the render and output sections into transform
// options. The progress callback is left unset.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	mode, err := raster.ParseMode(c.Render.Mode)
	if err != nil {
		return opts, fmt.Errorf("%w: %w", geometry.ErrInvalidGeometry, err)
	}
	opts.Mode = mode
	opts.TargetDPI = c.Render.DPI
	opts.Interpolation = c.Render.Interpolation
	opts.Resample = c.Render.Resample
	opts.MaxCanvasSide = c.Render.MaxCanvasSide
	opts.DrawCylinderBase = c.Output.CylinderBase
	if c.Render.Workers > 0 {
		opts.Workers = c.Render.Workers
	}

	switch {
	case c.Render.IgnoreColor != "":
		ic, err := ParseColor(c.Render.IgnoreColor)
		if err != nil {
			return opts, fmt.Errorf("%w: render.ignore_color: %w", geometry.ErrInvalidGeometry, err)
		}
		opts.IgnoreColor = ic
	case c.Render.IgnoreWhite:
		opts = opts.WithIgnoreWhite()
	}

	if c.Output.Background != "" {
		bg, err := ParseColor(c.Output.Background)
		if err != nil {
			return opts, fmt.Errorf("%w: output.background: %w", geometry.ErrInvalidGeometry, err)
		}
		opts.Background = bg
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// ParallelConfig converts the batch section for pipeline.TransformMany.
func (c *Config) ParallelConfig() pipeline.ParallelConfig {
	cfg := pipeline.DefaultParallelConfig()
	if c.Batch.Workers > 0 {
		cfg.MaxWorkers = c.Batch.Workers
	}
	cfg.ContinueOnError = c.Batch.ContinueOnError
	return cfg
}
