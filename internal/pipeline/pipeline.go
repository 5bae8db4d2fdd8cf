// Package pipeline turns a flat source image into its cylindrical-mirror
// anamorphosis: size the source, map its grid through the mirror, place the
// result on a canvas and paint one polygon per source pixel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/common"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// cylinderColor is the colour of the cylinder base outline.
var cylinderColor = color.Black

// Transform computes the anamorphic image of src. It validates all inputs
// before doing any work and never modifies src. Errors wrap
// geometry.ErrInvalidGeometry, geometry.ErrGeometryDomain,
// geometry.ErrCapacityExceeded or the context error.
func Transform(ctx context.Context, p geometry.PhysicalParameters, opts Options, src image.Image) (*Result, error) {
	sw := common.StartStopwatch()

	if src == nil {
		return nil, errors.New("pipeline: nil source image")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := Report{
		Parameters:    parametersOf(p),
		TargetDPI:     opts.TargetDPI,
		Interpolation: opts.Interpolation,
		Mode:          opts.Mode,
		IgnoreWhite:   opts.IgnoresWhite(),
		Transparent:   opts.Transparent(),
	}

	// Sizing
	b := src.Bounds()
	report.Source = Dimensions{Width: b.Dx(), Height: b.Dy()}
	size, err := geometry.SizeImage(b.Dx(), b.Dy(), p, opts.TargetDPI)
	if err != nil {
		return nil, fmt.Errorf("size image: %w", err)
	}
	report.Timings.SizingNs = sw.Lap("sizing").Nanoseconds()
	report.Sampled = Dimensions{Width: size.Width, Height: size.Height}
	report.Resized = size.Resized
	report.Downscale = size.Downscale
	report.Constraint = size.Constraint.String()
	report.NativeDPI = size.NativeDPI
	slog.Debug("Sized source image",
		"source", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"sampled", fmt.Sprintf("%dx%d", size.Width, size.Height),
		"native_dpi", size.NativeDPI,
		"constraint", size.Constraint.String(),
		"resized", size.Resized,
		"grid_bytes", EstimateGridBytes(size, opts.Interpolation))

	// Resampling
	working := src
	if size.Resized {
		working, err = utils.Resample(src, size.Width, size.Height, opts.Resample)
		if err != nil {
			return nil, fmt.Errorf("resample: %w", err)
		}
		lap := sw.Lap("resample")
		report.Timings.ResampleNs = lap.Nanoseconds()
		slog.Debug("Resampled source image", "filter", opts.Resample, "duration", lap)
	}

	// Mapping
	grid, err := geometry.NewGrid(size.Width, size.Height, opts.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}
	mapped, err := geometry.NewMapper(p.Scaled(size.NativeDPI)).MapGrid(ctx, grid, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("map grid: %w", err)
	}
	report.GridPoints = grid.Points()
	lap := sw.Lap("mapping")
	report.Timings.MappingNs = lap.Nanoseconds()
	slog.Debug("Mapped grid", "grid", grid.String(), "duration", lap)

	// Composition
	offset, err := compose.ComputeOffset(mapped, p.Radius*size.NativeDPI, opts.DrawCylinderBase)
	if err != nil {
		mapped.Release()
		return nil, err
	}
	if contained, moved := compose.Contain(offset, mapped, p.Radius*size.NativeDPI, opts.DrawCylinderBase); moved {
		slog.Debug("Extended canvas offset to keep the drawing in view",
			"min_x", offset.MinX, "min_y", offset.MinY,
			"extended_min_x", contained.MinX, "extended_min_y", contained.MinY)
		offset = contained
		report.OffsetExtended = true
	}
	s := compose.Scale(size.NativeDPI, opts.TargetDPI)
	projected := compose.Project(mapped, offset, s)
	mapped.Release()

	var circle *compose.Circle
	if opts.DrawCylinderBase {
		c := compose.CylinderBase(offset, s, p.Radius, opts.TargetDPI)
		circle = &c
	}
	canvasSize, err := compose.CanvasSize(projected, circle, opts.MaxCanvasSide)
	if err != nil {
		return nil, err
	}
	canvas := compose.NewCanvas(canvasSize, opts.Background)
	report.Offset = offset
	report.Scale = s
	report.Cylinder = circle
	report.Timings.ComposeNs = sw.Lap("compose").Nanoseconds()
	slog.Debug("Composed canvas",
		"min_x", offset.MinX, "min_y", offset.MinY, "scale", s,
		"canvas", fmt.Sprintf("%dx%d", canvasSize.X, canvasSize.Y),
		"canvas_bytes", EstimateCanvasBytes(canvasSize))

	// Rendering
	progress := opts.progress()
	rz := raster.NewRasterizer(canvas, raster.Options{
		Mode:        opts.Mode,
		IgnoreColor: opts.IgnoreColor,
		Progress:    progress.OnProgress,
	})
	progress.OnStart(size.Height)
	stats, err := rz.Render(ctx, working, projected, opts.Interpolation)
	if err != nil {
		progress.OnError(stats.Emitted+stats.Skipped, err)
		return nil, fmt.Errorf("render: %w", err)
	}
	if circle != nil {
		rz.StrokeCircle(circle.CX, circle.CY, circle.Radius, cylinderColor)
	}
	progress.OnComplete()
	report.Polygons = stats
	report.Timings.RenderingNs = sw.Lap("rendering").Nanoseconds()

	meta := compose.NewMetadata(opts.TargetDPI, canvasSize)
	report.Canvas = meta
	report.Timings.TotalNs = sw.Total().Nanoseconds()
	slog.Debug("Rendered anamorphosis",
		"polygons", stats.Emitted,
		"skipped", stats.Skipped,
		"timings", sw)

	return &Result{Image: canvas, Metadata: meta, Report: report}, nil
}
