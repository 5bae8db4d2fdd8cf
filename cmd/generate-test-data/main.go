package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

const (
	imagesDir   = "testdata/images"
	fixturesDir = "testdata/fixtures"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateImages   = flag.Bool("images", true, "Generate sample source images")
		generateFixtures = flag.Bool("fixtures", true, "Recompute fixture expectations")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate test data for anamorph testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false    # Generate only images\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -images=false      # Recompute only fixtures\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Project root", "path", root)
	}
	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}

	if *generateImages {
		if err := writeSampleImages(imagesDir); err != nil {
			slog.Error("Failed to generate sample images", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated sample images", "dir", imagesDir)
	}

	if *generateFixtures {
		n, err := regenerateFixtures(context.Background(), fixturesDir, *verbose)
		if err != nil {
			slog.Error("Failed to regenerate fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("Regenerated fixtures", "count", n, "dir", fixturesDir)
	}
}

func writeSampleImages(dir string) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}
	samples := []struct {
		name string
		img  image.Image
	}{
		{"checker_8x8.png", testutil.Checkerboard(64, 64, 8, color.Black, color.White)},
		{"gradient_100x50.png", testutil.Gradient(100, 50)},
		{"label.png", testutil.Labeled("HELLO", 60, 20)},
		{"framed.png", testutil.WithTransparentBorder(testutil.Gradient(40, 40), 4)},
	}
	for _, s := range samples {
		path := filepath.Join(dir, s.name)
		if err := imaging.Save(s.img, path); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
	}
	return nil
}

// regenerateFixtures runs every fixture through the pipeline and rewrites
// its expected block with what the pipeline produced.
func regenerateFixtures(ctx context.Context, dir string, verbose bool) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // G304: fixture path under testdata
		if err != nil {
			return 0, err
		}
		var f testutil.TransformFixture
		if err := json.Unmarshal(data, &f); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}

		expected, err := compute(ctx, f)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		if verbose && expected != f.Expected {
			slog.Info("Fixture changed", "name", f.Name, "old", f.Expected, "new", expected)
		}
		f.Expected = expected

		out, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil { //nolint:gosec // G306: fixtures are checked in
			return 0, err
		}
	}
	return len(paths), nil
}

func compute(ctx context.Context, f testutil.TransformFixture) (testutil.ExpectedOutcome, error) {
	p := geometry.PhysicalParameters{
		Radius:     f.Geometry.Radius,
		Height:     f.Geometry.Height,
		Distance:   f.Geometry.Distance,
		ViewHeight: f.Geometry.ViewHeight,
	}
	mode, err := raster.ParseMode(f.Render.Mode)
	if err != nil {
		return testutil.ExpectedOutcome{}, err
	}
	opts := pipeline.DefaultOptions()
	opts.TargetDPI = f.Render.DPI
	opts.Interpolation = f.Render.Interpolation
	opts.Mode = mode
	opts.DrawCylinderBase = f.Render.DrawCylinder

	res, err := pipeline.Transform(ctx, p, opts, f.Source.Image())
	if err != nil {
		return testutil.ExpectedOutcome{}, err
	}
	r := res.Report
	return testutil.ExpectedOutcome{
		SampledWidth:  r.Sampled.Width,
		SampledHeight: r.Sampled.Height,
		NativeDPI:     r.NativeDPI,
		MinX:          r.Offset.MinX,
		MinY:          r.Offset.MinY,
		Polygons:      r.Polygons.Emitted,
		VertexCount:   raster.VertexCount(f.Render.Interpolation),
	}, nil
}
