package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/benchmark"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

func main() {
	var (
		imagePath  = flag.String("image", "", "Source image to transform (required)")
		iterations = flag.Int("iterations", 3, "Number of iterations per case")
		dpis       = flag.String("dpi", "150,300", "Comma-separated target densities")
		interps    = flag.String("n", "0,3", "Comma-separated interpolation counts")
		modes      = flag.String("modes", "hq,lowram", "Comma-separated render modes")
		radius     = flag.Float64("radius", 1, "Cylinder radius in inches")
		height     = flag.Float64("height", 3, "Cylinder height in inches")
		distance   = flag.Float64("distance", 10, "Viewing distance in inches")
		viewHeight = flag.Float64("view-height", 10, "Viewing height in inches")
		outputFile = flag.String("output", "", "Write CSV results to this file (optional)")
	)
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("-image is required")
	}

	src, meta, err := utils.LoadImage(*imagePath)
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	cases, err := buildCases(*dpis, *interps, *modes)
	if err != nil {
		log.Fatalf("Invalid benchmark matrix: %v", err)
	}

	params := geometry.PhysicalParameters{Radius: *radius, Height: *height, Distance: *distance, ViewHeight: *viewHeight}
	tb, err := benchmark.NewTransformBenchmark(params, src, cases)
	if err != nil {
		log.Fatalf("Invalid mirror geometry: %v", err)
	}

	fmt.Println("anamorph transform benchmark")
	fmt.Println("============================")
	fmt.Printf("Source: %s (%dx%d)\n", meta.Path, meta.Width, meta.Height)
	fmt.Printf("Running %d cases with %d iterations each...\n\n", len(cases), *iterations)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := tb.Run(ctx, *iterations)
	if err != nil {
		log.Printf("Benchmark interrupted: %v", err)
	}
	if err := benchmark.WriteText(os.Stdout, results); err != nil {
		log.Fatalf("Failed to print results: %v", err)
	}

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("\nResults saved to: %s\n", *outputFile)
		}
	}
}

func buildCases(dpiList, interpList, modeList string) ([]benchmark.Case, error) {
	var dpis []float64
	for _, s := range splitList(dpiList) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("dpi %q: %w", s, err)
		}
		dpis = append(dpis, v)
	}
	var interps []int
	for _, s := range splitList(interpList) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("interpolation %q: %w", s, err)
		}
		interps = append(interps, v)
	}
	var modes []raster.Mode
	for _, s := range splitList(modeList) {
		m, err := raster.ParseMode(s)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return benchmark.Matrix(pipeline.DefaultOptions(), dpis, interps, modes), nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func saveResultsToFile(filename string, results []benchmark.CaseResult) error {
	file, err := os.Create(filename) //nolint:gosec // G304: user-chosen output path
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return benchmark.WriteCSV(file, results)
}
