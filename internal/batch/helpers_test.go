package batch

import (
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

func testParams() geometry.PhysicalParameters {
	return geometry.PhysicalParameters{Radius: 2, Height: 3, Distance: 10, ViewHeight: 5}
}

func testConfig(outDir string) *Config {
	opts := pipeline.DefaultOptions()
	opts.TargetDPI = 30
	opts.Workers = 1
	return &Config{
		Params:    testParams(),
		Options:   opts,
		Format:    output.FormatPNG,
		OutputDir: outDir,
		Workers:   2,
	}
}
