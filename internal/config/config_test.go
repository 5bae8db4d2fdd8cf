package config

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	assert.InDelta(t, 600.0, opts.TargetDPI, 0)
	assert.Equal(t, 0, opts.Interpolation)
	assert.Equal(t, raster.ModeHQ, opts.Mode)
	assert.True(t, opts.DrawCylinderBase)
	assert.False(t, opts.Transparent())
	assert.Nil(t, opts.IgnoreColor)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"dpi", func(c *Config) { c.Render.DPI = 0 }},
		{"interpolation", func(c *Config) { c.Render.Interpolation = -3 }},
		{"mode", func(c *Config) { c.Render.Mode = "ultra" }},
		{"resample", func(c *Config) { c.Render.Resample = "blurry" }},
		{"ignore colour", func(c *Config) { c.Render.IgnoreColor = "#12" }},
		{"background", func(c *Config) { c.Output.Background = "plaid" }},
		{"format", func(c *Config) { c.Output.Format = "tiff" }},
		{"report", func(c *Config) { c.Output.Report = "xml" }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }},
		{"concurrency", func(c *Config) { c.Server.MaxConcurrent = -1 }},
		{"batch workers", func(c *Config) { c.Batch.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_PhysicalParameters(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.PhysicalParameters()
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry, "mirror has no default")

	cfg.Geometry = GeometryConfig{Radius: -2, Height: 3, Distance: -10, ViewHeight: 5}
	p, err := cfg.PhysicalParameters()
	require.NoError(t, err)
	assert.Equal(t, geometry.PhysicalParameters{Radius: 2, Height: 3, Distance: 10, ViewHeight: 5}, p)

	cfg.Geometry.ViewHeight = 2
	_, err = cfg.PhysicalParameters()
	var pe *geometry.ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "vz", pe.Field)
}

func TestConfig_PipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.Mode = "lowram"
	cfg.Render.Interpolation = 5
	cfg.Render.Workers = 3
	cfg.Render.IgnoreWhite = true
	cfg.Output.Background = "transparent"
	cfg.Output.CylinderBase = false

	opts, err := cfg.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, raster.ModeLowRAM, opts.Mode)
	assert.Equal(t, 5, opts.Interpolation)
	assert.Equal(t, 3, opts.Workers)
	assert.True(t, opts.IgnoresWhite())
	assert.True(t, opts.Transparent())
	assert.False(t, opts.DrawCylinderBase)

	cfg.Render.IgnoreColor = "#ff000080"
	opts, err = cfg.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 128}, opts.IgnoreColor)
	assert.False(t, opts.IgnoresWhite(), "explicit ignore colour wins over ignore_white")
}

func TestConfig_ParallelConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Workers = 5
	cfg.Batch.ContinueOnError = true
	pc := cfg.ParallelConfig()
	assert.Equal(t, 5, pc.MaxWorkers)
	assert.True(t, pc.ContinueOnError)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{"white", color.White, false},
		{" Black ", color.Black, false},
		{"transparent", color.Transparent, false},
		{"#102030", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, false},
		{"a0b0c0d0", color.NRGBA{R: 0xa0, G: 0xb0, B: 0xc0, A: 0xd0}, false},
		{"#12345", nil, true},
		{"#gg0000", nil, true},
		{"mauve", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry = GeometryConfig{Radius: 1.5, Height: 4, Distance: 12, ViewHeight: 8}
	cfg.Batch.Include = []string{"*.png"}
	cfg.Batch.Exclude = []string{"*_out.png"}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "view_height: 8")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
}
