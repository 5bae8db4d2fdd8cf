package batch

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

func TestLoadAndValidateImage(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "checker.png")
	testutil.SaveImage(t, testutil.Checkerboard(4, 4, 1, color.Black, color.White), good)

	img, err := loadAndValidateImage(good)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = loadAndValidateImage(filepath.Join(dir, "notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")

	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o600))
	_, err = loadAndValidateImage(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestBuildJobs(t *testing.T) {
	dir := t.TempDir()
	paths := testutil.WriteSampleImages(t, dir)

	jobs := buildJobs(paths)
	require.Len(t, jobs, len(paths))
	for i, j := range jobs {
		assert.Equal(t, paths[i], j.Name)
		img, err := j.Load()
		require.NoError(t, err)
		assert.False(t, img.Bounds().Empty())
	}
}

func TestPlanOutputs(t *testing.T) {
	cfg := testConfig("")
	tag := output.ParamsTag(cfg.Params, cfg.Options)

	t.Run("next to source", func(t *testing.T) {
		planned := planOutputs([]string{filepath.Join("in", "a.png")}, cfg)
		assert.Equal(t, filepath.Join("in", "a "+tag+".png"), planned[filepath.Join("in", "a.png")])
	})

	t.Run("collisions in output dir", func(t *testing.T) {
		cfg := testConfig("out")
		srcs := []string{
			filepath.Join("x", "a.png"),
			filepath.Join("y", "a.jpg"),
			filepath.Join("z", "A.gif"),
		}
		planned := planOutputs(srcs, cfg)
		assert.Equal(t, filepath.Join("out", "a "+tag+".png"), planned[srcs[0]])
		assert.Equal(t, filepath.Join("out", "a "+tag+" (2).png"), planned[srcs[1]])
		assert.Equal(t, filepath.Join("out", "A "+tag+" (3).png"), planned[srcs[2]])
	})

	t.Run("pdf extension", func(t *testing.T) {
		cfg := testConfig("out")
		cfg.Format = output.FormatPDF
		planned := planOutputs([]string{"a.png"}, cfg)
		assert.Equal(t, filepath.Join("out", "a "+tag+".pdf"), planned["a.png"])
	})
}

func TestNewSink(t *testing.T) {
	dir := t.TempDir()
	src := testutil.Checkerboard(4, 4, 1, color.Black, color.White)
	cfg := testConfig(dir)

	res, err := pipeline.Transform(context.Background(), cfg.Params, cfg.Options, src)
	require.NoError(t, err)

	target := filepath.Join(dir, "out.png")
	sink := newSink(map[string]string{"checker.png": target}, output.FormatPNG)

	require.NoError(t, sink(context.Background(), pipeline.Job{Name: "checker.png"}, res))
	written := testutil.LoadImage(t, target)
	assert.Equal(t, res.Image.Bounds().Size(), written.Bounds().Size())

	f, err := os.Open(target)
	require.NoError(t, err)
	defer f.Close()
	ppm, ok, err := output.ReadPNGDensity(f)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, output.PixelsPerMetre(30), ppm)

	err = sink(context.Background(), pipeline.Job{Name: "other.png"}, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output planned")
}
