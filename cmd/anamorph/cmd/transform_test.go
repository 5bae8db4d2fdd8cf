package cmd

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/testutil"
)

var mirrorArgs = []string{"--radius", "2", "--height", "3", "--distance", "10", "--view-height", "5", "--dpi", "30"}

func writeChecker(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "checker.png")
	testutil.SaveImage(t, testutil.Checkerboard(4, 4, 1, color.Black, color.White), path)
	return path
}

func TestTransformCommand(t *testing.T) {
	assert.Equal(t, "transform <image>", transformCmd.Use)
	assert.NotEmpty(t, transformCmd.Short)
	for _, name := range []string{"radius", "height", "distance", "view-height", "dpi", "interpolation",
		"mode", "ignore-white", "cylinder-base", "transparent", "output", "format", "report", "progress"} {
		assert.NotNil(t, transformCmd.Flags().Lookup(name), name)
	}
}

func TestTransformCommand_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)

	out, _, err := executeCommand(t, append([]string{"transform", src}, mirrorArgs...)...)
	require.NoError(t, err)

	want := filepath.Join(dir, "checker 30,2,3,10,5 HQ DrwCyl.png")
	assert.Contains(t, out, "Wrote "+want)
	assert.Contains(t, out, " dpi, ")
	assert.Contains(t, out, " in)")
	assert.True(t, testutil.FileExists(want))
}

func TestTransformCommand_OptionsInName(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)
	outDir := filepath.Join(dir, "out")

	args := append([]string{"transform", src}, mirrorArgs...)
	args = append(args, "-n", "3", "--mode", "lowram", "--cylinder-base=false", "--transparent", "--output-dir", outDir)
	_, _, err := executeCommand(t, args...)
	require.NoError(t, err)

	want := filepath.Join(outDir, "checker 30,2,3,10,5 3n LoRAM PresTrans.png")
	img := testutil.LoadImage(t, want)
	transparent := testutil.CountPixels(img, func(c color.Color) bool {
		_, _, _, a := c.RGBA()
		return a == 0
	})
	assert.Positive(t, transparent)
}

func TestTransformCommand_ExplicitOutputPDF(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)
	target := filepath.Join(dir, "print.pdf")

	_, _, err := executeCommand(t, append([]string{"transform", src, "-o", target}, mirrorArgs...)...)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestTransformCommand_Report(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)

	out, _, err := executeCommand(t, append([]string{"transform", src, "--report", "json", "-o", dir}, mirrorArgs...)...)
	require.NoError(t, err)

	// the JSON report comes before the "Wrote" line
	end := bytes.LastIndexByte([]byte(out), '}')
	require.Positive(t, end)
	var report struct {
		Polygons struct {
			Emitted int `json:"emitted"`
		} `json:"polygons"`
		Canvas struct {
			DPI float64 `json:"dpi"`
		} `json:"canvas"`
	}
	require.NoError(t, json.Unmarshal([]byte(out[:end+1]), &report))
	assert.Equal(t, 16, report.Polygons.Emitted)
	assert.InDelta(t, 30, report.Canvas.DPI, 1e-9)
}

func TestTransformCommand_ProgressWithoutTerminal(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)

	_, stderr, err := executeCommand(t, append([]string{"transform", src, "--progress", "-o", dir}, mirrorArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"Started rendering rows"`)
	assert.Contains(t, stderr, `"msg":"Finished rendering rows"`)
	assert.NotContains(t, stderr, "Rows: [")
}

func TestRowProgress(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &pipeline.LogProgressCallback{}, rowProgress(&buf))

	f, err := os.CreateTemp(t.TempDir(), "progress")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.IsType(t, &pipeline.LogProgressCallback{}, rowProgress(f), "regular files are not terminals")
}

func TestTransformCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	src := writeChecker(t, dir)
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no image", []string{"transform"}, "accepts 1 arg"},
		{"no mirror", []string{"transform", src}, "invalid geometry"},
		{"viewer inside cylinder", []string{"transform", src, "--radius", "2", "--height", "3",
			"--distance", "1", "--view-height", "5"}, "vx"},
		{"unsupported file", append([]string{"transform", txt}, mirrorArgs...), "unsupported image format"},
		{"missing file", append([]string{"transform", filepath.Join(dir, "nope.png")}, mirrorArgs...), "failed to load"},
		{"bad mode", append([]string{"transform", src, "--mode", "fast"}, mirrorArgs...), "mode"},
		{"bad format", append([]string{"transform", src, "--format", "tiff"}, mirrorArgs...), "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := resolveOutputPath("", "", filepath.Join("in", "a.png"), "a tag.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("in", "a tag.png"), got)

	got, err = resolveOutputPath(dir, "", "a.png", "a tag.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a tag.png"), got)

	got, err = resolveOutputPath(filepath.Join(dir, "x.png"), "", "a.png", "a tag.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.png"), got)

	outDir := filepath.Join(dir, "made")
	got, err = resolveOutputPath("", outDir, "a.png", "a tag.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "a tag.png"), got)
	assert.True(t, testutil.DirExists(outDir))
}
