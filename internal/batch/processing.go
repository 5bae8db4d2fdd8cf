package batch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// loadAndValidateImage loads an image and checks it against the default
// constraints.
func loadAndValidateImage(path string) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("Loaded source image", "file", path, "format", meta.Format,
		"width", meta.Width, "height", meta.Height)
	return img, nil
}

// buildJobs creates one lazily loading job per source.
func buildJobs(paths []string) []pipeline.Job {
	jobs := make([]pipeline.Job, len(paths))
	for i, p := range paths {
		jobs[i] = pipeline.Job{
			Name: p,
			Load: func() (image.Image, error) { return loadAndValidateImage(p) },
		}
	}
	return jobs
}

// planOutputs assigns every source its output path. Sources that would
// land on the same file get " (2)", " (3)" ... before the extension.
func planOutputs(paths []string, cfg *Config) map[string]string {
	planned := make(map[string]string, len(paths))
	used := make(map[string]int)
	for _, src := range paths {
		dir := cfg.OutputDir
		if dir == "" {
			dir = filepath.Dir(src)
		}
		name := output.FileName(src, cfg.Params, cfg.Options, cfg.Format)
		key := strings.ToLower(filepath.Join(dir, name))
		used[key]++
		if n := used[key]; n > 1 {
			ext := cfg.Format.Ext()
			name = strings.TrimSuffix(name, ext) + " (" + strconv.Itoa(n) + ")" + ext
		}
		planned[src] = filepath.Join(dir, name)
	}
	return planned
}

// newSink saves each finished anamorph to its planned path.
func newSink(planned map[string]string, format output.Format) func(context.Context, pipeline.Job, *pipeline.Result) error {
	return func(_ context.Context, job pipeline.Job, res *pipeline.Result) error {
		path, ok := planned[job.Name]
		if !ok {
			return fmt.Errorf("no output planned for %s", job.Name)
		}
		if err := output.Save(path, res.Image, res.Metadata.DPI, format); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
		slog.Info("Wrote anamorph", "source", job.Name, "output", path,
			"width", res.Metadata.Width, "height", res.Metadata.Height, "polygons", res.Report.Polygons.Emitted)
		return nil
	}
}

// collectResults pairs every outcome with its source and output path.
func collectResults(paths []string, outcomes []pipeline.Outcome, planned map[string]string) []ImageResult {
	results := make([]ImageResult, len(paths))
	for i, src := range paths {
		results[i] = ImageResult{Source: src}
		if i >= len(outcomes) {
			continue
		}
		o := outcomes[i]
		results[i].Duration = o.Duration
		if o.Err != nil {
			results[i].Error = o.Err.Error()
			continue
		}
		results[i].Output = planned[src]
		results[i].Report = o.Report
	}
	return results
}
