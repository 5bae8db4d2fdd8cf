package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// Summary formats accepted by Result.FormatResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// SummaryFormats lists the accepted summary formats.
var SummaryFormats = []string{FormatText, FormatJSON, FormatYAML, FormatCSV}

type summary struct {
	Images []ImageResult          `json:"images" yaml:"images"`
	Stats  pipeline.ParallelStats `json:"stats" yaml:"stats"`
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return formatJSON(r)
	case FormatYAML:
		return formatYAML(r)
	case FormatCSV:
		return formatCSV(r)
	case "", FormatText:
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unknown summary format %q (valid: %s)", format, strings.Join(SummaryFormats, ", "))
	}
}

func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(summary{Images: r.Images, Stats: r.Stats()}, "", "  ")
	return string(bts), err
}

func formatYAML(r *Result) (string, error) {
	bts, err := yaml.Marshal(summary{Images: r.Images, Stats: r.Stats()})
	return string(bts), err
}

// formatCSV writes one row per source image.
func formatCSV(r *Result) (string, error) {
	rows := [][]string{{
		"source", "output", "status", "width", "height", "dpi", "polygons", "skipped", "duration_ms", "error",
	}}
	for _, img := range r.Images {
		row := []string{img.Source, img.Output, "ok", "", "", "", "", "", strconv.FormatInt(img.Duration.Milliseconds(), 10), img.Error}
		if img.Error != "" {
			row[2] = "failed"
		}
		if rep := img.Report; rep != nil {
			row[3] = strconv.Itoa(rep.Canvas.Width)
			row[4] = strconv.Itoa(rep.Canvas.Height)
			row[5] = strconv.FormatFloat(rep.Canvas.DPI, 'f', -1, 64)
			row[6] = strconv.Itoa(rep.Polygons.Emitted)
			row[7] = strconv.Itoa(rep.Polygons.Skipped)
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	writer := csv.NewWriter(&b)
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatText lists every image followed by the run statistics.
func formatText(r *Result) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	for i, img := range r.Images {
		if i > 0 {
			b.WriteString("\n")
		}
		p.Fprintf(&b, "# %s\n", img.Source)
		if img.Error != "" {
			p.Fprintf(&b, "  error: %s\n", img.Error)
			continue
		}
		p.Fprintf(&b, "  output: %s\n", img.Output)
		if rep := img.Report; rep != nil {
			p.Fprintf(&b, "  canvas: %dx%d px at %g dpi, %d polygons\n",
				rep.Canvas.Width, rep.Canvas.Height, rep.Canvas.DPI, rep.Polygons.Emitted)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatStats(r.Stats()))
	return b.String()
}

func formatStats(stats pipeline.ParallelStats) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "Processing Statistics:\n")
	p.Fprintf(&b, "  Total images: %d\n", stats.TotalImages)
	p.Fprintf(&b, "  Processed: %d\n", stats.ProcessedImages)
	p.Fprintf(&b, "  Failed: %d\n", stats.FailedImages)
	p.Fprintf(&b, "  Workers: %d\n", stats.WorkerCount)
	p.Fprintf(&b, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	p.Fprintf(&b, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	p.Fprintf(&b, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
	return b.String()
}
