package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Report formats accepted by FormatReport.
const (
	ReportText = "text"
	ReportJSON = "json"
	ReportYAML = "yaml"
)

// ReportFormats lists the accepted report formats.
var ReportFormats = []string{ReportText, ReportJSON, ReportYAML}

// FormatReport renders r in the named format.
func FormatReport(r *Report, format string) (string, error) {
	if r == nil {
		return "", errors.New("nil report")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ReportText:
		return ToText(r), nil
	case ReportJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b), nil
	case ReportYAML:
		b, err := yaml.Marshal(r)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: %s)", format, strings.Join(ReportFormats, ", "))
	}
}

// ToText renders a short human-readable summary.
func ToText(r *Report) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	p.Fprintf(&b, "mirror:     r=%g h=%g vx=%g vz=%g (in)\n",
		r.Parameters.Radius, r.Parameters.Height, r.Parameters.Distance, r.Parameters.ViewHeight)
	p.Fprintf(&b, "source:     %dx%d", r.Source.Width, r.Source.Height)
	if r.Resized {
		p.Fprintf(&b, " -> %dx%d (factor %g)", r.Sampled.Width, r.Sampled.Height, r.Downscale)
	}
	p.Fprintf(&b, ", %s-constrained, %.2f dpi native\n", r.Constraint, r.NativeDPI)
	p.Fprintf(&b, "render:     %s, n=%d, %g dpi, scale %.4f\n", r.Mode, r.Interpolation, r.TargetDPI, r.Scale)
	p.Fprintf(&b, "canvas:     %dx%d px, %.2fx%.2f in\n",
		r.Canvas.Width, r.Canvas.Height, float64(r.Canvas.Width)/r.TargetDPI, float64(r.Canvas.Height)/r.TargetDPI)
	p.Fprintf(&b, "offset:     minX=%g minY=%g\n", r.Offset.MinX, r.Offset.MinY)
	if r.Cylinder != nil {
		p.Fprintf(&b, "cylinder:   centre (%.1f, %.1f) radius %.1f px\n", r.Cylinder.CX, r.Cylinder.CY, r.Cylinder.Radius)
	}
	p.Fprintf(&b, "polygons:   %d painted, %d skipped, %d vertices\n",
		r.Polygons.Emitted, r.Polygons.Skipped, r.Polygons.Vertices)
	p.Fprintf(&b, "time:       %v\n", time.Duration(r.Timings.TotalNs).Round(time.Millisecond))
	return b.String()
}
