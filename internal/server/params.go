package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/config"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/raster"
)

const formatJSON = "json"

// TransformParams are the per-request settings shared by the multipart,
// batch and websocket endpoints. Unset optional fields fall back to the
// server defaults.
type TransformParams struct {
	Radius        float64 `json:"r"`
	Height        float64 `json:"h"`
	Distance      float64 `json:"vx"`
	ViewHeight    float64 `json:"vz"`
	DPI           float64 `json:"dpi,omitempty"`
	Interpolation *int    `json:"n,omitempty"`
	Mode          string  `json:"mode,omitempty"`
	IgnoreWhite   bool    `json:"ignore_white,omitempty"`
	IgnoreColor   string  `json:"ignore_color,omitempty"`
	CylinderBase  *bool   `json:"cylinder_base,omitempty"`
	Transparent   bool    `json:"transparent,omitempty"`
	Background    string  `json:"background,omitempty"`
	// Format is png, pdf or json (multipart only).
	Format string `json:"format,omitempty"`
}

// paramsFromForm reads TransformParams from form fields.
func paramsFromForm(r *http.Request) (TransformParams, error) {
	var tp TransformParams
	floats := []struct {
		key string
		dst *float64
	}{
		{"r", &tp.Radius}, {"h", &tp.Height}, {"vx", &tp.Distance}, {"vz", &tp.ViewHeight}, {"dpi", &tp.DPI},
	}
	for _, f := range floats {
		v := strings.TrimSpace(r.FormValue(f.key))
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return tp, fmt.Errorf("%w: field %s: %q is not a number", geometry.ErrInvalidGeometry, f.key, v)
		}
		*f.dst = n
	}
	if v := strings.TrimSpace(r.FormValue("n")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return tp, fmt.Errorf("%w: field n: %q is not an integer", geometry.ErrInvalidGeometry, v)
		}
		tp.Interpolation = &n
	}
	bools := []struct {
		key string
		dst *bool
	}{
		{"ignore_white", &tp.IgnoreWhite}, {"transparent", &tp.Transparent},
	}
	for _, f := range bools {
		if v := r.FormValue(f.key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return tp, fmt.Errorf("%w: field %s: %q is not a boolean", geometry.ErrInvalidGeometry, f.key, v)
			}
			*f.dst = b
		}
	}
	if v := r.FormValue("cylinder_base"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return tp, fmt.Errorf("%w: field cylinder_base: %q is not a boolean", geometry.ErrInvalidGeometry, v)
		}
		tp.CylinderBase = &b
	}
	tp.Mode = r.FormValue("mode")
	tp.IgnoreColor = r.FormValue("ignore_color")
	tp.Background = r.FormValue("background")
	tp.Format = r.FormValue("format")
	if tp.Format == "" {
		tp.Format = r.URL.Query().Get("format")
	}
	return tp, nil
}

// resolve validates the request against the server defaults. Lengths are
// taken as absolute values. All errors wrap geometry.ErrInvalidGeometry.
func (tp TransformParams) resolve(defaults pipeline.Options) (geometry.PhysicalParameters, pipeline.Options, error) {
	p := geometry.PhysicalParameters{
		Radius:     math.Abs(tp.Radius),
		Height:     math.Abs(tp.Height),
		Distance:   math.Abs(tp.Distance),
		ViewHeight: math.Abs(tp.ViewHeight),
	}
	if err := p.Validate(); err != nil {
		return p, defaults, err
	}

	opts := defaults
	if tp.DPI != 0 {
		opts.TargetDPI = tp.DPI
	}
	if tp.Interpolation != nil {
		opts.Interpolation = *tp.Interpolation
	}
	if tp.Mode != "" {
		mode, err := raster.ParseMode(tp.Mode)
		if err != nil {
			return p, opts, fmt.Errorf("%w: %w", geometry.ErrInvalidGeometry, err)
		}
		opts.Mode = mode
	}
	if tp.CylinderBase != nil {
		opts.DrawCylinderBase = *tp.CylinderBase
	}
	switch {
	case tp.IgnoreColor != "":
		c, err := config.ParseColor(tp.IgnoreColor)
		if err != nil {
			return p, opts, fmt.Errorf("%w: ignore_color: %w", geometry.ErrInvalidGeometry, err)
		}
		opts.IgnoreColor = c
	case tp.IgnoreWhite:
		opts = opts.WithIgnoreWhite()
	}
	switch {
	case tp.Transparent:
		opts = opts.WithTransparentBackground()
	case tp.Background != "":
		c, err := config.ParseColor(tp.Background)
		if err != nil {
			return p, opts, fmt.Errorf("%w: background: %w", geometry.ErrInvalidGeometry, err)
		}
		opts.Background = c
	}
	if err := opts.Validate(); err != nil {
		return p, opts, err
	}
	return p, opts, nil
}

// responseFormat normalises the requested reply format.
func (tp TransformParams) responseFormat() (string, error) {
	f := strings.ToLower(strings.TrimSpace(tp.Format))
	switch f {
	case "", string(output.FormatPNG):
		return string(output.FormatPNG), nil
	case string(output.FormatPDF), formatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q (png, pdf or json)", geometry.ErrInvalidGeometry, tp.Format)
}
