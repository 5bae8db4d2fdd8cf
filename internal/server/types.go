// Package server exposes the anamorphosis pipeline over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// transformFunc is the pipeline entry point used by the handlers.
type transformFunc func(
	ctx context.Context, p geometry.PhysicalParameters, opts pipeline.Options, src image.Image,
) (*pipeline.Result, error)

// Server holds the HTTP server state and dependencies.
type Server struct {
	transform   transformFunc
	defaults    pipeline.Options
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
	limiter     *pipeline.Limiter
	profiler    *pipeline.Profiler
	version     string
}

// RateLimitConfig holds per-client request limits. Zero limits are not
// enforced.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxUploadMB   int64
	TimeoutSec    int
	MaxConcurrent int
	// Defaults are the render options applied when a request leaves a
	// field unset.
	Defaults  pipeline.Options
	RateLimit RateLimitConfig
	Version   string
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// OptionsResponse lists the choices offered by the front ends and the
// server defaults.
type OptionsResponse struct {
	DPIChoices           []float64       `json:"dpi_choices"`
	InterpolationChoices []int           `json:"interpolation_choices"`
	Modes                []string        `json:"modes"`
	Formats              []string        `json:"formats"`
	ReportFormats        []string        `json:"report_formats"`
	ResampleFilters      []string        `json:"resample_filters"`
	Defaults             DefaultsPayload `json:"defaults"`
}

// DefaultsPayload is the JSON view of the server's default options.
type DefaultsPayload struct {
	DPI           float64 `json:"dpi"`
	Interpolation int     `json:"n"`
	Mode          string  `json:"mode"`
	CylinderBase  bool    `json:"cylinder_base"`
	IgnoreWhite   bool    `json:"ignore_white"`
	Transparent   bool    `json:"transparent"`
	MaxCanvasSide int     `json:"max_canvas_side"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
}

// TransformResponse is returned by POST /transform with format=json.
type TransformResponse struct {
	Success  bool             `json:"success"`
	Filename string           `json:"filename"`
	Report   *pipeline.Report `json:"report"`
	// Image is the PNG, base64 encoded by encoding/json.
	Image []byte `json:"image,omitempty"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	Transforms map[string]any        `json:"transforms"`
	Limiter    pipeline.LimiterStats `json:"limiter"`
	Memory     pipeline.MemStats     `json:"memory"`
}

// NewServer creates a server instance. Config.Defaults must be valid.
func NewServer(config Config) (*Server, error) {
	if err := config.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("server defaults: %w", err)
	}
	if config.MaxUploadMB <= 0 {
		return nil, errors.New("server: max upload size must be positive")
	}
	s := &Server{
		transform:   pipeline.Transform,
		defaults:    config.Defaults,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		limiter:     pipeline.NewLimiter(config.MaxConcurrent),
		profiler:    &pipeline.Profiler{},
		version:     config.Version,
	}
	s.defaults.Progress = nil
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/options", s.corsMiddleware(s.optionsHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/transform", s.corsMiddleware(s.rateLimitMiddleware(s.transformHandler)))
	mux.HandleFunc("/transform/batch", s.corsMiddleware(s.rateLimitMiddleware(s.batchHandler)))
	mux.HandleFunc("/ws/transform", s.rateLimitMiddleware(s.transformWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
