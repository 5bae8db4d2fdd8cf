package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anamorph_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anamorph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Transform metrics
	transformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anamorph_transform_requests_total",
			Help: "Total number of transforms",
		},
		[]string{"source", "status"}, // source: http, websocket, batch
	)

	transformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anamorph_transform_duration_seconds",
			Help:    "Transform duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"source"},
	)

	polygonsEmitted = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anamorph_polygons_emitted",
			Help:    "Number of pixel polygons painted per transform",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		},
		[]string{"source"},
	)

	canvasPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anamorph_canvas_pixels",
			Help:    "Output canvas size in pixels",
			Buckets: prometheus.ExponentialBuckets(1e4, 10, 6),
		},
	)

	transformsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anamorph_transforms_in_flight",
			Help: "Number of transforms currently running",
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anamorph_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anamorph_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anamorph_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anamorph_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// observeTransform records the outcome of one transform.
func observeTransform(source string, res *pipeline.Result, err error) {
	if err != nil {
		transformRequestsTotal.WithLabelValues(source, "error").Inc()
		return
	}
	transformRequestsTotal.WithLabelValues(source, "success").Inc()
	r := res.Report
	transformDuration.WithLabelValues(source).Observe(float64(r.Timings.TotalNs) / 1e9)
	polygonsEmitted.WithLabelValues(source).Observe(float64(r.Polygons.Emitted))
	canvasPixels.Observe(float64(r.Canvas.Width) * float64(r.Canvas.Height))
}
