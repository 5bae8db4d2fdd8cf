package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/config"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/server"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/version"
)

var serverBindings = []flagBinding{
	{"server.host", "host"},
	{"server.port", "port"},
	{"server.cors_origin", "cors-origin"},
	{"server.max_upload_mb", "max-upload-size"},
	{"server.timeout_sec", "timeout"},
	{"server.shutdown_timeout", "shutdown-timeout"},
	{"server.max_concurrent", "max-concurrent"},
	{"server.rate_limit.enabled", "rate-limit-enabled"},
	{"server.rate_limit.requests_per_minute", "requests-per-minute"},
	{"server.rate_limit.requests_per_hour", "requests-per-hour"},
	{"server.rate_limit.max_requests_per_day", "max-requests-per-day"},
	{"server.rate_limit.max_data_per_day", "max-data-per-day"},
}

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the anamorphosis API",
	Long: `Start an HTTP server that renders anamorphs of uploaded images.

The server provides the following endpoints:
  POST /transform        - Render one uploaded image (PNG, PDF or JSON reply)
  POST /transform/batch  - Render several base64 images with one mirror
  GET  /ws/transform     - WebSocket rendering with row progress
  GET  /options          - Accepted densities, modes and formats
  GET  /stats            - Transform counters and concurrency
  GET  /health           - Health check endpoint
  GET  /metrics          - Prometheus metrics

Render flags set the defaults for fields a request leaves out.

Examples:
  anamorph serve
  anamorph serve --port 8080 --dpi 300
  anamorph serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, renderBindings, serverBindings)
	},
	RunE: runServeCommand,
}

// buildServerConfig maps the merged configuration to server.Config.
func buildServerConfig(cfg *config.Config, cmd *cobra.Command) (server.Config, error) {
	defaults, err := renderSettings(cmd, cfg)
	if err != nil {
		return server.Config{}, err
	}
	sc := cfg.Server
	return server.Config{
		Host:          sc.Host,
		Port:          sc.Port,
		CORSOrigin:    sc.CORSOrigin,
		MaxUploadMB:   int64(sc.MaxUploadMB),
		TimeoutSec:    sc.TimeoutSec,
		MaxConcurrent: sc.MaxConcurrent,
		Defaults:      defaults,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     sc.RateLimit.MaxDataPerDay,
		},
		Version: version.Get().Version,
	}, nil
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	serverConfig, err := buildServerConfig(cfg, cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	anamorphServer, err := server.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	anamorphServer.SetupRoutes(mux)

	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		// rendering happens before the reply is written
		WriteTimeout: timeout + 10*time.Second,
	}

	go func() {
		slog.Info("Starting anamorph server", "host", serverConfig.Host, "port", serverConfig.Port,
			"max_concurrent", serverConfig.MaxConcurrent, "default_dpi", serverConfig.Defaults.TargetDPI)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	slog.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := anamorphServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	d := config.DefaultConfig().Server

	serveCmd.Flags().StringP("host", "H", d.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origin")
	serveCmd.Flags().Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.TimeoutSec, "per-transform timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	serveCmd.Flags().Int("max-concurrent", d.MaxConcurrent, "transforms rendered at once")

	addRenderFlags(serveCmd)

	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", d.RateLimit.Enabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.RateLimit.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.RateLimit.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", d.RateLimit.MaxRequestsPerDay, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", d.RateLimit.MaxDataPerDay, "maximum upload bytes per day per client")
}
