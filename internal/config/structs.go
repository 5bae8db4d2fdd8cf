//nolint:lll
package config

// Config is the complete configuration of the anamorph application. It is
// loaded from an anamorph.yaml file, ANAMORPH_* environment variables and
// command-line flags, in increasing order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Geometry GeometryConfig `mapstructure:"geometry" yaml:"geometry" json:"geometry"`
	Render   RenderConfig   `mapstructure:"render" yaml:"render" json:"render"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// GeometryConfig holds the mirror and vantage point in inches.
type GeometryConfig struct {
	Radius     float64 `mapstructure:"radius" yaml:"radius" json:"radius"`
	Height     float64 `mapstructure:"height" yaml:"height" json:"height"`
	Distance   float64 `mapstructure:"distance" yaml:"distance" json:"distance"`
	ViewHeight float64 `mapstructure:"view_height" yaml:"view_height" json:"view_height"`
}

// RenderConfig controls polygon rendering.
type RenderConfig struct {
	DPI           float64 `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Interpolation int     `mapstructure:"interpolation" yaml:"interpolation" json:"interpolation"`
	Mode          string  `mapstructure:"mode" yaml:"mode" json:"mode"`
	IgnoreWhite   bool    `mapstructure:"ignore_white" yaml:"ignore_white" json:"ignore_white"`
	IgnoreColor   string  `mapstructure:"ignore_color" yaml:"ignore_color" json:"ignore_color"`
	Workers       int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	Resample      string  `mapstructure:"resample" yaml:"resample" json:"resample"`
	MaxCanvasSide int     `mapstructure:"max_canvas_side" yaml:"max_canvas_side" json:"max_canvas_side"`
}

// OutputConfig controls the written file.
type OutputConfig struct {
	CylinderBase bool   `mapstructure:"cylinder_base" yaml:"cylinder_base" json:"cylinder_base"`
	Background   string `mapstructure:"background" yaml:"background" json:"background"`
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	Dir          string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Report       string `mapstructure:"report" yaml:"report" json:"report"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxConcurrent   int             `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
