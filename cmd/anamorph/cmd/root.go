// Package cmd holds the anamorph command tree.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/config"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "anamorph",
	Short: "Cylindrical mirror anamorphosis generator",
	Long: `anamorph distorts a flat image so that its reflection in a polished
cylinder, seen from a chosen vantage point, shows the original picture.

Lengths (radius, height, distance, view height) are in inches. The output
is a printable PNG or PDF at the requested density, optionally with the
outline of the cylinder base drawn where the mirror stands.

Examples:
  anamorph transform portrait.png --radius 1.5 --height 4 --distance 12 --view-height 10
  anamorph batch photos/ --recursive --output-dir anamorphs --workers 4
  anamorph serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			printVersion(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $XDG_CONFIG_HOME/anamorph, $HOME, $HOME/.config/anamorph, /etc/anamorph)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	bindRootFlags()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), globalConfig)
		return nil
	}
}

func bindRootFlags() {
	for key, flag := range map[string]string{"verbose": "verbose", "log_level": "log-level"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}
}

// setupLogging installs a JSON slog handler at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	var level slog.Level
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns the configuration including flags bound after the
// initial load, validated again.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			return nil, err
		}
	}

	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling updated configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

func printVersion(w io.Writer) {
	info := version.Get()
	_, _ = fmt.Fprintf(w, "anamorph version %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "Commit: %s\n", info.GitCommit)
	_, _ = fmt.Fprintf(w, "Built: %s\n", info.BuildDate)
	_, _ = fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
}
