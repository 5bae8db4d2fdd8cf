package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/batch"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/config"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
)

var batchBindings = []flagBinding{
	{"output.format", "format"},
	{"output.dir", "output-dir"},
	{"batch.workers", "workers"},
	{"batch.recursive", "recursive"},
	{"batch.include", "include"},
	{"batch.exclude", "exclude"},
	{"batch.continue_on_error", "continue-on-error"},
}

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Render anamorphs of many images in parallel",
	Long: `Render the anamorph of every image found in the given files and
directories with one mirror setup, using a pool of workers. Each result is
written under a generated name; a summary is printed at the end.

Examples:
  anamorph batch *.png --radius 1.5 --height 4 --distance 12 --view-height 10
  anamorph batch photos/ --recursive --workers 4 --output-dir anamorphs
  anamorph batch photos/ --include '*.jpg' --exclude '*_thumb*' --summary json -o summary.json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, geometryBindings, renderBindings, batchBindings)
	},
	RunE: runBatchCommand,
}

// configToBatchConfig maps the merged configuration to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (*batch.Config, error) {
	params, err := cfg.PhysicalParameters()
	if err != nil {
		return nil, err
	}
	opts, err := renderSettings(cmd, cfg)
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	bc := &batch.Config{
		Params:          params,
		Options:         opts,
		Format:          format,
		OutputDir:       cfg.Output.Dir,
		Workers:         cfg.ParallelConfig().MaxWorkers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		ProgressWriter:  cmd.ErrOrStderr(),
	}

	// Progress settings are CLI-only
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	return bc, nil
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	bc, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d path(s)...\n", len(args))
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	result, err := batch.ProcessBatch(ctx, args, bc)
	if err != nil && result == nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	summary, _ := cmd.Flags().GetString("summary")
	summaryFile, _ := cmd.Flags().GetString("output")
	if saveErr := result.SaveResults(out, summary, summaryFile, bc.Quiet); saveErr != nil {
		return fmt.Errorf("failed to save results: %w", saveErr)
	}
	if showStats, _ := cmd.Flags().GetBool("stats"); showStats && summary != batch.FormatText {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}

	if err != nil {
		return err
	}
	if result.Failed() {
		stats := result.Stats()
		return fmt.Errorf("%d of %d images failed", stats.FailedImages, stats.TotalImages)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addGeometryFlags(batchCmd)
	addRenderFlags(batchCmd)
	d := config.DefaultConfig()

	// Output flags
	batchCmd.Flags().StringP("format", "f", d.Output.Format, "image format: png or pdf")
	batchCmd.Flags().StringP("output-dir", "d", "", "directory for the anamorphs (default: next to each source)")
	batchCmd.Flags().String("summary", batch.FormatText,
		fmt.Sprintf("summary format: %s, %s, %s or %s", batch.FormatText, batch.FormatJSON, batch.FormatYAML, batch.FormatCSV))
	batchCmd.Flags().StringP("output", "o", "", "summary file (default: stdout)")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", d.Batch.Workers,
		fmt.Sprintf("images transformed at once (0 = %d)", runtime.NumCPU()))
	batchCmd.Flags().Bool("continue-on-error", d.Batch.ContinueOnError, "keep going when an image fails")

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", d.Batch.Recursive, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", d.Batch.Include, "file patterns to include (e.g. '*.png')")
	batchCmd.Flags().StringSlice("exclude", d.Batch.Exclude, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics to stderr")
	batchCmd.Flags().Duration("progress-interval", 500*time.Millisecond, "progress update interval")
}
