package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

var transformOutputBindings = []flagBinding{
	{"output.format", "format"},
	{"output.dir", "output-dir"},
	{"output.report", "report"},
}

// rowProgress draws a bar when w is a terminal and logs through slog
// otherwise, so redirected stderr stays line-oriented.
func rowProgress(w io.Writer) pipeline.ProgressCallback {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return pipeline.NewConsoleProgressCallback(f, "Rows: ")
	}
	return pipeline.NewLogProgressCallback(slog.Default(), slog.LevelInfo, "rendering rows").
		WithInterval(logRowStep)
}

// logRowStep is how many rows pass between progress log lines.
const logRowStep = 250

// transformCmd renders the anamorph of a single image.
var transformCmd = &cobra.Command{
	Use:   "transform <image>",
	Short: "Render the cylindrical anamorphosis of one image",
	Long: `Render the anamorphic image of a flat source picture for a cylindrical
mirror of radius r and height h, seen from distance vx at height vz.

Supported source formats: JPEG, PNG, GIF, BMP

The output file name is derived from the source name and the settings
unless --output is given, e.g. "portrait 600,1.5,4,12,10 HQ DrwCyl.png".

Examples:
  anamorph transform portrait.png --radius 1.5 --height 4 --distance 12 --view-height 10
  anamorph transform logo.png --radius 1 --height 3 --distance 8 --view-height 6 -n 3 --mode lowram
  anamorph transform photo.jpg --config mirror.yaml --format pdf --report json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, geometryBindings, renderBindings, transformOutputBindings)
	},
	RunE: runTransformCommand,
}

func runTransformCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	params, err := cfg.PhysicalParameters()
	if err != nil {
		return err
	}
	opts, err := renderSettings(cmd, cfg)
	if err != nil {
		return err
	}

	src := args[0]
	if !utils.IsSupportedImage(src) {
		return fmt.Errorf("unsupported image format: %s", src)
	}
	img, meta, err := utils.LoadImage(src)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", src, err)
	}

	outFlag, _ := cmd.Flags().GetString("output")
	format, err := resolveFormat(cmd, cfg.Output.Format, outFlag)
	if err != nil {
		return err
	}
	target, err := resolveOutputPath(outFlag, cfg.Output.Dir, meta.Path, output.FileName(meta.Path, params, opts, format))
	if err != nil {
		return err
	}

	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		opts.Progress = rowProgress(cmd.ErrOrStderr())
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	res, err := pipeline.Transform(ctx, params, opts, img)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return fmt.Errorf("transform %s: %w", src, err)
	}
	if err := output.Save(target, res.Image, res.Metadata.DPI, format); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Output.Report != "" {
		report, err := pipeline.FormatReport(&res.Report, cfg.Output.Report)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, report)
	}
	wIn, hIn := res.Metadata.PrintSize()
	_, _ = fmt.Fprintf(out, "Wrote %s (%dx%d px, %g dpi, %.2fx%.2f in)\n",
		target, res.Metadata.Width, res.Metadata.Height, res.Metadata.DPI, wIn, hIn)
	return nil
}

// resolveFormat picks --format when given, else the extension of
// --output, else the configured format.
func resolveFormat(cmd *cobra.Command, configured, outFlag string) (output.Format, error) {
	if !cmd.Flags().Changed("format") && outFlag != "" && filepath.Ext(outFlag) != "" {
		return output.FormatFromPath(outFlag), nil
	}
	return output.ParseFormat(configured)
}

// resolveOutputPath returns where the anamorph goes: --output as a file,
// --output as an existing directory, the configured output directory or
// the source's directory, in that order.
func resolveOutputPath(outFlag, outDir, srcPath, name string) (string, error) {
	if outFlag != "" {
		if info, err := os.Stat(outFlag); err == nil && info.IsDir() {
			return filepath.Join(outFlag, name), nil
		}
		return outFlag, nil
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		return filepath.Join(outDir, name), nil
	}
	return filepath.Join(filepath.Dir(srcPath), name), nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.AddCommand(transformCmd)

	addGeometryFlags(transformCmd)
	addRenderFlags(transformCmd)
	transformCmd.Flags().StringP("output", "o", "", "output file or directory (default: generated name next to the source)")
	transformCmd.Flags().String("output-dir", "", "directory for generated file names")
	transformCmd.Flags().StringP("format", "f", string(output.FormatPNG), "output format: png or pdf")
	transformCmd.Flags().String("report", "", "print a report: text, json or yaml")
	transformCmd.Flags().Bool("progress", false, "show row progress on stderr")
}
