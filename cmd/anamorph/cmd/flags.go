package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/compose"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/config"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/utils"
)

// flagBinding ties a command flag to a configuration key.
type flagBinding struct {
	key  string
	flag string
}

var geometryBindings = []flagBinding{
	{"geometry.radius", "radius"},
	{"geometry.height", "height"},
	{"geometry.distance", "distance"},
	{"geometry.view_height", "view-height"},
}

var renderBindings = []flagBinding{
	{"render.dpi", "dpi"},
	{"render.interpolation", "interpolation"},
	{"render.mode", "mode"},
	{"render.ignore_white", "ignore-white"},
	{"render.ignore_color", "ignore-color"},
	{"render.workers", "threads"},
	{"render.resample", "resample"},
	{"render.max_canvas_side", "max-canvas-side"},
	{"output.cylinder_base", "cylinder-base"},
	{"output.background", "background"},
}

// addGeometryFlags registers the mirror flags (inches).
func addGeometryFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("radius", 0, "cylinder radius r in inches")
	cmd.Flags().Float64("height", 0, "cylinder height h in inches")
	cmd.Flags().Float64("distance", 0, "viewing distance vx from the cylinder axis in inches (must exceed the radius)")
	cmd.Flags().Float64("view-height", 0, "viewing height vz above the table in inches (must exceed the cylinder height)")
}

// addRenderFlags registers the flags shared by every command that renders.
func addRenderFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().Float64("dpi", d.Render.DPI,
		fmt.Sprintf("printer density in dots per inch (common: %s)", joinFloats(pipeline.DPIChoices)))
	cmd.Flags().IntP("interpolation", "n", d.Render.Interpolation,
		fmt.Sprintf("extra points per polygon edge (common: %s)", joinInts(pipeline.InterpolationChoices)))
	cmd.Flags().String("mode", d.Render.Mode, "render mode: hq (anti-aliased, seams stroked) or lowram (aliased fill only)")
	cmd.Flags().Bool("ignore-white", d.Render.IgnoreWhite, "leave pure white source pixels unpainted")
	cmd.Flags().String("ignore-color", d.Render.IgnoreColor, "leave source pixels of this colour unpainted (#rrggbb[aa])")
	cmd.Flags().Int("threads", d.Render.Workers, "grid mapping workers (0 = number of CPUs)")
	cmd.Flags().String("resample", d.Render.Resample,
		"filter used when the source is downscaled ("+strings.Join(utils.ResampleFilterNames(), ", ")+")")
	cmd.Flags().Int("max-canvas-side", compose.DefaultMaxCanvasSide, "largest accepted output side in pixels (0 = no limit)")
	cmd.Flags().Bool("cylinder-base", d.Output.CylinderBase, "draw the outline of the cylinder base")
	cmd.Flags().String("background", d.Output.Background, "canvas colour (white, black, transparent or #rrggbb[aa])")
	cmd.Flags().Bool("transparent", false, "keep the canvas transparent (same as --background transparent)")
}

// bindFlags binds flags to viper keys. Commands bind in PreRunE so that
// only the running command's flags feed the shared keys.
func bindFlags(cmd *cobra.Command, bindings ...[]flagBinding) error {
	for _, set := range bindings {
		for _, b := range set {
			f := cmd.Flags().Lookup(b.flag)
			if f == nil {
				return fmt.Errorf("unknown flag %s", b.flag)
			}
			if err := viper.BindPFlag(b.key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
			}
		}
	}
	return nil
}

// renderSettings resolves the mirror and render options from the merged
// configuration. --transparent overrides the background.
func renderSettings(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	if t, _ := cmd.Flags().GetBool("transparent"); t {
		cfg.Output.Background = "transparent"
	}
	return cfg.PipelineOptions()
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
