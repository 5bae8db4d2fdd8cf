package output

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/geometry"
	"github.com/Nieto-/AnamorphosisMadeEasy/internal/pipeline"
)

// ParamsTag is the parameter summary appended to generated file names:
// "dpi,r,h,vx,vz[ Nn] HQ|LoRAM[ IgnWht][ DrwCyl][ PresTrans]".
func ParamsTag(p geometry.PhysicalParameters, opts pipeline.Options) string {
	var b strings.Builder
	b.WriteString(num(opts.TargetDPI))
	for _, v := range []float64{p.Radius, p.Height, p.Distance, p.ViewHeight} {
		b.WriteByte(',')
		b.WriteString(num(v))
	}
	if opts.Interpolation != 0 {
		b.WriteString(" " + strconv.Itoa(opts.Interpolation) + "n")
	}
	b.WriteString(" " + opts.Mode.Tag())
	if opts.IgnoresWhite() {
		b.WriteString(" IgnWht")
	}
	if opts.DrawCylinderBase {
		b.WriteString(" DrwCyl")
	}
	if opts.Transparent() {
		b.WriteString(" PresTrans")
	}
	return b.String()
}

// FileName builds "<stem> <params><ext>" for the source at srcPath. The stem
// is NFC-normalised and stripped of path separators; an empty source gives
// just the parameter tag.
func FileName(srcPath string, p geometry.PhysicalParameters, opts pipeline.Options, format Format) string {
	stem := ""
	if srcPath != "" {
		base := filepath.Base(srcPath)
		stem = sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	tag := ParamsTag(p, opts)
	if stem == "" {
		return tag + format.Ext()
	}
	return stem + " " + tag + format.Ext()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
