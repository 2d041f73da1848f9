package render

import (
	"fmt"
	"strings"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/timeline"
)

// Frame names the input and output of one rendered timestamp.
type Frame struct {
	Time     float64
	Position string
	Image    string
}

// Options are the frame-independent plot settings.
type Options struct {
	Terminal string
	Format   string
	Width    int
	Height   int
	Font     string
	XLabel   string
	YLabel   string
	TimeUnit string

	// 1-based columns of the position file.
	XCol     int
	YCol     int
	ColorCol int

	// PlotConfig is the optional user plot configuration. It is only
	// loaded when the file exists at render time.
	PlotConfig string
}

// OptionsFromConfig extracts the plot settings of c.
func OptionsFromConfig(c config.Config) Options {
	return Options{
		Terminal:   c.Terminal(),
		Format:     c.ImageFormat,
		Width:      c.Width,
		Height:     c.Height,
		Font:       c.Font,
		XLabel:     c.XLabel,
		YLabel:     c.YLabel,
		TimeUnit:   c.TimeUnit,
		XCol:       c.XCol,
		YCol:       c.YCol,
		ColorCol:   c.ColorCol,
		PlotConfig: c.PlotConfigPath(),
	}
}

// TimeLabel is the annotation drawn in the corner of every frame.
func TimeLabel(t float64, unit string) string {
	if unit == "" {
		return "time = " + timeline.FormatLabel(t)
	}
	return "time = " + timeline.FormatLabel(t) + " " + unit
}

// BuildScript returns the gnuplot commands that draw f. loadConfig adds a
// load of o.PlotConfig; callers pass true only when that file exists.
func BuildScript(f Frame, o Options, loadConfig bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "set terminal %s enhanced size %d, %d font %s\n", o.Terminal, o.Width, o.Height, quote(o.Font))
	fmt.Fprintf(&b, "set output %s\n", quote(f.Image))
	fmt.Fprintf(&b, "set xlabel %s\n", quote(o.XLabel))
	fmt.Fprintf(&b, "set ylabel %s\n", quote(o.YLabel))
	fmt.Fprintf(&b, "set label 1 %s at graph 0.05, 0.95 left\n", quote(TimeLabel(f.Time, o.TimeUnit)))
	b.WriteString("set key box\n")
	if loadConfig && o.PlotConfig != "" {
		fmt.Fprintf(&b, "load %s\n", quote(o.PlotConfig))
	}
	fmt.Fprintf(&b, "plot %s u %d:%d:%d w p pt 7 ps 2 lc variable t \"nodes\"\n",
		quote(f.Position), o.XCol, o.YCol, o.ColorCol)
	return b.String()
}

// quote renders s as a double-quoted gnuplot string. Backslashes are
// escaped so Windows paths survive.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
