// Package sample writes a demonstration data set: a plot configuration and
// one position file per timestamp with two entities on closed curves.
package sample

import (
	"bufio"
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/timeline"
	"github.com/banshee-data/animator/internal/trace"
)

// PlotConfig fixes the axes so the video does not jitter between frames.
const PlotConfig = `set size square
set grid lt 1 lc rgb "black"
set xrange [-100:100]
set yrange [-100:100]
set style line 1 lc rgb "web-green"
set style line 2 lc rgb "red"
`

// Frequency is the angular speed of both curves, in turns per time unit.
const Frequency = 1.0 / 128

// Color keys written to the color column.
const (
	colorTrail = 0
	colorHead  = 1
	colorOrbit = 2
)

// Hypotrochoid is the curve traced by a point at distance 50 from the
// center of a radius 30 circle rolling inside a radius 50 circle.
func Hypotrochoid(theta float64) (x, y float64) {
	const rc, rm, rd = 50.0, 30.0, 50.0
	k := (rc - rm) / rm
	return (rc-rm)*math.Cos(theta) + rd*math.Cos(k*theta),
		(rc-rm)*math.Sin(theta) - rd*math.Sin(k*theta)
}

// Epitrochoid is the curve traced by a point at distance 5 from the center
// of a radius 20 circle rolling outside a radius 30 circle.
func Epitrochoid(theta float64) (x, y float64) {
	const rc, rm, rd = 30.0, 20.0, 5.0
	k := (rc + rm) / rm
	return (rc+rm)*math.Cos(theta) - rd*math.Cos(k*theta),
		(rc+rm)*math.Sin(theta) - rd*math.Sin(k*theta)
}

func angle(t float64) float64 { return 2 * math.Pi * Frequency * t }

// Generator writes the sample data set into Dir.
type Generator struct {
	FS         fsutil.FileSystem
	Naming     timeline.Naming
	Dir        string
	PlotConfig string
	Progress   *monitoring.Progress
}

// Generate overwrites the plot configuration and writes one position file
// per timestamp of seq. Entity 0 leaves a trail of its earlier positions
// within the window; entity 1 is drawn at its current position only.
func (g Generator) Generate(ctx context.Context, seq timeline.Sequence) (int, error) {
	if err := g.FS.MkdirAll(g.Dir, 0755); err != nil {
		return 0, fmt.Errorf("create target directory: %w", err)
	}
	if err := g.FS.WriteFile(g.PlotConfig, []byte(PlotConfig), 0644); err != nil {
		return 0, fmt.Errorf("write plot config: %w", err)
	}

	written := 0
	for i := 0; i < seq.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		t := seq.At(i)
		g.Progress.Update(fmt.Sprintf("%s of %s", timeline.FormatLabel(t), seq))
		if err := g.writeFrame(seq, i); err != nil {
			return written, err
		}
		written++
	}
	g.Progress.Done()
	monitoring.Logf("generated %d sample position files in %s", written, g.Dir)
	return written, nil
}

func (g Generator) writeFrame(seq timeline.Sequence, i int) error {
	t := seq.At(i)
	path := g.Naming.PositionPath(g.Dir, t)
	f, err := g.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create sample position file: %w", err)
	}
	w := bufio.NewWriter(f)

	for j := 0; j < i; j++ {
		x, y := Hypotrochoid(angle(seq.At(j)))
		fmt.Fprintln(w, trace.FormatRow("0", []float64{x, y, 0, 0, colorTrail}))
	}
	x, y := Hypotrochoid(angle(t))
	fmt.Fprintln(w, trace.FormatRow("0", []float64{x, y, 0, 0, colorHead}))
	x, y = Epitrochoid(angle(t))
	fmt.Fprintln(w, trace.FormatRow("1", []float64{x, y, 0, 0, colorOrbit}))

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
