// Package preview writes an HTML scatter chart of every entity's trajectory
// across the time window, for checking data before rendering frames.
package preview

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/render"
	"github.com/banshee-data/animator/internal/trace"
)

// Result describes a written preview.
type Result struct {
	Path     string
	Entities int
	Points   int
}

// Point is one entity position at one timestamp.
type Point struct {
	Time float64
	X, Y float64
}

// Collect reads the position files of c's window and returns each entity's
// path in time order. An entity listed more than once in a file keeps its
// last row, which is its current position in trail-style data.
func Collect(fsys fsutil.FileSystem, c config.Config) (map[string][]Point, error) {
	naming := c.Naming()
	paths := make(map[string][]Point)

	for t := range c.Sequence().All() {
		p := naming.PositionPath(c.TargetDir, t)
		if !fsys.Exists(p) {
			continue
		}
		data, err := fsys.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read position file: %w", err)
		}
		latest, err := parseFrame(data, c.XCol, c.YCol)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for id, xy := range latest {
			paths[id] = append(paths[id], Point{Time: t, X: xy[0], Y: xy[1]})
		}
	}
	return paths, nil
}

func parseFrame(data []byte, xCol, yCol int) (map[string][2]float64, error) {
	out := make(map[string][2]float64)
	need := max(xCol, yCol)
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		cols := strings.Fields(sc.Text())
		if len(cols) < need || strings.HasPrefix(cols[0], "#") {
			continue
		}
		x, err := strconv.ParseFloat(cols[xCol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		y, err := strconv.ParseFloat(cols[yCol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out[cols[0]] = [2]float64{x, y}
	}
	return out, sc.Err()
}

// Write renders the preview page for c into c.PreviewPath().
func Write(fsys fsutil.FileSystem, c config.Config) (Result, error) {
	paths, err := Collect(fsys, c)
	if err != nil {
		return Result{}, err
	}

	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return trace.LessID(ids[i], ids[j]) })

	xAxis := opts.XAxis{Name: c.XLabel, NameLocation: "middle", NameGap: 25}
	yAxis := opts.YAxis{Name: c.YLabel, NameLocation: "middle", NameGap: 30}
	if fsys.Exists(c.PlotConfigPath()) {
		conf, err := fsys.ReadFile(c.PlotConfigPath())
		if err != nil {
			return Result{}, fmt.Errorf("read plot config: %w", err)
		}
		r := render.ParseAxisRanges(conf)
		if r.X != nil {
			xAxis.Min, xAxis.Max = r.X[0], r.X[1]
		}
		if r.Y != nil {
			yAxis.Min, yAxis.Max = r.Y[0], r.Y[1]
		}
	}

	res := Result{Path: c.PreviewPath(), Entities: len(ids)}
	seq := c.Sequence()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trajectory preview", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trajectories", Subtitle: fmt.Sprintf("%s entities=%d", seq, len(ids))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "bottom"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(seq.Begin()),
			Max:        float32(seq.End()),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)

	for _, id := range ids {
		pts := paths[id]
		data := make([]opts.ScatterData, 0, len(pts))
		for _, p := range pts {
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, p.Time}})
		}
		res.Points += len(data)
		scatter.AddSeries("node "+id, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return Result{}, fmt.Errorf("render preview: %w", err)
	}
	if err := fsys.WriteFile(res.Path, buf.Bytes(), 0644); err != nil {
		return Result{}, fmt.Errorf("write preview: %w", err)
	}
	return res, nil
}
