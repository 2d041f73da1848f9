package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	imagedraw "image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/animator/internal/fsutil"
)

// Builtin draws frames in-process with gonum/plot. It understands the axis
// ranges of the plot configuration and ignores every other gnuplot command.
type Builtin struct {
	FS      fsutil.FileSystem
	Options Options
}

func (b *Builtin) Name() string { return "builtin" }

// Render draws f.Position into f.Image.
func (b *Builtin) Render(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.FS.ReadFile(f.Position)
	if err != nil {
		return fmt.Errorf("read position file: %w", err)
	}
	groups, err := readGroups(bytes.NewReader(data), b.Options)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Position, err)
	}

	var ranges AxisRanges
	if b.Options.PlotConfig != "" && b.FS.Exists(b.Options.PlotConfig) {
		conf, err := b.FS.ReadFile(b.Options.PlotConfig)
		if err != nil {
			return fmt.Errorf("read plot config: %w", err)
		}
		ranges = ParseAxisRanges(conf)
	}

	p, err := b.plot(f, groups, ranges)
	if err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, b.Options.Width, b.Options.Height))
	c := vgimg.NewWith(vgimg.UseImage(img))
	p.Draw(draw.New(c))

	out, err := b.FS.Create(f.Image)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := encode(out, c.Image(), b.Options.Format); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", f.Image, err)
	}
	return out.Close()
}

func (b *Builtin) plot(f Frame, groups []pointGroup, ranges AxisRanges) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = TimeLabel(f.Time, b.Options.TimeUnit)
	p.X.Label.Text = b.Options.XLabel
	p.Y.Label.Text = b.Options.YLabel
	p.Add(plotter.NewGrid())

	for _, g := range groups {
		s, err := plotter.NewScatter(g.points)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Color = groupColor(g.key)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("nodes %d", g.key), s)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if ranges.X != nil {
		p.X.Min, p.X.Max = ranges.X[0], ranges.X[1]
	}
	if ranges.Y != nil {
		p.Y.Min, p.Y.Max = ranges.Y[0], ranges.Y[1]
	}
	return p, nil
}

type pointGroup struct {
	key    int
	points plotter.XYs
}

// readGroups splits the rows of a position file by their color column.
// Rows too short for the plotted columns are skipped, as gnuplot does.
func readGroups(r io.Reader, o Options) ([]pointGroup, error) {
	byKey := make(map[int]plotter.XYs)
	need := max(o.XCol, o.YCol, o.ColorCol)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 || strings.HasPrefix(cols[0], "#") || len(cols) < need {
			continue
		}
		x, err := strconv.ParseFloat(cols[o.XCol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", line, err)
		}
		y, err := strconv.ParseFloat(cols[o.YCol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		c, err := strconv.ParseFloat(cols[o.ColorCol-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: color: %w", line, err)
		}
		key := int(math.Round(c))
		byKey[key] = append(byKey[key], plotter.XY{X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	groups := make([]pointGroup, 0, len(byKey))
	for k, pts := range byKey {
		groups = append(groups, pointGroup{key: k, points: pts})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups, nil
}

// AxisRanges holds the fixed axis ranges of a plot configuration. A nil
// range is autoscaled.
type AxisRanges struct {
	X *[2]float64
	Y *[2]float64
}

var rangeLine = regexp.MustCompile(`^\s*set\s+([xy])r(?:ange)?\s*\[\s*([^:\]]*?)\s*:\s*([^\]]*?)\s*\]`)

// ParseAxisRanges extracts "set xrange [a:b]" and "set yrange [a:b]" from a
// gnuplot configuration. Later lines win; "*" or empty bounds autoscale.
func ParseAxisRanges(conf []byte) AxisRanges {
	var r AxisRanges
	sc := bufio.NewScanner(bytes.NewReader(conf))
	for sc.Scan() {
		m := rangeLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		lo, err1 := strconv.ParseFloat(m[2], 64)
		hi, err2 := strconv.ParseFloat(m[3], 64)
		var v *[2]float64
		if err1 == nil && err2 == nil && lo != hi {
			v = &[2]float64{min(lo, hi), max(lo, hi)}
		}
		if m[1] == "x" {
			r.X = v
		} else {
			r.Y = v
		}
	}
	return r
}

// palette8 keeps a color key's color stable from frame to frame.
var palette8 = generateColors(8)

func groupColor(key int) color.Color {
	i := key % len(palette8)
	if i < 0 {
		i += len(palette8)
	}
	return palette8[i]
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "gif":
		pimg := image.NewPaletted(img.Bounds(), palette.Plan9)
		imagedraw.FloydSteinberg.Draw(pimg, pimg.Bounds(), img, image.Point{})
		return gif.Encode(w, pimg, nil)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}
