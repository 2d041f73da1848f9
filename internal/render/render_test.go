package render

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/testutil"
	"github.com/banshee-data/animator/internal/timeline"
)

func fakeGnuplot(fs fsutil.FileSystem, fail map[string]bool) *testutil.Tools {
	tools := testutil.NewTools(fs, "gnuplot")
	for img := range fail {
		tools.FailImages[img] = true
	}
	return tools
}

func gnuplotRunner(t *testing.T, fs fsutil.FileSystem, cmds executil.CommandBuilder) Runner {
	t.Helper()
	c, err := config.Build(config.Overrides{TargetDir: config.Ptr("run"), Renderer: config.Ptr(config.RendererGnuplot)})
	require.NoError(t, err)
	r, err := New(c, fs, cmds)
	require.NoError(t, err)
	return Runner{FS: fs, Naming: c.Naming(), Dir: "run", Renderer: r}
}

func TestRenderAll_Sequential(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("run/time_000000.00.pos", []byte("0 1 1 0 0 1\n"), 0644))
	require.NoError(t, fs.WriteFile("run/gnuplot.conf", []byte("set size square\n"), 0644))
	cmds := fakeGnuplot(fs, nil)

	rep, err := gnuplotRunner(t, fs, cmds).RenderAll(context.Background(), timeline.MustSequence(0, 3, 1))
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.Equal(t, "gnuplot", rep.Renderer)

	require.Len(t, cmds.Commands, 3, "one process per frame")
	for i, cmd := range cmds.Commands {
		assert.Equal(t, "/usr/bin/gnuplot", cmd.Name)
		assert.Contains(t, string(cmds.Executors[i].Stdin), `load "run/gnuplot.conf"`)
	}

	var times []float64
	for _, f := range rep.Frames {
		times = append(times, f.Time)
		assert.True(t, fs.Exists(f.Image), f.Image)
	}
	assert.Equal(t, []float64{0, 1, 2}, times)

	assert.False(t, rep.Frames[0].Created)
	assert.True(t, rep.Frames[1].Created, "missing position file is created")
	data, err := fs.ReadFile("run/time_000001.00.pos")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRenderAll_CollectsFailures(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cmds := fakeGnuplot(fs, map[string]bool{"run/time_000001.00.png": true})

	rep, err := gnuplotRunner(t, fs, cmds).RenderAll(context.Background(), timeline.MustSequence(0, 3, 1))
	require.NoError(t, err)
	require.Len(t, rep.Frames, 3)

	failed := rep.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, 1.0, failed[0].Time)

	var rerr *RenderError
	require.ErrorAs(t, rep.Err(), &rerr)
	assert.Contains(t, rerr.Error(), "no valid points")
	assert.True(t, fs.Exists("run/time_000002.00.png"), "later frames still render")
}

func TestRenderAll_FailFast(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cmds := fakeGnuplot(fs, map[string]bool{"run/time_000001.00.png": true})
	r := gnuplotRunner(t, fs, cmds)
	r.FailFast = true

	rep, err := r.RenderAll(context.Background(), timeline.MustSequence(0, 3, 1))
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1.0, rerr.Time)
	assert.Len(t, rep.Frames, 2)
	assert.Len(t, cmds.Commands, 2)
}

func TestRenderAll_Cancelled(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := gnuplotRunner(t, fs, fakeGnuplot(fs, nil)).RenderAll(ctx, timeline.MustSequence(0, 3, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Frames)
}

func TestNew_Selection(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()

	build := func(mode string) config.Config {
		c, err := config.Build(config.Overrides{Renderer: config.Ptr(mode), RenderTimeout: config.Ptr("5s")})
		require.NoError(t, err)
		return c
	}

	r, err := New(build(config.RendererAuto), fs, executil.NewMockCommandBuilder("gnuplot"))
	require.NoError(t, err)
	g, ok := r.(*Gnuplot)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, g.Timeout)

	r, err = New(build(config.RendererAuto), fs, executil.NewMockCommandBuilder())
	require.NoError(t, err)
	assert.Equal(t, "builtin", r.Name(), "auto falls back without gnuplot")

	_, err = New(build(config.RendererGnuplot), fs, executil.NewMockCommandBuilder())
	assert.ErrorIs(t, err, executil.ErrToolNotFound)

	cmds := executil.NewMockCommandBuilder("gnuplot")
	r, err = New(build(config.RendererBuiltin), fs, cmds)
	require.NoError(t, err)
	assert.Equal(t, "builtin", r.Name())
	assert.Empty(t, cmds.Commands)
}

func TestBuiltin_Render(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "gif"} {
		t.Run(format, func(t *testing.T) {
			fs := fsutil.NewMemoryFileSystem()
			require.NoError(t, fs.WriteFile("run/time_000004.00.pos", []byte(
				"0 10 20 0 0 0\n0 12 22 0 0 0\n0 13 23 0 0 1\n1 -5 8 0 0 2\n# comment\nshort row\n"), 0644))
			require.NoError(t, fs.WriteFile("run/gnuplot.conf", []byte("set xrange [-100:100]\nset yrange [-100:100]\n"), 0644))

			c, err := config.Build(config.Overrides{
				TargetDir:   config.Ptr("run"),
				Width:       config.Ptr(320),
				Height:      config.Ptr(240),
				ImageFormat: config.Ptr(format),
				Renderer:    config.Ptr(config.RendererBuiltin),
			})
			require.NoError(t, err)

			b := &Builtin{FS: fs, Options: OptionsFromConfig(c)}
			f := Frame{Time: 4, Position: "run/time_000004.00.pos", Image: c.Naming().ImagePath("run", 4)}
			require.NoError(t, b.Render(context.Background(), f))

			data, err := fs.ReadFile(f.Image)
			require.NoError(t, err)
			img, got, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, format, got)
			assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
		})
	}
}

func TestBuiltin_BadColumn(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("p.pos", []byte("0 ten 20 0 0 0\n"), 0644))
	o := defaultOptions(t)
	o.Format = "png"

	err := (&Builtin{FS: fs, Options: o}).Render(context.Background(), Frame{Position: "p.pos", Image: "p.png"})
	assert.ErrorContains(t, err, "line 1")
	assert.False(t, fs.Exists("p.png"))
}

func TestReadGroups(t *testing.T) {
	o := Options{XCol: 2, YCol: 3, ColorCol: 6}
	groups, err := readGroups(strings.NewReader("0 1 2 0 0 2\n1 3 4 0 0 0\n2 5 6 0 0 2\n"), o)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 0, groups[0].key)
	assert.Equal(t, 2, groups[1].key)
	assert.Len(t, groups[1].points, 2)
}

func TestParseAxisRanges(t *testing.T) {
	r := ParseAxisRanges([]byte(`set size square
set xrange [-100:100]
  set yrange [ 5 : -5 ]
set grid lt 1 lc rgb "black"
`))
	require.NotNil(t, r.X)
	require.NotNil(t, r.Y)
	assert.Equal(t, [2]float64{-100, 100}, *r.X)
	assert.Equal(t, [2]float64{-5, 5}, *r.Y)

	r = ParseAxisRanges([]byte("set xrange [-1:1]\nset xrange [*:*]\n"))
	assert.Nil(t, r.X, "autoscale overrides an earlier range")
	assert.Nil(t, r.Y)
}

func TestGroupColor_Stable(t *testing.T) {
	assert.Equal(t, groupColor(1), groupColor(9))
	assert.Equal(t, groupColor(-1), groupColor(7))
	assert.NotEqual(t, groupColor(0), groupColor(1))
}
