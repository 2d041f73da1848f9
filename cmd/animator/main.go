// Command animator turns per-timestamp position files into frame images and
// an animation video.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/pipeline"
	"github.com/banshee-data/animator/internal/timeutil"
	"github.com/banshee-data/animator/internal/trace"
	"github.com/banshee-data/animator/internal/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// deps is what a run touches outside the process.
type deps struct {
	stdout  io.Writer
	stderr  io.Writer
	environ map[string]string // nil means the process environment
	fs      fsutil.FileSystem
	cmds    executil.CommandBuilder
	clock   timeutil.Clock
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], deps{
		stdout: os.Stdout,
		stderr: os.Stderr,
		fs:     fsutil.OSFileSystem{},
		cmds:   executil.NewRealCommandBuilder(),
		clock:  timeutil.RealClock{},
	})
	stop()
	os.Exit(code)
}

// cli holds the parsed command line.
type cli struct {
	stages     pipeline.Stages
	overrides  config.Overrides
	configFile string
	full       bool
	version    bool
}

func newFlagSet(c *cli, stderr io.Writer) (*flag.FlagSet, func()) {
	d := config.Defaults()
	fs := flag.NewFlagSet("animator", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&c.stages.Assemble, "a", false, "assemble the rendered images into a video")
	fs.BoolVar(&c.stages.Render, "c", false, "render an image for every timestamp")
	fs.BoolVar(&c.stages.Convert, "s", false, "generate position files from trace files")
	fs.BoolVar(&c.stages.Sample, "S", false, "generate sample position files and "+d.PlotConfigName)
	fs.BoolVar(&c.stages.Cleanup, "C", false, "remove generated files from the target directory")
	fs.BoolVar(&c.stages.Preview, "preview", false, "write "+d.PreviewName+", a trajectory chart of the window")

	begin := fs.Float64("b", d.Begin, "first timestamp (inclusive)")
	end := fs.Float64("e", d.End, "last timestamp (exclusive)")
	interval := fs.Float64("i", d.Interval, "time between frames")
	width := fs.Int("w", d.Width, "image width in pixels")
	height := fs.Int("h", d.Height, "image height in pixels")
	format := fs.String("f", d.ImageFormat, "image format: png, jpeg or gif")
	rate := fs.Int("r", d.FrameRate, "video frame rate")
	target := fs.String("t", d.TargetDir, "target directory")
	xCol := fs.Int("x", d.XCol, "position file column plotted on the x axis")
	yCol := fs.Int("y", d.YCol, "position file column plotted on the y axis")
	renderer := fs.String("renderer", d.Renderer, "renderer: auto, gnuplot or builtin")
	indexer := fs.String("indexer", d.Indexer, "frame indexing for the encoder: auto, symlink, copy or manifest")
	timeout := fs.String("render-timeout", "", "per-frame render timeout, e.g. 30s (default none)")
	failFast := fs.Bool("fail-fast", false, "stop at the first frame that fails to render")

	fs.StringVar(&c.configFile, "config", "", "JSON configuration file")
	fs.BoolVar(&c.full, "H", false, "show the full help")
	fs.BoolVar(&c.version, "version", false, "print version and exit")

	// Only flags given on the command line override lower layers.
	collect := func() {
		o := &c.overrides
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "b":
				o.Begin = begin
			case "e":
				o.End = end
			case "i":
				o.Interval = interval
			case "w":
				o.Width = width
			case "h":
				o.Height = height
			case "f":
				o.ImageFormat = format
			case "r":
				o.FrameRate = rate
			case "t":
				o.TargetDir = target
			case "x":
				o.XCol = xCol
			case "y":
				o.YCol = yCol
			case "renderer":
				o.Renderer = renderer
			case "indexer":
				o.Indexer = indexer
			case "render-timeout":
				o.RenderTimeout = timeout
			case "fail-fast":
				o.FailFast = failFast
			}
		})
	}
	return fs, collect
}

// expandClusters splits grouped stage switches such as -ac into -a -c.
func expandClusters(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		if len(a) > 2 && a[0] == '-' && a[1] != '-' && strings.Trim(a[1:], "acsSC") == "" {
			for _, r := range a[1:] {
				out = append(out, "-"+string(r))
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func run(ctx context.Context, args []string, d deps) int {
	var c cli
	fs, collect := newFlagSet(&c, d.stderr)
	fs.Usage = func() { printUsage(d.stderr, fs) }

	if err := fs.Parse(expandClusters(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(d.stdout, fs)
			return exitOK
		}
		return exitUsage
	}
	if c.full {
		printHelp(d.stdout, fs)
		return exitOK
	}
	if c.version {
		fmt.Fprintln(d.stdout, version.String())
		return exitOK
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(d.stderr, "error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		printUsage(d.stderr, fs)
		return exitUsage
	}
	if !c.stages.Any() {
		fmt.Fprintln(d.stderr, "error: nothing to do; choose at least one of -C -S -s -c -a -preview")
		printUsage(d.stderr, fs)
		return exitUsage
	}
	collect()

	cfg, err := loadConfig(c, d.environ)
	if err != nil {
		fmt.Fprintf(d.stderr, "error: %v\n", err)
		return exitUsage
	}

	monitoring.SetLogger(log.New(d.stderr, "", log.LstdFlags).Printf)
	defer monitoring.SetLogger(log.Printf)

	_, err = pipeline.Run(ctx, pipeline.Options{
		Config:   cfg,
		Stages:   c.stages,
		FS:       d.fs,
		Commands: d.cmds,
		Clock:    d.clock,
		Progress: d.stdout,
	})
	if err != nil {
		fmt.Fprintf(d.stderr, "error: %v\n", err)
		switch {
		case errors.Is(err, trace.ErrNoTraceFiles):
			fmt.Fprintf(d.stderr, "hint: -s needs %s files in %s\n", cfg.Naming().TraceGlob(""), cfg.TargetDir)
		case errors.Is(err, executil.ErrToolNotFound):
			fmt.Fprintln(d.stderr, "hint: install gnuplot and ffmpeg (or avconv), or use -renderer builtin")
		}
		return exitFailure
	}
	return exitOK
}

func loadConfig(c cli, environ map[string]string) (config.Config, error) {
	var layers []config.Overrides
	if c.configFile != "" {
		file, err := config.LoadFile(c.configFile)
		if err != nil {
			return config.Config{}, err
		}
		layers = append(layers, file)
	}
	envLayer, err := config.FromEnv(environ)
	if err != nil {
		return config.Config{}, err
	}
	layers = append(layers, envLayer, c.overrides)
	return config.Build(layers...)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, `Usage: animator [-C] [-S] [-s] [-c] [-a] [-preview] [options]

Stages run in the order cleanup, sample, convert, render, assemble,
preview, whatever the order of the switches. Switches may be grouped,
e.g. -ac.

Options:`)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w, "\nRun animator -H for the full help.")
}

func printHelp(w io.Writer, fs *flag.FlagSet) {
	n := config.Defaults().Naming()
	fmt.Fprintf(w, `animator - make an animation video from entity position snapshots

Files in the target directory:
  trace file      %s
                  One file per entity, named by its id. Each line holds a
                  time followed by the entity's fields, e.g.
                    567.00 3.14 2.718 1.414 1.732 1
  position file   %s
                  One file per timestamp. Each line holds an entity id
                  followed by its fields, e.g.
                    1234 3.14 2.718 1.414 1.732 1
                  The x, y and color columns are 2, 3 and 6 by default.
  gnuplot.conf    Optional gnuplot commands loaded before every frame.
                  Set xrange and yrange or the video will jitter:
                    set size square
                    set xrange [-100:100]
                    set yrange [-100:100]
  images          %s, one per timestamp
  video           animation.mp4

How a video is made:
  0. -s interpolates trace files into position files.
  1. -c renders one image per position file.
  2. -a indexes the images densely and encodes them.

Examples:
  animator -ac -b 0 -e 600 -t log     video of [0, 600) from log/
  animator -S -ac -b 0 -e 600         animate the sample data set

Configuration is layered: defaults, -config file.json, ANIMATOR_*
environment variables (e.g. ANIMATOR_FRAME_RATE=30), then flags.

Requirements: gnuplot (or -renderer builtin) and ffmpeg or avconv.

`, n.TraceName(1234), n.PositionName(567), n.ImageName(567))
	printUsage(w, fs)
}
