// Package assemble encodes the rendered frames of a time window into a video.
//
// Frame images are named by timestamp, which neither sorts nor counts the
// way an encoder's image-sequence input needs. The assembler orders them
// numerically, gives them a dense 0..n-1 index through an Indexer and runs
// the first available encoder once.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/timeline"
)

// ErrNoFrames is returned when no rendered image falls inside the window.
var ErrNoFrames = errors.New("no frames to assemble")

// EncodeError is a failed encoder run. Output holds what the tool printed.
type EncodeError struct {
	Tool   string
	Output string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("encode with %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("encode with %s: %v: %s", e.Tool, e.Err, e.Output)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Image is one rendered frame and its dense position in the video.
type Image struct {
	Time  float64
	Path  string
	Index int
}

// Result describes an assembled video.
type Result struct {
	Output  string
	Frames  int
	Encoder string
	Indexer string
}

// Assembler turns the images of Layout.Dir into Output.
type Assembler struct {
	FS           fsutil.FileSystem
	Commands     executil.CommandBuilder
	Naming       timeline.Naming
	Layout       Layout
	Indexer      Indexer
	EncoderNames []string
	Output       string
}

// New builds the assembler for c.
func New(c config.Config, fs fsutil.FileSystem, cmds executil.CommandBuilder) (*Assembler, error) {
	l := Layout{
		Dir:       c.TargetDir,
		Prefix:    c.IndexPrefix,
		Ext:       c.ImageFormat,
		Manifest:  c.ManifestName,
		FrameRate: c.FrameRate,
	}
	idx, err := NewIndexer(c.Indexer, l)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		FS:           fs,
		Commands:     cmds,
		Naming:       c.Naming(),
		Layout:       l,
		Indexer:      idx,
		EncoderNames: c.EncoderNames,
		Output:       c.OutputPath(),
	}, nil
}

// Clean removes the dense-index artifacts of a previous run and returns the
// removed paths.
func (a *Assembler) Clean() ([]string, error) {
	return CleanIndex(a.FS, a.Layout)
}

// CleanIndex removes Layout's dense-index files and manifest.
func CleanIndex(fsys fsutil.FileSystem, l Layout) ([]string, error) {
	stale, err := fsys.Glob(l.IndexGlob())
	if err != nil {
		return nil, fmt.Errorf("list index files: %w", err)
	}
	if l.Manifest != "" && fsys.Exists(l.ManifestPath()) {
		stale = append(stale, l.ManifestPath())
	}

	removed := make([]string, 0, len(stale))
	for _, p := range stale {
		if err := fsys.Remove(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// Collect lists the images inside seq's window in increasing time order,
// with dense indexes assigned. Order is numeric, so negative timestamps
// sort correctly.
func (a *Assembler) Collect(seq timeline.Sequence) ([]Image, error) {
	names, err := a.FS.Glob(a.Naming.ImageGlob(a.Layout.Dir))
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	var images []Image
	for _, name := range names {
		t, ok := a.Naming.ParseImageName(name)
		if !ok || !seq.Contains(t) {
			continue
		}
		images = append(images, Image{Time: t, Path: name})
	}
	sort.SliceStable(images, func(i, j int) bool { return images[i].Time < images[j].Time })
	for i := range images {
		images[i].Index = i
	}
	return images, nil
}

// Assemble cleans stale index artifacts, indexes the window's images and
// runs the encoder once. Encoder failures are not retried.
func (a *Assembler) Assemble(ctx context.Context, seq timeline.Sequence) (Result, error) {
	if _, err := a.Clean(); err != nil {
		return Result{}, err
	}

	tool, err := executil.FindTool(a.Commands, a.EncoderNames...)
	if err != nil {
		return Result{}, fmt.Errorf("encoder: %w", err)
	}

	images, err := a.Collect(seq)
	if err != nil {
		return Result{}, err
	}
	if len(images) == 0 {
		return Result{}, fmt.Errorf("%w in %s for %s", ErrNoFrames, a.Layout.Dir, seq)
	}

	input, _, err := a.Indexer.Index(a.FS, images)
	if err != nil {
		return Result{}, err
	}

	args := append([]string{"-loglevel", "error", "-y"}, input...)
	args = append(args, "-r", strconv.Itoa(a.Layout.FrameRate), a.Output)

	monitoring.Logf("encoding %d frames with %s (%s) -> %s", len(images), tool, a.Indexer.Name(), a.Output)
	out, err := a.Commands.BuildCommand(ctx, tool, args...).Run()
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, &EncodeError{Tool: tool, Output: strings.TrimSpace(string(exitErr.Output)), Err: exitErr.Err}
		}
		return Result{}, &EncodeError{Tool: tool, Output: strings.TrimSpace(string(out)), Err: err}
	}

	return Result{Output: a.Output, Frames: len(images), Encoder: tool, Indexer: a.Indexer.Name()}, nil
}
