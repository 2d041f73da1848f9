// Package render turns position files into frame images, one frame per
// timestamp, strictly in increasing time order.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/timeline"
)

// Renderer draws a single frame.
type Renderer interface {
	Name() string
	Render(ctx context.Context, f Frame) error
}

// RenderError is the failure of one frame.
type RenderError struct {
	Time  float64
	Image string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render frame %s (%s): %v", timeline.FormatFilled(e.Time), e.Image, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// FrameResult records what happened to one timestamp.
type FrameResult struct {
	Time     float64
	Position string
	Image    string
	// Created is set when the position file was missing and created empty.
	Created bool
	Err     error
}

// Report lists every attempted frame in render order.
type Report struct {
	Renderer string
	Frames   []FrameResult
}

// Failed returns the frames that did not render.
func (r Report) Failed() []FrameResult {
	var out []FrameResult
	for _, f := range r.Frames {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the per-frame failures, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, f := range r.Frames {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errors.Join(errs...)
}

// Runner renders every timestamp of a sequence.
type Runner struct {
	FS       fsutil.FileSystem
	Naming   timeline.Naming
	Dir      string
	Renderer Renderer
	// FailFast stops at the first failed frame instead of collecting failures.
	FailFast bool
	Progress *monitoring.Progress
}

// RenderAll renders seq in order. A position file absent at its turn is
// created empty so the frame still renders, showing no entities.
//
// Frame failures are recorded in the report. With FailFast the first one is
// also returned as a *RenderError. A cancelled context stops the run and
// returns ctx.Err().
func (r Runner) RenderAll(ctx context.Context, seq timeline.Sequence) (Report, error) {
	rep := Report{Renderer: r.Renderer.Name(), Frames: make([]FrameResult, 0, seq.Len())}

	for t := range seq.All() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		r.Progress.Update(fmt.Sprintf("%s of [begin: %g end: %g]", timeline.FormatLabel(t), seq.Begin(), seq.End()))

		res := FrameResult{
			Time:     t,
			Position: r.Naming.PositionPath(r.Dir, t),
			Image:    r.Naming.ImagePath(r.Dir, t),
		}
		if !r.FS.Exists(res.Position) {
			if err := r.FS.WriteFile(res.Position, nil, 0644); err != nil {
				return rep, fmt.Errorf("create empty position file: %w", err)
			}
			res.Created = true
		}

		if err := r.Renderer.Render(ctx, Frame{Time: t, Position: res.Position, Image: res.Image}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			res.Err = &RenderError{Time: t, Image: res.Image, Err: err}
		}
		rep.Frames = append(rep.Frames, res)

		if res.Err != nil {
			if r.FailFast {
				return rep, res.Err
			}
			monitoring.Logf("warning: %v", res.Err)
		}
	}
	r.Progress.Done()
	return rep, nil
}

// New picks the renderer for c.Renderer. In auto mode a missing gnuplot
// falls back to the builtin renderer; gnuplot mode fails with
// executil.ErrToolNotFound instead.
func New(c config.Config, fs fsutil.FileSystem, cmds executil.CommandBuilder) (Renderer, error) {
	opts := OptionsFromConfig(c)
	builtin := &Builtin{FS: fs, Options: opts}

	if c.Renderer == config.RendererBuiltin {
		return builtin, nil
	}

	path, err := executil.FindTool(cmds, c.PlotterNames...)
	if err != nil {
		if c.Renderer == config.RendererGnuplot {
			return nil, fmt.Errorf("renderer: %w", err)
		}
		monitoring.Logf("warning: %v; using the builtin renderer", err)
		return builtin, nil
	}
	return &Gnuplot{Commands: cmds, FS: fs, Path: path, Options: opts, Timeout: c.RenderTimeout}, nil
}
