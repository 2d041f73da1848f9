// Package pipeline runs the enabled stages of an animator invocation in
// their fixed order: cleanup, sample generation, trace conversion,
// rendering, assembly and preview. Each stage re-reads its inputs from the
// target directory, so any subset can run on its own.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/animator/internal/assemble"
	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/housekeeping"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/preview"
	"github.com/banshee-data/animator/internal/render"
	"github.com/banshee-data/animator/internal/sample"
	"github.com/banshee-data/animator/internal/timeutil"
	"github.com/banshee-data/animator/internal/trace"
)

// ErrFramesFailed is returned after assembly when some frames did not
// render and the run was not in fail-fast mode.
var ErrFramesFailed = errors.New("frames failed to render")

// Stage names, in execution order.
const (
	StageCleanup  = "cleanup"
	StageSample   = "sample"
	StageConvert  = "convert"
	StageRender   = "render"
	StageAssemble = "assemble"
	StagePreview  = "preview"
)

// Stages selects what a run does.
type Stages struct {
	Cleanup  bool
	Sample   bool
	Convert  bool
	Render   bool
	Assemble bool
	Preview  bool
}

// Any reports whether at least one stage is enabled.
func (s Stages) Any() bool {
	return s.Cleanup || s.Sample || s.Convert || s.Render || s.Assemble || s.Preview
}

// Options wires a run to its environment.
type Options struct {
	Config   config.Config
	Stages   Stages
	FS       fsutil.FileSystem
	Commands executil.CommandBuilder
	Clock    timeutil.Clock
	// Progress receives the carriage-return progress lines; nil disables them.
	Progress io.Writer
	// NewID names the run; defaults to a random UUID.
	NewID func() string
}

// StageResult times one executed stage.
type StageResult struct {
	Name     string
	Duration time.Duration
}

// Report collects what a run did.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Stages   []StageResult

	Removed []string
	Samples int
	Trace   trace.Result
	Render  render.Report
	Video   assemble.Result
	Preview preview.Result
}

func (o *Options) defaults() {
	if o.FS == nil {
		o.FS = fsutil.OSFileSystem{}
	}
	if o.Commands == nil {
		o.Commands = executil.NewRealCommandBuilder()
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

func (o Options) progress(label string) *monitoring.Progress {
	if o.Progress == nil {
		return nil
	}
	return monitoring.NewProgress(o.Progress, label)
}

// Run executes the enabled stages. The first stage error aborts the run.
// Frame failures collected during rendering do not stop assembly; they are
// reported afterwards as ErrFramesFailed.
func Run(ctx context.Context, o Options) (Report, error) {
	o.defaults()
	c := o.Config
	seq := c.Sequence()

	rep := Report{RunID: o.NewID(), Started: o.Clock.Now()}
	monitoring.Logf("run %s: %s in %s", rep.RunID, seq, c.TargetDir)

	stage := func(name string, enabled bool, fn func() error) error {
		if !enabled {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		start := o.Clock.Now()
		err := fn()
		d := o.Clock.Since(start)
		rep.Stages = append(rep.Stages, StageResult{Name: name, Duration: d})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		monitoring.Logf("run %s: %s done in %s", rep.RunID, name, d)
		return nil
	}

	err := stage(StageCleanup, o.Stages.Cleanup, func() (err error) {
		rep.Removed, err = housekeeping.Clean(o.FS, c)
		return err
	})
	if err == nil {
		err = stage(StageSample, o.Stages.Sample, func() (err error) {
			g := sample.Generator{
				FS:         o.FS,
				Naming:     c.Naming(),
				Dir:        c.TargetDir,
				PlotConfig: c.PlotConfigPath(),
				Progress:   o.progress("generating sample position files"),
			}
			rep.Samples, err = g.Generate(ctx, seq)
			return err
		})
	}
	if err == nil {
		err = stage(StageConvert, o.Stages.Convert, func() (err error) {
			conv := trace.Converter{
				FS:       o.FS,
				Naming:   c.Naming(),
				Dir:      c.TargetDir,
				Progress: o.progress("generating position files"),
			}
			rep.Trace, err = conv.Convert(ctx, seq)
			return err
		})
	}
	if err == nil {
		err = stage(StageRender, o.Stages.Render, func() error {
			r, err := render.New(c, o.FS, o.Commands)
			if err != nil {
				return err
			}
			runner := render.Runner{
				FS:       o.FS,
				Naming:   c.Naming(),
				Dir:      c.TargetDir,
				Renderer: r,
				FailFast: c.FailFast,
				Progress: o.progress("generating snapshot images"),
			}
			rep.Render, err = runner.RenderAll(ctx, seq)
			return err
		})
	}
	if err == nil {
		err = stage(StageAssemble, o.Stages.Assemble, func() error {
			a, err := assemble.New(c, o.FS, o.Commands)
			if err != nil {
				return err
			}
			rep.Video, err = a.Assemble(ctx, seq)
			if err == nil {
				monitoring.Logf("generated -> %q", rep.Video.Output)
			}
			return err
		})
	}
	if err == nil {
		err = stage(StagePreview, o.Stages.Preview, func() (err error) {
			rep.Preview, err = preview.Write(o.FS, c)
			return err
		})
	}

	rep.Duration = o.Clock.Since(rep.Started)
	if err != nil {
		return rep, err
	}

	if failed := rep.Render.Failed(); len(failed) > 0 {
		return rep, fmt.Errorf("%w: %d of %d: %w", ErrFramesFailed, len(failed), len(rep.Render.Frames), rep.Render.Err())
	}
	monitoring.Logf("run %s: finished in %s", rep.RunID, rep.Duration)
	return rep, nil
}
