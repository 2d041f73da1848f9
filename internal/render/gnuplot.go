package render

import (
	"context"
	"time"

	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
)

// Gnuplot renders each frame in its own gnuplot process, feeding the script
// on stdin.
type Gnuplot struct {
	Commands executil.CommandBuilder
	FS       fsutil.FileSystem
	// Path is the resolved gnuplot executable.
	Path    string
	Options Options
	// Timeout bounds one frame; zero waits forever.
	Timeout time.Duration
}

func (g *Gnuplot) Name() string { return "gnuplot" }

// Render runs gnuplot for f. A non-zero exit returns the tool's output in an
// *executil.ExitError.
func (g *Gnuplot) Render(ctx context.Context, f Frame) error {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	load := g.Options.PlotConfig != "" && g.FS.Exists(g.Options.PlotConfig)
	cmd := g.Commands.BuildCommand(ctx, g.Path)
	cmd.SetStdin([]byte(BuildScript(f, g.Options, load)))
	_, err := cmd.Run()
	return err
}
