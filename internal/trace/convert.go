package trace

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
	"github.com/banshee-data/animator/internal/timeline"
)

// Converter writes one position file per timestamp from the trace files of Dir.
type Converter struct {
	FS       fsutil.FileSystem
	Naming   timeline.Naming
	Dir      string
	Progress *monitoring.Progress
}

// Result summarizes a conversion.
type Result struct {
	Traces    int
	Positions int
	Rows      int
}

// Discover lists the trace files of c.Dir, wrapping ErrNoTraceFiles when
// there are none.
func (c Converter) Discover() ([]string, error) {
	pattern := c.Naming.TraceGlob(c.Dir)
	names, err := c.FS.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list trace files: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w matching %s", ErrNoTraceFiles, pattern)
	}
	return names, nil
}

// Load parses every trace file of c.Dir, ordered by entity id.
func (c Converter) Load() ([]*Track, error) {
	names, err := c.Discover()
	if err != nil {
		return nil, err
	}

	tracks := make([]*Track, 0, len(names))
	for _, name := range names {
		id, ok := c.Naming.ParseTraceName(name)
		if !ok {
			continue
		}
		data, err := c.FS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		tr, err := Parse(name, id, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	sort.SliceStable(tracks, func(i, j int) bool { return LessID(tracks[i].ID, tracks[j].ID) })
	return tracks, nil
}

// Convert loads every trace before writing anything, so a missing or broken
// trace leaves the directory untouched. Existing position files for the
// window are overwritten.
func (c Converter) Convert(ctx context.Context, seq timeline.Sequence) (Result, error) {
	tracks, err := c.Load()
	if err != nil {
		return Result{}, err
	}

	res := Result{Traces: len(tracks)}
	for t := range seq.All() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c.Progress.Update(fmt.Sprintf("%s of %s", timeline.FormatLabel(t), seq))

		rows, err := c.writeFrame(t, tracks)
		if err != nil {
			return res, err
		}
		res.Positions++
		res.Rows += rows
	}
	c.Progress.Done()

	monitoring.Logf("converted %d trace files into %d position files (%d rows)", res.Traces, res.Positions, res.Rows)
	return res, nil
}

func (c Converter) writeFrame(t float64, tracks []*Track) (int, error) {
	path := c.Naming.PositionPath(c.Dir, t)
	f, err := c.FS.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create position file: %w", err)
	}

	w := bufio.NewWriter(f)
	rows := 0
	for _, tr := range tracks {
		fields, ok := tr.At(t)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(w, FormatRow(tr.ID, fields)); err != nil {
			f.Close()
			return rows, fmt.Errorf("write %s: %w", path, err)
		}
		rows++
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return rows, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return rows, fmt.Errorf("close %s: %w", path, err)
	}
	return rows, nil
}
