// Package trace converts per-entity trace files into per-timestamp position
// files.
//
// Every numeric field of an entity is linearly interpolated between the two
// recorded samples that bracket a frame time. An entity is left out of
// frames outside its recorded span; nothing is extrapolated.
package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// ErrNoTraceFiles is returned when the target directory holds no trace file.
var ErrNoTraceFiles = errors.New("no trace files")

// Sample is one line of a trace file: the entity state at Time.
type Sample struct {
	Time   float64
	Fields []float64
}

// Track is the time series of one entity, ordered by strictly increasing time.
type Track struct {
	ID      string
	Samples []Sample

	fitted []interp.PiecewiseLinear
}

// ParseError locates a malformed trace line.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Name, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a trace for entity id. Blank lines and lines starting with '#'
// are skipped. Duplicate timestamps keep the last line. name only labels
// errors.
func Parse(name, id string, r io.Reader) (*Track, error) {
	byTime := make(map[float64][]float64)
	width := -1

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 2 {
			return nil, &ParseError{Name: name, Line: lineNo, Err: fmt.Errorf("expected time and at least one field, got %d columns", len(cols))}
		}
		if width >= 0 && len(cols)-1 != width {
			return nil, &ParseError{Name: name, Line: lineNo, Err: fmt.Errorf("expected %d fields, got %d", width, len(cols)-1)}
		}
		width = len(cols) - 1

		vals := make([]float64, len(cols))
		for i, c := range cols {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, &ParseError{Name: name, Line: lineNo, Err: fmt.Errorf("column %d: %w", i+1, err)}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ParseError{Name: name, Line: lineNo, Err: fmt.Errorf("column %d: non-finite value %q", i+1, c)}
			}
			vals[i] = v
		}
		byTime[vals[0]] = vals[1:]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	t := &Track{ID: id, Samples: make([]Sample, 0, len(byTime))}
	for tm, fields := range byTime {
		t.Samples = append(t.Samples, Sample{Time: tm, Fields: fields})
	}
	sort.Slice(t.Samples, func(i, j int) bool { return t.Samples[i].Time < t.Samples[j].Time })

	if err := t.fit(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (t *Track) fit() error {
	if len(t.Samples) < 2 {
		return nil
	}
	width := len(t.Samples[0].Fields)
	xs := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		xs[i] = s.Time
	}
	t.fitted = make([]interp.PiecewiseLinear, width)
	for f := 0; f < width; f++ {
		ys := make([]float64, len(t.Samples))
		for i, s := range t.Samples {
			ys[i] = s.Fields[f]
		}
		if err := t.fitted[f].Fit(xs, ys); err != nil {
			return fmt.Errorf("fit field %d: %w", f+1, err)
		}
	}
	return nil
}

// Span returns the first and last recorded times. ok is false for an empty track.
func (t *Track) Span() (first, last float64, ok bool) {
	if len(t.Samples) == 0 {
		return 0, 0, false
	}
	return t.Samples[0].Time, t.Samples[len(t.Samples)-1].Time, true
}

// At returns the entity's fields at time tm, or false outside the recorded span.
func (t *Track) At(tm float64) ([]float64, bool) {
	first, last, ok := t.Span()
	if !ok || tm < first || tm > last {
		return nil, false
	}

	i := sort.Search(len(t.Samples), func(i int) bool { return t.Samples[i].Time >= tm })
	if i < len(t.Samples) && t.Samples[i].Time == tm {
		return append([]float64(nil), t.Samples[i].Fields...), true
	}

	out := make([]float64, len(t.fitted))
	for f := range t.fitted {
		out[f] = t.fitted[f].Predict(tm)
	}
	return out, true
}

// FormatRow renders one position file line: the entity id followed by fields.
func FormatRow(id string, fields []float64) string {
	var b bytes.Buffer
	b.WriteString(id)
	for _, v := range fields {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// LessID orders entity ids: numeric ids numerically and everything else lexically.
func LessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
