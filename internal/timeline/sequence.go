// Package timeline derives the time axis of an animation and the file names
// that tie its frames together across pipeline stages.
package timeline

import (
	"fmt"
	"iter"
	"math"
)

// Sequence is the half-open time window [Begin, End) stepped by Interval.
// It is immutable; All may be ranged over any number of times.
type Sequence struct {
	begin    float64
	end      float64
	interval float64
	n        int
}

// NewSequence validates the window and precomputes its length.
func NewSequence(begin, end, interval float64) (Sequence, error) {
	if math.IsNaN(begin) || math.IsNaN(end) || math.IsNaN(interval) ||
		math.IsInf(begin, 0) || math.IsInf(end, 0) || math.IsInf(interval, 0) {
		return Sequence{}, fmt.Errorf("time window must be finite: begin=%v end=%v interval=%v", begin, end, interval)
	}
	if interval <= 0 {
		return Sequence{}, fmt.Errorf("interval must be positive, got %v", interval)
	}
	if end < begin {
		return Sequence{}, fmt.Errorf("end (%v) must not precede begin (%v)", end, begin)
	}

	n := int(math.Ceil((end - begin) / interval))
	// Correct for rounding in the division so that every value is < end and
	// no value < end is left out.
	for n > 0 && begin+float64(n-1)*interval >= end {
		n--
	}
	for begin+float64(n)*interval < end {
		n++
	}
	return Sequence{begin: begin, end: end, interval: interval, n: n}, nil
}

// MustSequence is NewSequence for constant windows in tests and samples.
func MustSequence(begin, end, interval float64) Sequence {
	s, err := NewSequence(begin, end, interval)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Sequence) Begin() float64    { return s.begin }
func (s Sequence) End() float64      { return s.end }
func (s Sequence) Interval() float64 { return s.interval }

// Len returns ceil((end-begin)/interval).
func (s Sequence) Len() int { return s.n }

// At returns the i-th timestamp. Values are computed from begin rather than
// accumulated so long windows do not drift.
func (s Sequence) At(i int) float64 {
	return s.begin + float64(i)*s.interval
}

// Contains reports whether t lies in [begin, end).
func (s Sequence) Contains(t float64) bool {
	return t >= s.begin && t < s.end
}

// All yields the timestamps in increasing order.
func (s Sequence) All() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for i := 0; i < s.n; i++ {
			if !yield(s.At(i)) {
				return
			}
		}
	}
}

// Times materializes the sequence.
func (s Sequence) Times() []float64 {
	out := make([]float64, 0, s.n)
	for t := range s.All() {
		out = append(out, t)
	}
	return out
}

func (s Sequence) String() string {
	return fmt.Sprintf("[%g, %g) step %g", s.begin, s.end, s.interval)
}
