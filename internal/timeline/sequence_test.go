package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSequence_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		begin, end, interval float64
		want                 int
	}{
		{"unit steps", 0, 3, 1, 3},
		{"partial last step", 0, 3.5, 1, 4},
		{"fractional interval", 0, 0.3, 0.1, 3},
		{"tenths over one", 0, 1, 0.1, 10},
		{"negative begin", -2, 2, 0.5, 8},
		{"empty window", 5, 5, 1, 0},
		{"interval wider than window", 0, 1, 10, 1},
		{"large window", 0, 600, 1, 600},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewSequence(tc.begin, tc.end, tc.interval)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Len())
			assert.Len(t, s.Times(), tc.want)
		})
	}
}

func TestSequence_StrictlyIncreasingAndBelowEnd(t *testing.T) {
	t.Parallel()

	windows := [][3]float64{
		{0, 3, 1},
		{0, 1, 0.1},
		{-7.25, 3.5, 0.25},
		{100, 101, 0.25},
		{0, 1000, 0.3},
	}
	for _, w := range windows {
		s, err := NewSequence(w[0], w[1], w[2])
		require.NoError(t, err)

		times := s.Times()
		require.NotEmpty(t, times)
		assert.Equal(t, w[0], times[0])
		assert.Equal(t, int(math.Ceil((w[1]-w[0])/w[2])), len(times), "window %v", w)
		for i := 1; i < len(times); i++ {
			assert.Greater(t, times[i], times[i-1])
		}
		assert.Less(t, times[len(times)-1], w[1])
	}
}

func TestSequence_Restartable(t *testing.T) {
	t.Parallel()

	s := MustSequence(0, 3, 1)
	first := s.Times()
	second := s.Times()
	assert.Equal(t, []float64{0, 1, 2}, first)
	assert.Equal(t, first, second)

	// Early break must not disturb later iterations.
	for v := range s.All() {
		if v >= 1 {
			break
		}
	}
	assert.Equal(t, first, s.Times())
}

func TestSequence_Contains(t *testing.T) {
	t.Parallel()

	s := MustSequence(1, 3, 1)
	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(2.99))
	assert.False(t, s.Contains(3))
	assert.False(t, s.Contains(0.99))
}

func TestNewSequence_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewSequence(0, 10, 0)
	assert.Error(t, err)
	_, err = NewSequence(0, 10, -1)
	assert.Error(t, err)
	_, err = NewSequence(10, 0, 1)
	assert.Error(t, err)
	_, err = NewSequence(0, math.Inf(1), 1)
	assert.Error(t, err)
	_, err = NewSequence(math.NaN(), 1, 1)
	assert.Error(t, err)

	assert.Panics(t, func() { MustSequence(0, 1, 0) })
}
