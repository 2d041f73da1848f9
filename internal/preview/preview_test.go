package preview

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/fsutil"
)

func setup(t *testing.T) (*fsutil.MemoryFileSystem, config.Config) {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	frames := map[string]string{
		"run/time_000000.00.pos": "0 1 1 0 0 1\n1 5 5 0 0 2\n",
		"run/time_000001.00.pos": "0 1 1 0 0 0\n0 2 2 0 0 1\n1 6 6 0 0 2\n",
		// time 2 is missing; time 3 is outside the window.
		"run/time_000003.00.pos": "0 9 9 0 0 1\n",
	}
	for name, body := range frames {
		require.NoError(t, fs.WriteFile(name, []byte(body), 0644))
	}
	c, err := config.Build(config.Overrides{TargetDir: config.Ptr("run"), End: config.Ptr(3.0)})
	require.NoError(t, err)
	return fs, c
}

func TestCollect(t *testing.T) {
	fs, c := setup(t)

	got, err := Collect(fs, c)
	require.NoError(t, err)

	want := map[string][]Point{
		"0": {{Time: 0, X: 1, Y: 1}, {Time: 1, X: 2, Y: 2}},
		"1": {{Time: 0, X: 5, Y: 5}, {Time: 1, X: 6, Y: 6}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	fs, c := setup(t)
	require.NoError(t, fs.WriteFile("run/gnuplot.conf", []byte("set xrange [-100:100]\n"), 0644))

	res, err := Write(fs, c)
	require.NoError(t, err)
	assert.Equal(t, Result{Path: "run/preview.html", Entities: 2, Points: 4}, res)

	html, err := fs.ReadFile(res.Path)
	require.NoError(t, err)
	page := string(html)
	assert.True(t, strings.Contains(page, "<html"), "renders a full page")
	assert.Contains(t, page, "node 0")
	assert.Contains(t, page, "node 1")
	assert.Contains(t, page, "Trajectory preview")
}

func TestCollect_BadNumber(t *testing.T) {
	fs, c := setup(t)
	require.NoError(t, fs.WriteFile("run/time_000002.00.pos", []byte("0 x 1 0 0 0\n"), 0644))

	_, err := Collect(fs, c)
	assert.ErrorContains(t, err, "time_000002.00.pos")
}
