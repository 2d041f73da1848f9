package housekeeping

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/fsutil"
)

func TestClean(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	files := []string{
		"time_000000.00.pos",
		"time_000001.00.pos",
		"time_000000.00.png",
		"time_000000.00.gif",
		"snapshot-00000.png",
		"snapshot.ffconcat",
		"gnuplot.conf",
		"animation.mp4",
		"preview.html",
		"node_000001.trc",
		"notes.txt",
	}
	for _, f := range files {
		require.NoError(t, fs.WriteFile(filepath.Join("run", f), []byte("x"), 0644))
	}

	c, err := config.Build(config.Overrides{TargetDir: config.Ptr("run")})
	require.NoError(t, err)

	removed, err := Clean(fs, c)
	require.NoError(t, err)

	sort.Strings(removed)
	assert.Equal(t, []string{
		"run/animation.mp4",
		"run/gnuplot.conf",
		"run/preview.html",
		"run/snapshot-00000.png",
		"run/snapshot.ffconcat",
		"run/time_000000.00.png",
		"run/time_000000.00.pos",
		"run/time_000001.00.pos",
	}, removed)

	for _, kept := range []string{"node_000001.trc", "notes.txt", "time_000000.00.gif"} {
		assert.True(t, fs.Exists(filepath.Join("run", kept)), kept)
	}

	removed, err = Clean(fs, c)
	require.NoError(t, err, "cleaning twice is not an error")
	assert.Empty(t, removed)
}

func TestClean_EmptyDir(t *testing.T) {
	c, err := config.Build(config.Overrides{TargetDir: config.Ptr("nowhere")})
	require.NoError(t, err)

	removed, err := Clean(fsutil.NewMemoryFileSystem(), c)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
