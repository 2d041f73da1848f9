package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/testutil"
	"github.com/banshee-data/animator/internal/version"
)

type harness struct {
	fs     *fsutil.MemoryFileSystem
	tools  *testutil.Tools
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    map[string]string
}

func newHarness(tools ...string) *harness {
	fs := fsutil.NewMemoryFileSystem()
	return &harness{fs: fs, tools: testutil.NewTools(fs, tools...), env: map[string]string{}}
}

func (h *harness) run(args ...string) int {
	return run(context.Background(), args, deps{
		stdout:  &h.stdout,
		stderr:  &h.stderr,
		environ: h.env,
		fs:      h.fs,
		cmds:    h.tools,
	})
}

func TestRun_Version(t *testing.T) {
	h := newHarness()
	assert.Equal(t, exitOK, h.run("-version"))
	assert.Equal(t, version.String()+"\n", h.stdout.String())
}

func TestRun_Help(t *testing.T) {
	for _, arg := range []string{"-H", "-help"} {
		t.Run(arg, func(t *testing.T) {
			h := newHarness()
			assert.Equal(t, exitOK, h.run(arg))
			out := h.stdout.String()
			assert.Contains(t, out, "node_001234.trc")
			assert.Contains(t, out, "time_000567.00.pos")
			assert.Contains(t, out, "animator -ac -b 0 -e 600 -t log")
			assert.Contains(t, out, "-render-timeout")
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no stage", []string{"-b", "3"}, "nothing to do"},
		{"positional", []string{"-c", "extra"}, "unexpected arguments: extra"},
		{"unknown flag", []string{"-z"}, "flag provided but not defined"},
		{"height needs a value", []string{"-c", "-h"}, "flag needs an argument"},
		{"bad window", []string{"-c", "-b", "10", "-e", "5"}, "invalid configuration"},
		{"bad format", []string{"-c", "-f", "bmp"}, "image format"},
		{"interval finer than stamp", []string{"-S", "-e", "0.01", "-i", "0.001"}, "two decimals"},
		{"bad timeout", []string{"-c", "-render-timeout", "soon"}, "render_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("gnuplot")
			assert.Equal(t, exitUsage, h.run(tt.args...))
			assert.Contains(t, h.stderr.String(), tt.want)
			assert.Zero(t, h.tools.Ran("gnuplot"))
		})
	}
}

func TestRun_SampleRenderAssemble(t *testing.T) {
	h := newHarness("gnuplot", "ffmpeg")
	code := h.run("-S", "-ca", "-e", "5", "-t", "run")
	require.Equal(t, exitOK, code, h.stderr.String())

	assert.Equal(t, 5, h.tools.Ran("gnuplot"))
	assert.Equal(t, 1, h.tools.Ran("ffmpeg"))
	assert.Equal(t, "video", testutil.ReadString(t, h.fs, "run/animation.mp4"))
	assert.True(t, h.fs.Exists("run/gnuplot.conf"))
	assert.Contains(t, h.stdout.String(), "generating snapshot images... ")
	assert.Contains(t, h.stderr.String(), `generated -> "run/animation.mp4"`)
}

func TestRun_MissingTraces(t *testing.T) {
	h := newHarness("gnuplot")
	assert.Equal(t, exitFailure, h.run("-sc", "-t", "log"))
	assert.Contains(t, h.stderr.String(), "no trace files")
	assert.Contains(t, h.stderr.String(), "hint: -s needs")
	assert.Zero(t, h.tools.Ran("gnuplot"))
}

func TestRun_MissingEncoder(t *testing.T) {
	h := newHarness("gnuplot")
	assert.Equal(t, exitFailure, h.run("-S", "-a", "-e", "3"))
	assert.Contains(t, h.stderr.String(), "hint: install gnuplot and ffmpeg")
}

func TestRun_FrameFailuresExitNonZero(t *testing.T) {
	h := newHarness("gnuplot", "ffmpeg")
	h.tools.FailImages["run/time_000001.00.png"] = true

	assert.Equal(t, exitFailure, h.run("-Sca", "-e", "3", "-t", "run"))
	assert.Contains(t, h.stderr.String(), "1 of 3")
	assert.True(t, h.fs.Exists("run/animation.mp4"), "video is still assembled")
}

func TestRun_ConfigLayers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "animator.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"target_dir": "fromfile", "end": 4, "frame_rate": 10}`), 0644))

	h := newHarness("gnuplot", "ffmpeg")
	h.env["ANIMATOR_END"] = "3"
	require.Equal(t, exitOK, h.run("-config", file, "-S", "-ca", "-r", "30"), h.stderr.String())

	// The env layer beats the file; the flag beats both.
	assert.Equal(t, 3, h.tools.Ran("gnuplot"))
	args := h.tools.LastCommand().Args
	assert.Contains(t, args, "fromfile/animation.mp4")
	assert.Contains(t, args, "30")
	positions, err := h.fs.Glob("fromfile/time_*.pos")
	require.NoError(t, err)
	assert.Len(t, positions, 3)
}

func TestExpandClusters(t *testing.T) {
	got := expandClusters([]string{"-ac", "-b", "0", "-Sc", "-preview", "-e", "-5", "--", "-ac"})
	want := []string{"-a", "-c", "-b", "0", "-S", "-c", "-preview", "-e", "-5", "--", "-ac"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expandClusters mismatch (-want +got):\n%s", diff)
	}
}
