// Package testutil provides shared test fixtures: target directory contents
// and fake plotting and encoding tools.
package testutil

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/animator/internal/executil"
	"github.com/banshee-data/animator/internal/fsutil"
)

// WriteFiles creates each name under dir with its contents.
func WriteFiles(t *testing.T, fs fsutil.FileSystem, dir string, files map[string]string) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, body := range files {
		if err := fs.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// ReadString returns the contents of path, failing the test if it is missing.
func ReadString(t *testing.T, fs fsutil.FileSystem, path string) string {
	t.Helper()
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Tools is a fake toolbox. gnuplot writes the image named by the script's
// "set output" line; ffmpeg and avconv write the output file named by their
// last argument. Any frame image listed in FailImages makes gnuplot exit
// non-zero.
type Tools struct {
	*executil.MockCommandBuilder
	FailImages map[string]bool
	// EncodeErr, when set, fails every encoder run.
	EncodeErr error
}

// NewTools returns fake tools that act on fs. available names the tools on
// the fake PATH.
func NewTools(fs fsutil.FileSystem, available ...string) *Tools {
	tools := &Tools{MockCommandBuilder: executil.NewMockCommandBuilder(available...), FailImages: map[string]bool{}}
	tools.ExecutorFactory = func(name string, args []string) *executil.MockCommandExecutor {
		base := filepath.Base(name)
		return &executil.MockCommandExecutor{RunFunc: func(stdin []byte) ([]byte, error) {
			switch base {
			case "gnuplot":
				out := ScriptOutput(string(stdin))
				if tools.FailImages[out] {
					return nil, &executil.ExitError{Name: name, Output: []byte("\"-\" line 8: warning: Skipping data file with no valid points"), Err: errors.New("exit status 1")}
				}
				return nil, fs.WriteFile(out, []byte("frame"), 0644)
			case "ffmpeg", "avconv":
				if tools.EncodeErr != nil {
					return nil, &executil.ExitError{Name: name, Output: []byte(tools.EncodeErr.Error()), Err: errors.New("exit status 1")}
				}
				return nil, fs.WriteFile(args[len(args)-1], []byte("video"), 0644)
			}
			return nil, nil
		}}
	}
	return tools
}

// Ran returns how many commands were started for the tool name.
func (t *Tools) Ran(name string) int {
	n := 0
	for _, c := range t.Commands {
		if filepath.Base(c.Name) == name {
			n++
		}
	}
	return n
}

// ScriptOutput extracts the image path of a gnuplot script.
func ScriptOutput(script string) string {
	for _, line := range strings.Split(script, "\n") {
		if rest, ok := strings.CutPrefix(line, "set output "); ok {
			return strings.Trim(rest, `"`)
		}
	}
	return ""
}
