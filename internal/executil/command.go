// Package executil runs the external plotting and encoding tools behind an
// interface so stages can be tested without the tools installed.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrToolNotFound reports that none of the candidate executables is on PATH.
var ErrToolNotFound = errors.New("executable not found")

// CommandExecutor defines an interface for executing a single external command.
type CommandExecutor interface {
	// Run executes the command, waits for it to exit and returns the
	// combined output (stdout+stderr).
	Run() ([]byte, error)

	// SetStdin sets the stdin for the command.
	SetStdin(stdin []byte)
}

// CommandBuilder builds commands and resolves executables.
type CommandBuilder interface {
	// BuildCommand creates a CommandExecutor bound to ctx; cancelling ctx
	// kills the process.
	BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor

	// LookPath resolves name against PATH.
	LookPath(name string) (string, error)
}

// FindTool returns the first of names that b can resolve. The result is the
// resolved path; the error wraps ErrToolNotFound and lists every name tried.
func FindTool(b CommandBuilder, names ...string) (string, error) {
	for _, name := range names {
		if p, err := b.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %q", ErrToolNotFound, names)
}

// ExitError carries a failed command's output next to its exit status.
type ExitError struct {
	Name   string
	Output []byte
	Err    error
}

func (e *ExitError) Error() string {
	out := bytes.TrimSpace(e.Output)
	if len(out) == 0 {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, out)
}

func (e *ExitError) Unwrap() error { return e.Err }

const waitDelay = 2 * time.Second

// RealCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type RealCommandExecutor struct {
	cmd *exec.Cmd
}

// Run executes the command and returns combined output. A non-zero exit is
// reported as *ExitError.
func (r *RealCommandExecutor) Run() ([]byte, error) {
	out, err := r.cmd.CombinedOutput()
	if err != nil {
		return out, &ExitError{Name: r.cmd.Path, Output: out, Err: err}
	}
	return out, nil
}

// SetStdin sets stdin for the command.
func (r *RealCommandExecutor) SetStdin(stdin []byte) {
	r.cmd.Stdin = bytes.NewReader(stdin)
}

// RealCommandBuilder implements CommandBuilder using os/exec.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates a CommandExecutor for the given command and arguments.
func (b *RealCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor {
	cmd := exec.CommandContext(ctx, name, args...)
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay
	return &RealCommandExecutor{cmd: cmd}
}

// LookPath resolves name with exec.LookPath.
func (b *RealCommandBuilder) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
