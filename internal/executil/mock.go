package executil

import (
	"context"
	"fmt"
)

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Output is the output to return from Run.
	Output []byte
	// Err is the error to return from Run.
	Err error
	// RunFunc, when set, replaces Output/Err and sees the stdin that was set.
	// Tests use it to write the files a real tool would produce.
	RunFunc func(stdin []byte) ([]byte, error)
	// Stdin holds the stdin data that was set.
	Stdin []byte
	// RunCalled indicates whether Run was called.
	RunCalled bool
}

// Run returns the configured output and error.
func (m *MockCommandExecutor) Run() ([]byte, error) {
	m.RunCalled = true
	if m.RunFunc != nil {
		return m.RunFunc(m.Stdin)
	}
	return m.Output, m.Err
}

// SetStdin records the stdin data.
func (m *MockCommandExecutor) SetStdin(stdin []byte) {
	m.Stdin = stdin
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	// Commands records all commands that were built.
	Commands []MockBuiltCommand
	// Executors records the executor handed out for each command.
	Executors []*MockCommandExecutor
	// ExecutorFactory allows creating executors dynamically based on command.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
	// Available lists the executables LookPath resolves; all others fail.
	Available map[string]string
}

// MockBuiltCommand records details of a built command.
type MockBuiltCommand struct {
	Name string
	Args []string
}

// NewMockCommandBuilder creates a MockCommandBuilder that resolves the given
// tool names to /usr/bin/<name>.
func NewMockCommandBuilder(available ...string) *MockCommandBuilder {
	b := &MockCommandBuilder{Available: make(map[string]string)}
	for _, name := range available {
		b.Available[name] = "/usr/bin/" + name
	}
	return b
}

// BuildCommand creates a MockCommandExecutor and records the command details.
func (b *MockCommandBuilder) BuildCommand(_ context.Context, name string, args ...string) CommandExecutor {
	b.Commands = append(b.Commands, MockBuiltCommand{Name: name, Args: args})
	var executor *MockCommandExecutor
	if b.ExecutorFactory != nil {
		executor = b.ExecutorFactory(name, args)
	}
	if executor == nil {
		executor = &MockCommandExecutor{}
	}
	b.Executors = append(b.Executors, executor)
	return executor
}

// LookPath resolves names registered in Available.
func (b *MockCommandBuilder) LookPath(name string) (string, error) {
	if p, ok := b.Available[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	if len(b.Commands) == 0 {
		return nil
	}
	return &b.Commands[len(b.Commands)-1]
}
