package system

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Command is a single external tool invocation.
type Command struct {
	// Name is the executable, looked up in PATH when not absolute.
	Name string
	// Args are passed verbatim, without a shell.
	Args []string
	// Stdin is fed to the process when not nil.
	Stdin io.Reader
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Commander runs external tools and returns their standard output.
type Commander interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecCommander runs commands with os/exec.
type ExecCommander struct {
	// Timeout bounds each command; zero means only ctx applies.
	Timeout time.Duration
}

// Run executes cmd and returns its stdout. On failure the error carries the
// command line, the exit status and whatever the tool wrote to stderr.
func (e ExecCommander) Run(ctx context.Context, cmd Command) ([]byte, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	//nolint:gosec // Commands are fixed system tools with arguments built by the installer.
	process := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	process.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer

	process.Stdout = &stdout
	process.Stderr = &stderr

	if err := process.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%w)", ctxErr, err)
		}

		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", cmd, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}
