// Package media wraps the external media tools (ffprobe, ffmpeg and the
// GoPro telemetry converters) behind a small Runner abstraction.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Command is a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Runner executes a Command and returns its standard output.
// A non-zero exit must be reported as a *ToolError.
type Runner interface {
	Run(ctx context.Context, c Command) ([]byte, error)
}

// ToolError is returned when an external tool cannot be started or exits
// with a non-zero status.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	// Output holds the tool's stderr.
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	if out := lastLines(e.Output, 5); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run starts the command and waits for it. Stdout is returned, stderr is kept
// for the error message. If ctx is cancelled the context error is returned.
func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	if r.Logger != nil {
		r.Logger.Debug("running tool", "cmd", c.String(), "dir", c.Dir)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		te := &ToolError{Tool: c.Name, Args: c.Args, ExitCode: -1, Output: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), te
	}
	return stdout.Bytes(), nil
}

func lastLines(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
