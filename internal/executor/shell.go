package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// maxStderr bounds how much stderr is quoted in a failure.
const maxStderr = 512

// Shell runs payloads through a shell.
type Shell struct {
	// Path is the shell binary. Defaults to "sh".
	Path string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env, if non-nil, replaces the process environment.
	Env []string

	// Stdout and Stderr receive the script's output. Nil discards stdout;
	// stderr is always captured for error messages.
	Stdout io.Writer
	Stderr io.Writer
}

// Execute runs "<Path> -c text". A non-zero exit is reported as failure with
// the exit code and the tail of stderr.
func (s *Shell) Execute(ctx context.Context, text string) (bool, error) {
	path := s.Path
	if path == "" {
		path = "sh"
	}

	cmd := exec.CommandContext(ctx, path, "-c", text)
	cmd.Dir = s.Dir
	cmd.Env = s.Env
	cmd.Stdout = s.Stdout

	var stderr bytes.Buffer
	if s.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, s.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := tail(strings.TrimSpace(stderr.String()), maxStderr)
		if msg == "" {
			return false, fmt.Errorf("shell: exit status %d", exitErr.ExitCode())
		}
		return false, fmt.Errorf("shell: exit status %d: %s", exitErr.ExitCode(), msg)
	}
	return false, fmt.Errorf("shell: %w", err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
