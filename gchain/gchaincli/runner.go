package gchaincli

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"slices"
	"strings"
)

// ExecRunner runs chain binaries as child processes.
// The zero value is ready to use.
type ExecRunner struct {
	// Extra environment variables, in "KEY=value" form,
	// appended to the environment of the current process.
	Env []string
}

func (r ExecRunner) RunCommand(ctx context.Context, stdin io.Reader, path string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, CommandError{
			Path:   path,
			Args:   slices.Clone(args),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}
