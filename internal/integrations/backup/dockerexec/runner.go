package dockerexec

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// Runner executes an external command. stdin may be nil.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) (stderr string, err error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return strings.TrimSpace(errBuf.String()), err
}
