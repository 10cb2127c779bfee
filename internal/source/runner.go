package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner abstracts subprocess execution so adapters can be exercised in
// tests without the real binaries installed.
//
//go:generate mockgen -destination=mocks/runner_mock.go -package=mocks github.com/playhead-dev/playhead/internal/source Runner
type Runner interface {
	// Run executes the binary with the given arguments and returns its
	// standard output. A non-zero exit status is returned as an error.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the real Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner that executes real subprocesses.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures stdout. Stderr is folded into
// the error so adapter logs show why a helper failed.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		if errOut.Len() > 0 {
			return nil, fmt.Errorf("%s: %w (stderr: %s)", name, err, bytes.TrimSpace(errOut.Bytes()))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out.Bytes(), nil
}
