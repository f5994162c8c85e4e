package backup

import (
	"context"
	"os/exec"
)

// execRunner runs external commands through os/exec
type execRunner struct{}

// NewExecRunner creates the production CommandRunner
func NewExecRunner() CommandRunner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
