package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ExitCodeNotStarted is reported when the program could not be started at all.
const ExitCodeNotStarted = 127

// Result is the captured outcome of one external command.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// StdoutString returns stdout with surrounding whitespace trimmed.
func (r Result) StdoutString() string {
	return strings.TrimSpace(string(r.Stdout))
}

// StderrString returns stderr with surrounding whitespace trimmed.
func (r Result) StderrString() string {
	return strings.TrimSpace(string(r.Stderr))
}

// Runner runs an external program to completion.
//
// A program that runs and exits non-zero is not an error: the exit code is in
// the Result. An error means the program could not be run or ctx ended.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs programs on the local host.
type ExecRunner struct {
	Logger *zap.Logger
}

// NewExecRunner creates a runner that logs through logger.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{Logger: logger.Named("process")}
}

// Run starts name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running command", zap.String("program", name), zap.Strings("args", args))
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		logger.Debug("command exited with non-zero status",
			zap.String("program", name),
			zap.Int("exit_code", res.ExitCode),
		)
		return res, nil
	}

	res.ExitCode = ExitCodeNotStarted
	return res, err
}
