// Package nimc invokes the Nim toolchain as a black-box subprocess. The only
// contract with the compiler is its argv and its merged textual output.
package nimc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result captures one compile-and-run invocation. It is ephemeral; nothing at
// this layer retries or interprets the output.
type Result struct {
	Output    string
	Succeeded bool
}

// Runner builds and executes the fixed compile command against the
// materialized buffer file.
type Runner struct {
	nimPath    string
	extraFlags []string
	bufferPath string
}

// NewRunner returns a runner for the compiler at nimPath. extraFlags are
// user-supplied and inserted before the suppressive diagnostic flags.
func NewRunner(nimPath string, extraFlags []string, bufferPath string) *Runner {
	return &Runner{nimPath: nimPath, extraFlags: extraFlags, bufferPath: bufferPath}
}

// Args returns the argv passed to the compiler, without the program name.
func (r *Runner) Args() []string {
	args := []string{"compile", "--run", "--verbosity=0"}
	args = append(args, r.extraFlags...)
	args = append(args, "--hints=off", "--hint[source]=off", "--path=./", r.bufferPath)
	return args
}

// Run invokes the compiler synchronously and returns its merged output and
// exit status. A non-zero exit is a Result, not an error; errors are reserved
// for failure to start the process at all. There is no timeout: a hang in the
// external tool hangs the session.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	cmd := exec.CommandContext(ctx, r.nimPath, r.Args()...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Output: string(out), Succeeded: false}, nil
		}
		return Result{}, fmt.Errorf("failed to invoke %q: %w", r.nimPath, err)
	}
	return Result{Output: string(out), Succeeded: true}, nil
}

// Probe returns the first line of `nim --version`, for the welcome header.
func Probe(ctx context.Context, nimPath string) (string, error) {
	out, err := exec.CommandContext(ctx, nimPath, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to probe %q: %w", nimPath, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// ArtifactPath derives the compiled binary path the compiler drops next to
// the buffer file. Cleanup of the artifact belongs to process teardown, not
// to the runner.
func ArtifactPath(bufferPath string, windows bool) string {
	p := strings.TrimSuffix(bufferPath, ".nim")
	if windows {
		p += ".exe"
	}
	return p
}
