package serve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/marcus/vault/internal/scrub"
)

const (
	execTimeout   = 60 * time.Second
	maxOutputSize = 200 * 1024
	timeoutExit   = 124
)

// ErrExecTimeout marks a CLI invocation killed for exceeding the deadline.
var ErrExecTimeout = errors.New("command timed out")

// Runner shells out to the vault CLI with a scrubbed environment.
type Runner struct {
	// Binary is the CLI executable; defaults to the portal's own binary.
	Binary string
	// DBPath is forced into the child env so API calls cannot redirect
	// the portal to another database.
	DBPath string
	// InjectSecrets passes the search API key through to the child.
	// Off by default; verification runs via the portal need it.
	InjectSecrets bool
	// APIKey is the search key handed to the child when InjectSecrets is on.
	APIKey string
}

// ExecResult is the captured outcome of one CLI invocation.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Run executes the CLI with the given args. Output is capped, scrubbed, and
// returned even on failure. A deadline kill reports exit code 124 and
// ErrExecTimeout.
func (r *Runner) Run(ctx context.Context, args ...string) (*ExecResult, error) {
	binary := r.Binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve cli binary: %w", err)
		}
		binary = exe
	}

	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = r.childEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, remaining: maxOutputSize}
	cmd.Stderr = &limitedWriter{w: &stderr, remaining: maxOutputSize}

	err := cmd.Run()
	res := &ExecResult{
		Stdout: scrub.Text(stdout.String()),
		Stderr: scrub.Text(stderr.String()),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = timeoutExit
		return res, fmt.Errorf("%w after %s", ErrExecTimeout, execTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("run cli: %w", err)
	}
	return res, nil
}

// childEnv builds a minimal environment: just what the CLI needs to find
// its database and binaries, never the caller's full environment. Secrets
// like the search API key stay out unless injection is enabled.
func (r *Runner) childEnv() []string {
	env := []string{
		"VAULT_DB=" + r.DBPath,
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
	}
	if tz := os.Getenv("TZ"); tz != "" {
		env = append(env, "TZ="+tz)
	}
	if r.InjectSecrets && r.APIKey != "" {
		env = append(env, "BRAVE_API_KEY="+r.APIKey)
	}
	return env
}

// limitedWriter drops bytes past the cap instead of failing the command.
type limitedWriter struct {
	w         *bytes.Buffer
	remaining int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.remaining <= 0 {
		return n, nil
	}
	if n > lw.remaining {
		lw.w.Write(p[:lw.remaining])
		lw.remaining = 0
		return n, nil
	}
	lw.w.Write(p)
	lw.remaining -= n
	return n, nil
}
