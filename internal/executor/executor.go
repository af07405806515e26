// Package executor runs commands that already passed policy. It makes
// no approval decisions of its own; callers hand it approved command
// strings only.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/cmdgate/cmdgate/internal/logging"
)

// TruncationMarker is appended to output cut at the configured cap.
const TruncationMarker = "\n... [output truncated due to size]"

// Request describes one execution.
type Request struct {
	Command string
	// Timeout bounds the run; zero means no limit.
	Timeout time.Duration
	// MaxOutput caps stdout and stderr independently, in bytes; zero
	// means unlimited.
	MaxOutput int
	// Background starts the command detached and returns immediately.
	Background bool
}

// Result is the outcome of one execution. For background commands only
// PID and Background are meaningful.
type Result struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	Truncated  bool
	Duration   time.Duration
	PID        int
	Background bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell overrides shell detection.
func WithShell(shell string) Option {
	return func(e *Executor) { e.shell = shell }
}

// WithWorkDir sets the working directory for executed commands.
func WithWorkDir(dir string) Option {
	return func(e *Executor) { e.workDir = dir }
}

// Executor runs command strings through the user shell.
type Executor struct {
	shell   string
	workDir string
}

// New returns an executor using the detected user shell.
func New(opts ...Option) *Executor {
	e := &Executor{shell: detectShell()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		// Exclude shells with incompatible -c semantics.
		if s != "/bin/fish" && s != "/usr/bin/fish" &&
			s != "/bin/nu" && s != "/usr/bin/nu" {
			return s
		}
	}
	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

// Run executes the command and captures its output. A non-zero exit
// status is reported in the result, not as an error; errors mean the
// command could not be started at all.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Background {
		return e.startDetached(req.Command)
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.shell, "-c", req.Command)
	cmd.Dir = e.workDir
	cmd.Env = os.Environ()
	// Process group, so a timeout kills child processes too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	timedOut := runCtx.Err() == context.DeadlineExceeded

	res := &Result{
		Duration: duration,
		TimedOut: timedOut,
	}
	res.Stdout, res.Truncated = capOutput(stdout.String(), req.MaxOutput)
	var stderrTruncated bool
	res.Stderr, stderrTruncated = capOutput(stderr.String(), req.MaxOutput)
	res.Truncated = res.Truncated || stderrTruncated

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
		res.PID = cmd.ProcessState.Pid()
	}
	if err != nil && !timedOut {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		res.ExitCode = exitErr.ExitCode()
	}

	log := logging.With("executor")
	log.Debug().
		Int("exit", res.ExitCode).
		Bool("timed_out", res.TimedOut).
		Dur("duration", duration).
		Msg("command finished")
	return res, nil
}

// startDetached launches the command without waiting for it. Output is
// discarded; the caller only learns the PID.
func (e *Executor) startDetached(command string) (*Result, error) {
	cmd := exec.Command(e.shell, "-c", command)
	cmd.Dir = e.workDir
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	pid := cmd.Process.Pid
	// Reap the child when it exits so it does not linger as a zombie.
	go cmd.Wait()

	log := logging.With("executor")
	log.Debug().Int("pid", pid).Msg("command started in background")
	return &Result{PID: pid, Background: true}, nil
}

func capOutput(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	return s[:max] + TruncationMarker, true
}
