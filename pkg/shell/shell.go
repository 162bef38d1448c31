// Package shell is an abstraction layer around the exec package
//
// It turns commands into Go objects so a specific sub-set of that command
// can be called without having to deal with string manipulation as is typically done
// with bash.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
)

type ExitCode int

const (
	ExitOK            ExitCode = 0
	ExitUnknown       ExitCode = 232
	ExitContextCancel ExitCode = 231
	ExitKillFailure   ExitCode = 230
)

// ErrBadParameters is returned when a command is configured with unsupported values
var ErrBadParameters = errors.New("bad parameters")

// Executable is a wrapper around exec.Cmd from the standard library
//
// # It add additional capabilities and simplifies the API by using a builder pattern
//
// Example:
//
// result := DefaultRunner.Run(ctx, NewExecutable("echo").WithArgs("howdy world"))
type Executable struct {
	*exec.Cmd
}

// NewExecutable creates an Executable initialized with the given executable name
// it does not check if the given command is present on the $PATH
func NewExecutable(executableName string) *Executable {
	return &Executable{Cmd: exec.Command(executableName)}
}

// WithArgs attaches given arguments to a command
//
// All other arguments will be overridden except for the base command/binary
func (e *Executable) WithArgs(args ...string) *Executable {
	e.Args = append(e.Args[:1], args...)
	return e
}

// WithDir sets the working directory the command is started in
func (e *Executable) WithDir(dir string) *Executable {
	e.Dir = dir
	return e
}

// WithIO attaches all of the necessary IO to the command
//
// Output writers are mirrors, the Runner always captures both streams
func (e *Executable) WithIO(stdin io.Reader, stdout io.Writer, stderr io.Writer) *Executable {
	e.Stdin = stdin
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

// WithStdout mirrors the command standard output to the given writer
func (e *Executable) WithStdout(w io.Writer) *Executable {
	e.Stdout = w
	return e
}

// WithStderr mirrors the command standard error to the given writer
func (e *Executable) WithStderr(w io.Writer) *Executable {
	e.Stderr = w
	return e
}

// Result is the uniform outcome of a finished command
//
// Err is only set when the process could not be started or waited on,
// a non-zero exit is reported through ExitCode alone.
type Result struct {
	ExitCode ExitCode
	Stdout   string
	Stderr   string
	Err      error
}

// Success is true when the command exited zero
func (r Result) Success() bool {
	return r.ExitCode == ExitOK && r.Err == nil
}

// Runner is the interface that wraps the Run method.
//
// Run executes the command to completion and reports the exit code with
// the full content of both output streams.
type Runner interface {
	Run(ctx context.Context, exe *Executable) Result
}

// ExecRunner runs commands on the host
type ExecRunner struct {
	// DryRunEnabled will log the command that would run and return ExitOK
	DryRunEnabled bool
}

// DefaultRunner executes commands for real
var DefaultRunner Runner = ExecRunner{}

// Run handles the execution of the command
//
// If ctx fires done before the process exits, the process is killed.
// Setting the dry run option will always return ExitOK
func (r ExecRunner) Run(ctx context.Context, exe *Executable) Result {
	slog.Info("shell exec", "dry_run", r.DryRunEnabled, "command", exe.String())
	if r.DryRunEnabled {
		return Result{ExitCode: ExitOK}
	}

	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	exe.Stdout = mirror(stdoutBuf, exe.Stdout)
	exe.Stderr = mirror(stderrBuf, exe.Stderr)

	if err := exe.Start(); err != nil {
		slog.Debug("shell start failure", "command", exe.String(), "error", err)
		return Result{ExitCode: ExitUnknown, Stderr: err.Error(), Err: err}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	doneChan := make(chan error, 1)
	go func() {
		doneChan <- exe.Wait()
	}()

	var runError error
	select {
	case <-ctx.Done():
		if err := exe.Process.Kill(); err != nil {
			return Result{ExitCode: ExitKillFailure, Stdout: stdoutBuf.String(), Stderr: stderrBuf.String(), Err: err}
		}
		<-doneChan
		return Result{ExitCode: ExitContextCancel, Stdout: stdoutBuf.String(), Stderr: stderrBuf.String(), Err: ctx.Err()}
	case runError = <-doneChan:
	}

	result := Result{ExitCode: ExitOK, Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}

	var exitCodeError *exec.ExitError
	switch {
	case errors.As(runError, &exitCodeError):
		result.ExitCode = ExitCode(exitCodeError.ExitCode())
	case runError != nil:
		result.ExitCode = ExitUnknown
		result.Err = runError
	}

	return result
}

func mirror(capture *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return capture
	}
	return io.MultiWriter(capture, w)
}
