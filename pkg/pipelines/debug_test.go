package pipelines

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"bootc-guide/pkg/ollama"
	"bootc-guide/pkg/shell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	commands []string
	exitCode shell.ExitCode
}

func (r *recordingRunner) Run(_ context.Context, exe *shell.Executable) shell.Result {
	r.commands = append(r.commands, exe.String())
	return shell.Result{ExitCode: r.exitCode}
}

type stubModels struct {
	models []string
	err    error
}

func (s stubModels) ListModels(_ context.Context) ([]string, error) {
	return s.models, s.err
}

func TestDebug(t *testing.T) {
	stdout := new(bytes.Buffer)
	runner := &recordingRunner{}

	pipeline := NewDebug(stdout, new(bytes.Buffer))
	pipeline.CLIInterface = shell.CLIDocker
	pipeline.Runner = runner
	pipeline.Models = stubModels{models: []string{"codellama", "granite-code"}}

	require.NoError(t, pipeline.Run(context.Background()))
	require.Len(t, runner.commands, 2)
	assert.Contains(t, runner.commands[0], "docker version")
	assert.Contains(t, runner.commands[1], "docker info")
	assert.Contains(t, stdout.String(), "  - codellama\n  - granite-code\n")
}

func TestDebug_Failures(t *testing.T) {
	stdout := new(bytes.Buffer)
	pipeline := NewDebug(stdout, new(bytes.Buffer))
	pipeline.Runner = &recordingRunner{exitCode: shell.ExitUnknown}
	pipeline.Models = stubModels{err: &ollama.GenerationError{Kind: ollama.TransportFailure, Err: errors.New("connection refused")}}

	err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "podman version")
	assert.ErrorContains(t, err, "podman info")
	assert.ErrorIs(t, err, ollama.ErrTransport)
}

func TestDebug_NoModels(t *testing.T) {
	stdout := new(bytes.Buffer)
	pipeline := NewDebug(stdout, new(bytes.Buffer))
	pipeline.Runner = &recordingRunner{}
	pipeline.Models = stubModels{}

	require.NoError(t, pipeline.Run(context.Background()))
	assert.Contains(t, stdout.String(), "(none)")
}

func TestDebug_DryRun(t *testing.T) {
	pipeline := NewDebug(new(bytes.Buffer), new(bytes.Buffer))
	pipeline.DryRunEnabled = true

	assert.NoError(t, pipeline.Run(context.Background()))
}
