package pipelines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"bootc-guide/pkg/ollama"
	"bootc-guide/pkg/shell"
)

type Debug struct {
	Stdout        io.Writer
	Stderr        io.Writer
	DryRunEnabled bool
	CLIInterface  shell.CLIInterface
	Runner        shell.Runner
	Models        ollama.ModelLister
}

// NewDebug creates a new debug pipeline with custom stdout and stderr
func NewDebug(stdoutW io.Writer, stderrW io.Writer) *Debug {
	return &Debug{
		Stdout:       stdoutW,
		Stderr:       stderrW,
		CLIInterface: shell.CLIPodman,
	}
}

// Run prints the build tool version and runtime info, then the running models
//
// Every check runs, the returned error joins all failures
func (d *Debug) Run(ctx context.Context) error {
	slog.Info("start debug pipeline", "dry_run", d.DryRunEnabled, "cli", d.CLIInterface)

	wd, err := os.Getwd()
	if err != nil {
		slog.Error("cannot get current working directory", "error", err)
		return errors.New("Debug Pipeline failed to Run.")
	}
	slog.Info(fmt.Sprintf("Current directory: %s", wd))

	runner := d.Runner
	if runner == nil {
		runner = shell.ExecRunner{DryRunEnabled: d.DryRunEnabled}
	}

	cli := shell.ContainerCommand(d.CLIInterface)
	var errs error
	for _, exe := range []*shell.Executable{cli.Version(), cli.Info()} {
		result := runner.Run(ctx, exe.WithStdout(d.Stdout).WithStderr(d.Stderr))
		if !result.Success() {
			errs = errors.Join(errs, fmt.Errorf("%s: exit code %d", exe.String(), result.ExitCode))
		}
	}

	if d.Models == nil {
		return errs
	}

	models, err := d.Models.ListModels(ctx)
	if err != nil {
		return errors.Join(errs, fmt.Errorf("list models: %w", err))
	}

	fmt.Fprintln(d.Stdout, "Running models:")
	if len(models) == 0 {
		fmt.Fprintln(d.Stdout, "  (none)")
	}
	for _, model := range models {
		fmt.Fprintf(d.Stdout, "  - %s\n", model)
	}

	return errs
}
