package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bootc-guide/pkg/shell"

	"github.com/fatih/color"
)

// BuildResult is the outcome of one image build and its optional inspection
type BuildResult struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode int
	// Metadata is nil when the image could not be inspected
	Metadata *ImageMetadata
}

type containerCLI interface {
	Name() string
	Build(tag string, containerfile string, contextDir string) *shell.Executable
	Inspect(image string) *shell.Executable
}

// ImageBuildTask builds the workspace Containerfile then inspects the result
type ImageBuildTask struct {
	cli  containerCLI
	opts *taskOptions
}

func NewImageBuildTask(cliInterface shell.CLIInterface, opts ...taskOptionFunc) *ImageBuildTask {
	o := newDefaultTaskOpts()
	for _, optFunc := range opts {
		optFunc(o)
	}
	return &ImageBuildTask{
		cli:  shell.ContainerCommand(cliInterface),
		opts: o,
	}
}

func (t *ImageBuildTask) preRun(targetImage string) error {
	type option struct {
		name  string
		value string
	}
	opts := []option{
		{name: "target image", value: targetImage},
		{name: "containerfile", value: t.opts.Containerfile},
		{name: "context directory", value: t.opts.ContextDir},
	}

	var errs error
	for _, opt := range opts {
		if strings.TrimSpace(opt.value) == "" {
			errs = errors.Join(errs, fmt.Errorf("image build task pre-run error: %s is required", opt.name))
		}
	}
	if t.opts.Runner == nil {
		errs = errors.Join(errs, errors.New("image build task pre-run error: runner is required"))
	}

	return errs
}

// Run executes the build command exactly once
//
// On a zero exit the image is inspected, metadata that cannot be decoded is
// left nil without changing Success.
func (t *ImageBuildTask) Run(ctx context.Context, targetImage string) BuildResult {
	logger := slog.Default().With("task_name", "image build", "cli", t.cli.Name(), "image", targetImage)

	if err := t.preRun(targetImage); err != nil {
		logger.Error("pre-run failure", "error", err)
		return BuildResult{Success: false, ExitCode: int(shell.ExitUnknown), Stderr: err.Error()}
	}

	buildExe := t.cli.Build(targetImage, t.opts.Containerfile, t.opts.ContextDir).WithDir(t.opts.WorkDir)

	var display *PrefixWriter
	if t.opts.DisplayStderr != nil {
		display = NewPrefixWriter(t.opts.DisplayStderr, t.cli.Name()+" build")
		buildExe.WithStderr(display)
	}

	logger.Info("start build")
	start := time.Now()
	buildResult := t.opts.Runner.Run(ctx, buildExe)
	if display != nil {
		_ = display.Close()
		c := color.New(color.FgRed)
		if buildResult.Success() {
			c = color.New(color.FgGreen)
		}
		c.Fprintf(t.opts.DisplayStderr, "[%s build] exit %d in %s\n", t.cli.Name(), buildResult.ExitCode, time.Since(start).Round(time.Millisecond))
	}

	result := BuildResult{
		Success:  buildResult.Success(),
		Stdout:   buildResult.Stdout,
		Stderr:   buildResult.Stderr,
		ExitCode: int(buildResult.ExitCode),
	}

	if !result.Success {
		logger.Warn("build failed", "exit_code", result.ExitCode, "error", buildResult.Err)
		return result
	}

	logger.Info("build complete, inspect image")
	inspectResult := t.opts.Runner.Run(ctx, t.cli.Inspect(targetImage).WithDir(t.opts.WorkDir))

	metadata, err := ParseInspectOutput(inspectResult.Stdout)
	if err != nil {
		logger.Debug("image metadata omitted", "error", err, "inspect_exit_code", inspectResult.ExitCode)
		return result
	}
	result.Metadata = metadata

	return result
}
