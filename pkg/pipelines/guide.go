package pipelines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"bootc-guide/pkg/display"
	"bootc-guide/pkg/ollama"
	"bootc-guide/pkg/prompts"
	"bootc-guide/pkg/requirements"
	"bootc-guide/pkg/tasks"

	"github.com/google/uuid"
)

const BuildQuestion = "Would you like to build the image now?"

// ErrBuildFailed is returned when the build tool exits non-zero
var ErrBuildFailed = errors.New("image build failed")

// Outcome is how a guide session ended
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeDeclined
	OutcomeInputError
	OutcomeGenerationFailed
	OutcomeWriteFailed
	OutcomeBuildFailed
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeDeclined:
		return "declined"
	case OutcomeInputError:
		return "input error"
	case OutcomeGenerationFailed:
		return "generation failed"
	case OutcomeWriteFailed:
		return "write failed"
	case OutcomeBuildFailed:
		return "build failed"
	default:
		return "unexpected"
	}
}

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ImageBuilder builds the written Containerfile into the target image
type ImageBuilder interface {
	Run(ctx context.Context, targetImage string) tasks.BuildResult
}

// Guide is one interactive session, requirements through image build
type Guide struct {
	Collector requirements.Collector
	Generator ollama.Generator
	Builder   ImageBuilder
	Confirmer Confirmer
	Display   *display.Display

	// Destination is the Containerfile path
	Destination string

	SessionID string
	logger    *slog.Logger
}

// NewGuide creates a session that renders to w and writes the Containerfile into workspace
//
// The caller must set Collector, Generator, Builder and Confirmer before Run.
func NewGuide(w io.Writer, workspace string) *Guide {
	id := uuid.NewString()
	return &Guide{
		Display:     display.New(w),
		Destination: filepath.Join(workspace, tasks.DefaultContainerfile),
		SessionID:   id,
		logger:      slog.Default().With("session_id", id),
	}
}

func (g *Guide) preRun() error {
	var errs error
	if g.Collector == nil {
		errs = errors.Join(errs, errors.New("guide pre-run error: requirements collector is required"))
	}
	if g.Generator == nil {
		errs = errors.Join(errs, errors.New("guide pre-run error: generator is required"))
	}
	if g.Builder == nil {
		errs = errors.Join(errs, errors.New("guide pre-run error: image builder is required"))
	}
	if g.Confirmer == nil {
		errs = errors.Join(errs, errors.New("guide pre-run error: confirmer is required"))
	}
	if g.Display == nil {
		errs = errors.Join(errs, errors.New("guide pre-run error: display is required"))
	}
	if g.Destination == "" {
		errs = errors.Join(errs, errors.New("guide pre-run error: destination is required"))
	}
	if g.logger == nil {
		g.logger = slog.Default().With("session_id", g.SessionID)
	}
	return errs
}

// Run executes each stage in order and stops at the first failure
//
// Every failure is reported on the display before Run returns. Cancelled and
// declined sessions return a nil error.
func (g *Guide) Run(ctx context.Context) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
			outcome = g.unexpected(err)
		}
	}()

	if err := g.preRun(); err != nil {
		return OutcomeUnexpected, err
	}

	g.Display.Welcome()

	g.logger.Debug("collect requirements", "step", "collect")
	reqs, err := g.Collector.Collect(ctx)
	if err != nil {
		return g.failInput(err)
	}
	g.logger.Info("requirements collected", "step", "collect", "base_image", reqs.ResolvedBaseImage(),
		"target_image", reqs.TargetImage, "features", len(reqs.Features), "fips", reqs.FIPS)

	prompt, err := prompts.Build(reqs)
	if err != nil {
		return g.failInput(err)
	}

	g.Display.Status("Generating Containerfile...")
	g.logger.Debug("generate containerfile", "step", "generate")
	content, err := g.Generator.Generate(ctx, prompt)
	if err != nil {
		return g.failGeneration(ctx, err)
	}

	path, err := WriteArtifact(content, g.Destination)
	if err != nil {
		var artifactErr *ArtifactError
		if errors.As(err, &artifactErr) {
			g.logger.Error("write containerfile", "step", "write", "path", artifactErr.Path, "error", artifactErr.Err)
			g.Display.Error("Cannot write Containerfile", err)
			return OutcomeWriteFailed, err
		}
		return g.unexpected(err), err
	}
	g.logger.Info("containerfile written", "step", "write", "path", path)
	g.Display.Containerfile(path, content)

	build, err := g.Confirmer.Confirm(ctx, BuildQuestion)
	switch {
	case errors.Is(err, requirements.ErrCancelled) || errors.Is(err, context.Canceled):
		g.Display.Cancelled()
		return OutcomeCancelled, nil
	case err != nil:
		return g.unexpected(err), err
	case !build:
		g.logger.Info("build declined", "step", "confirm")
		g.Display.Declined(path)
		return OutcomeDeclined, nil
	}

	g.Display.Status("Building image...")
	result := g.Builder.Run(ctx, reqs.TargetImage)
	if !result.Success {
		if ctx.Err() != nil {
			g.Display.Cancelled()
			return OutcomeCancelled, nil
		}
		g.logger.Error("image build failed", "step", "build", "exit_code", result.ExitCode)
		g.Display.BuildFailed(result.ExitCode, result.Stderr)
		return OutcomeBuildFailed, fmt.Errorf("%w: %s exit code %d", ErrBuildFailed, reqs.TargetImage, result.ExitCode)
	}

	g.Display.BuildSucceeded(result.Metadata)
	g.Display.Usage(reqs.TargetImage)
	g.logger.Info("session complete", "step", "build", "image", reqs.TargetImage)

	return OutcomeCompleted, nil
}

func (g *Guide) failInput(err error) (Outcome, error) {
	var inputErr *requirements.InputError
	switch {
	case errors.Is(err, requirements.ErrCancelled):
		g.logger.Info("session cancelled", "step", "collect")
		g.Display.Cancelled()
		return OutcomeCancelled, nil
	case errors.As(err, &inputErr):
		g.logger.Warn("invalid requirements", "field", inputErr.Field, "error", inputErr.Message)
		g.Display.Error("Invalid input", err)
		return OutcomeInputError, err
	default:
		return g.unexpected(err), err
	}
}

func (g *Guide) failGeneration(ctx context.Context, err error) (Outcome, error) {
	if ctx.Err() != nil {
		g.Display.Cancelled()
		return OutcomeCancelled, nil
	}

	var genErr *ollama.GenerationError
	if !errors.As(err, &genErr) {
		return g.unexpected(err), err
	}

	g.logger.Error("generation failed", "step", "generate", "kind", genErr.Kind.String(), "error", genErr.Err)

	switch genErr.Kind {
	case ollama.TLSVerificationFailure:
		g.Display.Error("SSL Certificate Verification Failed",
			fmt.Errorf("%w\nTrust the backend certificate with BOOTC_GUIDE_CA_BUNDLE=<pem file>", err))
	case ollama.MalformedResponse:
		g.Display.Error("Unexpected response from Ollama", err)
	default:
		g.Display.Error("Error connecting to Ollama", err)
	}

	return OutcomeGenerationFailed, err
}

func (g *Guide) unexpected(err error) Outcome {
	if g.logger != nil {
		g.logger.Error("unexpected failure", "error", err)
	}
	if g.Display != nil {
		g.Display.Error("Error", err)
	}
	return OutcomeUnexpected
}
