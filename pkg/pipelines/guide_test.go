package pipelines

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bootc-guide/pkg/ollama"
	"bootc-guide/pkg/requirements"
	"bootc-guide/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedContainerfile = "FROM registry.access.redhat.com/ubi9/ubi-minimal\nRUN microdnf -y install openssh-server\n"

type stubCollector struct {
	reqs requirements.BuildRequirements
	err  error
}

func (s stubCollector) Collect(_ context.Context) (requirements.BuildRequirements, error) {
	return s.reqs, s.err
}

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

type stubConfirmer struct {
	answer bool
	err    error
	asked  int
}

func (s *stubConfirmer) Confirm(_ context.Context, _ string) (bool, error) {
	s.asked++
	return s.answer, s.err
}

type stubBuilder struct {
	result  tasks.BuildResult
	targets []string
}

func (s *stubBuilder) Run(_ context.Context, targetImage string) tasks.BuildResult {
	s.targets = append(s.targets, targetImage)
	return s.result
}

type panicGenerator struct{}

func (panicGenerator) Generate(_ context.Context, _ string) (string, error) {
	panic("backend exploded")
}

type guideFixture struct {
	guide     *Guide
	out       *bytes.Buffer
	generator *stubGenerator
	confirmer *stubConfirmer
	builder   *stubBuilder
}

func newGuideFixture(t *testing.T) *guideFixture {
	t.Helper()
	out := new(bytes.Buffer)
	f := &guideFixture{
		out:       out,
		generator: &stubGenerator{response: generatedContainerfile},
		confirmer: &stubConfirmer{answer: true},
		builder: &stubBuilder{result: tasks.BuildResult{
			Success:  true,
			Metadata: &tasks.ImageMetadata{SizeBytes: 1048576, Created: "2024-01-01", Architecture: "amd64"},
		}},
	}

	reqs := requirements.Defaults()
	reqs.Features = []requirements.Feature{requirements.FeatureSSHServer}

	f.guide = NewGuide(out, t.TempDir())
	f.guide.Collector = stubCollector{reqs: reqs}
	f.guide.Generator = f.generator
	f.guide.Confirmer = f.confirmer
	f.guide.Builder = f.builder
	return f
}

func TestGuide_Completed(t *testing.T) {
	f := newGuideFixture(t)

	outcome, err := f.guide.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)

	require.Len(t, f.generator.prompts, 1)
	assert.Contains(t, f.generator.prompts[0], "- Features: SSH Server")

	b, err := os.ReadFile(f.guide.Destination)
	require.NoError(t, err)
	assert.Equal(t, generatedContainerfile, string(b))

	assert.Equal(t, 1, f.confirmer.asked)
	assert.Equal(t, []string{requirements.DefaultTargetImage}, f.builder.targets)

	out := f.out.String()
	assert.Contains(t, out, "Generating Containerfile...")
	assert.Contains(t, out, "RUN microdnf -y install openssh-server")
	assert.Contains(t, out, "Size: 1.00 MB")
	assert.Contains(t, out, "bootc install "+requirements.DefaultTargetImage)
}

func TestGuide_Declined(t *testing.T) {
	f := newGuideFixture(t)
	f.confirmer.answer = false

	outcome, err := f.guide.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome)
	assert.Empty(t, f.builder.targets)
	assert.FileExists(t, f.guide.Destination)
}

func TestGuide_CancelledDuringCollection(t *testing.T) {
	f := newGuideFixture(t)
	f.guide.Collector = stubCollector{err: requirements.ErrCancelled}

	outcome, err := f.guide.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Empty(t, f.generator.prompts)
	assert.NoFileExists(t, f.guide.Destination)
	assert.Contains(t, f.out.String(), "cancelled by user")
}

func TestGuide_CancelledAtConfirmation(t *testing.T) {
	f := newGuideFixture(t)
	f.confirmer.err = requirements.ErrCancelled

	outcome, err := f.guide.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Empty(t, f.builder.targets)
}

func TestGuide_InputErrorBeforeGenerate(t *testing.T) {
	f := newGuideFixture(t)
	reqs := requirements.Defaults()
	reqs.BaseImage = requirements.BaseImageCustom
	f.guide.Collector = stubCollector{reqs: reqs}

	outcome, err := f.guide.Run(context.Background())
	assert.Equal(t, OutcomeInputError, outcome)

	var inputErr *requirements.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "custom_image", inputErr.Field)
	assert.Empty(t, f.generator.prompts, "generate must not be called for invalid input")
	assert.NoFileExists(t, f.guide.Destination)
}

func TestGuide_GenerationFailures(t *testing.T) {
	testTable := []struct {
		name  string
		kind  ollama.ErrorKind
		title string
	}{
		{name: "tls", kind: ollama.TLSVerificationFailure, title: "SSL Certificate Verification Failed"},
		{name: "transport", kind: ollama.TransportFailure, title: "Error connecting to Ollama"},
		{name: "malformed", kind: ollama.MalformedResponse, title: "Unexpected response from Ollama"},
	}

	for _, tc := range testTable {
		t.Run(tc.name, func(t *testing.T) {
			f := newGuideFixture(t)
			f.generator.err = &ollama.GenerationError{Kind: tc.kind, Err: errors.New("boom")}

			outcome, err := f.guide.Run(context.Background())
			assert.Equal(t, OutcomeGenerationFailed, outcome)

			var genErr *ollama.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tc.kind, genErr.Kind)

			assert.Contains(t, f.out.String(), tc.title)
			assert.NoFileExists(t, f.guide.Destination)
			assert.Zero(t, f.confirmer.asked)
		})
	}
}

func TestGuide_WriteFailure(t *testing.T) {
	f := newGuideFixture(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	f.guide.Destination = filepath.Join(blocker, "Containerfile")

	outcome, err := f.guide.Run(context.Background())
	assert.Equal(t, OutcomeWriteFailed, outcome)

	var artifactErr *ArtifactError
	require.ErrorAs(t, err, &artifactErr)
	assert.Zero(t, f.confirmer.asked)
	assert.Contains(t, f.out.String(), "Cannot write Containerfile")
}

func TestGuide_BuildFailure(t *testing.T) {
	f := newGuideFixture(t)
	f.builder.result = tasks.BuildResult{Success: false, ExitCode: 125, Stderr: "Error: no space left on device"}

	outcome, err := f.guide.Run(context.Background())
	assert.Equal(t, OutcomeBuildFailed, outcome)
	assert.ErrorIs(t, err, ErrBuildFailed)

	out := f.out.String()
	assert.Contains(t, out, "Error: no space left on device")
	assert.NotContains(t, out, "bootc install")
}

func TestGuide_BuildWithoutMetadata(t *testing.T) {
	f := newGuideFixture(t)
	f.builder.result = tasks.BuildResult{Success: true}

	outcome, err := f.guide.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.NotContains(t, f.out.String(), "Image details")
	assert.Contains(t, f.out.String(), "bootc install")
}

func TestGuide_Unexpected(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		f := newGuideFixture(t)
		f.guide.Generator = panicGenerator{}

		outcome, err := f.guide.Run(context.Background())
		assert.Equal(t, OutcomeUnexpected, outcome)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend exploded")
		assert.NotContains(t, f.out.String(), "goroutine")
	})

	t.Run("unclassified generator error", func(t *testing.T) {
		f := newGuideFixture(t)
		f.generator.err = errors.New("something else")

		outcome, err := f.guide.Run(context.Background())
		assert.Equal(t, OutcomeUnexpected, outcome)
		assert.EqualError(t, err, "something else")
	})

	t.Run("missing dependencies", func(t *testing.T) {
		g := NewGuide(new(bytes.Buffer), t.TempDir())

		outcome, err := g.Run(context.Background())
		assert.Equal(t, OutcomeUnexpected, outcome)
		assert.ErrorContains(t, err, "generator is required")
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "build failed", OutcomeBuildFailed.String())
	assert.Equal(t, "unexpected", Outcome(99).String())
}
