package requirements

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// Collector gathers a validated BuildRequirements value
//
// Implementations return ErrCancelled when the user backs out and an
// *InputError when a required field is missing.
type Collector interface {
	Collect(ctx context.Context) (BuildRequirements, error)
}

// answers are the raw form values before defaults are applied
type answers struct {
	baseImage   string
	customImage string
	targetImage string
	features    []string
	fips        bool
	ostreeRef   string
}

// toRequirements applies the text defaults and drops the custom image unless it was asked for
func (a answers) toRequirements() BuildRequirements {
	r := BuildRequirements{
		BaseImage:   BaseImage(a.baseImage),
		TargetImage: strings.TrimSpace(a.targetImage),
		Features:    make([]Feature, 0, len(a.features)),
		FIPS:        a.fips,
		OSTreeRef:   strings.TrimSpace(a.ostreeRef),
	}
	if r.BaseImage == BaseImageCustom {
		r.CustomImage = strings.TrimSpace(a.customImage)
	}
	if r.TargetImage == "" {
		r.TargetImage = DefaultTargetImage
	}
	if r.OSTreeRef == "" {
		r.OSTreeRef = DefaultOSTreeRef
	}
	for _, f := range a.features {
		r.Features = append(r.Features, Feature(f))
	}
	return r
}

// FormCollector asks the six questions in the terminal
type FormCollector struct {
	Input      io.Reader
	Output     io.Writer
	Accessible bool
	Theme      *huh.Theme
}

// NewFormCollector reads from stdin and draws on stdout
func NewFormCollector() *FormCollector {
	return &FormCollector{
		Input:  os.Stdin,
		Output: os.Stdout,
		Theme:  huh.ThemeCharm(),
	}
}

func (c *FormCollector) Collect(ctx context.Context) (BuildRequirements, error) {
	logger := slog.Default().With("step", "collect_requirements")

	a := answers{baseImage: string(BaseImageUBIMinimal)}

	baseOptions := make([]huh.Option[string], 0, len(BaseImages))
	for _, image := range BaseImages {
		baseOptions = append(baseOptions, huh.NewOption(string(image), string(image)))
	}

	featureOptions := make([]huh.Option[string], 0, len(Features))
	for _, feature := range Features {
		featureOptions = append(featureOptions, huh.NewOption(string(feature), string(feature)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("base_image").
				Title("Select your base image").
				Options(baseOptions...).
				Value(&a.baseImage),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("custom_image").
				Title("Enter your custom base image").
				Placeholder("quay.io/centos-bootc/centos-bootc:stream9").
				Value(&a.customImage).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a custom base image is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool {
			return BaseImage(a.baseImage) != BaseImageCustom
		}),
		huh.NewGroup(
			huh.NewInput().
				Key("target_image").
				Title("Enter your target image name").
				Placeholder(DefaultTargetImage).
				Description("Leave empty for "+DefaultTargetImage).
				Value(&a.targetImage),
			huh.NewMultiSelect[string]().
				Key("features").
				Title("Select additional features to include").
				Options(featureOptions...).
				Value(&a.features),
			huh.NewConfirm().
				Key("use_fips").
				Title("Enable FIPS mode?").
				Affirmative("Yes").
				Negative("No").
				Value(&a.fips),
			huh.NewInput().
				Key("ostree_ref").
				Title("Enter OSTree ref name").
				Placeholder(DefaultOSTreeRef).
				Description("Leave empty for "+DefaultOSTreeRef).
				Value(&a.ostreeRef),
		),
	).
		WithAccessible(c.Accessible).
		WithShowHelp(true).
		WithShowErrors(true)

	if c.Theme != nil {
		form = form.WithTheme(c.Theme)
	}
	if c.Input != nil {
		form = form.WithInput(c.Input)
	}
	if c.Output != nil {
		form = form.WithOutput(c.Output)
	}

	logger.Debug("run requirement form")
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return BuildRequirements{}, ErrCancelled
		}
		return BuildRequirements{}, fmt.Errorf("requirement form failed: %w", err)
	}

	r := a.toRequirements()
	if err := r.Validate(); err != nil {
		return BuildRequirements{}, err
	}
	logger.Debug("requirements collected", "base_image", r.ResolvedBaseImage(), "features", len(r.Features), "fips", r.FIPS)
	return r, nil
}

// FileCollector reads the requirements from a YAML or JSON file instead of asking
//
// Empty target image and OSTree ref fall back to the defaults like the form does.
type FileCollector struct {
	Filename string
}

func (c *FileCollector) Collect(ctx context.Context) (BuildRequirements, error) {
	if err := ctx.Err(); err != nil {
		return BuildRequirements{}, ErrCancelled
	}

	slog.Debug("read requirements file", "filename", c.Filename)
	content, err := os.ReadFile(c.Filename)
	if err != nil {
		return BuildRequirements{}, fmt.Errorf("cannot read requirements file: %w", err)
	}

	// YAML is a superset of JSON, one decoder serves both
	var file struct {
		BaseImage   string   `yaml:"baseImage"`
		CustomImage string   `yaml:"customImage"`
		TargetImage string   `yaml:"targetImage"`
		Features    []string `yaml:"features"`
		FIPS        bool     `yaml:"fips"`
		OSTreeRef   string   `yaml:"ostreeRef"`
	}
	if err := yaml.Unmarshal(content, &file); err != nil {
		return BuildRequirements{}, fmt.Errorf("cannot decode requirements file %s: %w", filepath.Base(c.Filename), err)
	}

	a := answers{
		baseImage:   file.BaseImage,
		customImage: file.CustomImage,
		targetImage: file.TargetImage,
		features:    file.Features,
		fips:        file.FIPS,
		ostreeRef:   file.OSTreeRef,
	}
	if a.baseImage == "" {
		a.baseImage = string(BaseImageUBIMinimal)
	}

	r := a.toRequirements()
	// a custom image given for a preset base is a mistake in a file, not a skipped question
	if r.BaseImage != BaseImageCustom && strings.TrimSpace(file.CustomImage) != "" {
		r.CustomImage = file.CustomImage
	}
	if err := r.Validate(); err != nil {
		return BuildRequirements{}, err
	}
	return r, nil
}
