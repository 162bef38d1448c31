// Package requirements captures what the user wants in their bootc image
//
// A BuildRequirements value is collected once per session, validated, and
// then treated as read only by the rest of the pipeline.
package requirements

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type BaseImage string

const (
	BaseImageUBIMinimal BaseImage = "registry.access.redhat.com/ubi9/ubi-minimal"
	BaseImageUBI        BaseImage = "registry.access.redhat.com/ubi9/ubi"
	BaseImageCustom     BaseImage = "Custom"
)

// BaseImages in the order they are offered
var BaseImages = []BaseImage{BaseImageUBIMinimal, BaseImageUBI, BaseImageCustom}

type Feature string

const (
	FeatureSSHServer        Feature = "SSH Server"
	FeatureSystemTools      Feature = "System Tools"
	FeatureMonitoringTools  Feature = "Monitoring Tools"
	FeatureContainerTools   Feature = "Container Tools"
	FeatureDevelopmentTools Feature = "Development Tools"
)

// Features is the closed vocabulary of optional image features
var Features = []Feature{
	FeatureSSHServer,
	FeatureSystemTools,
	FeatureMonitoringTools,
	FeatureContainerTools,
	FeatureDevelopmentTools,
}

const (
	DefaultTargetImage = "localhost/my-bootc-image:latest"
	DefaultOSTreeRef   = "rhel/9/x86_64/custom"
)

// ErrCancelled is returned when the user interrupts collection
var ErrCancelled = errors.New("requirement collection cancelled by user")

// InputError reports a missing or invalid requirement field
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input on field '%s': %s", e.Field, e.Message)
}

// BuildRequirements is the fixed schema of build choices
type BuildRequirements struct {
	BaseImage   BaseImage `json:"baseImage"   yaml:"baseImage"   toml:"baseImage"`
	CustomImage string    `json:"customImage" yaml:"customImage" toml:"customImage"`
	TargetImage string    `json:"targetImage" yaml:"targetImage" toml:"targetImage"`
	Features    []Feature `json:"features"    yaml:"features"    toml:"features"`
	FIPS        bool      `json:"fips"        yaml:"fips"        toml:"fips"`
	OSTreeRef   string    `json:"ostreeRef"   yaml:"ostreeRef"   toml:"ostreeRef"`
}

// Defaults are the values offered before the user changes anything
func Defaults() BuildRequirements {
	return BuildRequirements{
		BaseImage:   BaseImageUBIMinimal,
		TargetImage: DefaultTargetImage,
		Features:    []Feature{},
		OSTreeRef:   DefaultOSTreeRef,
	}
}

// Validate enforces the schema, it is the only gate before prompt rendering
//
// The custom image is required if and only if the base image is Custom.
func (r BuildRequirements) Validate() error {
	if !slices.Contains(BaseImages, r.BaseImage) {
		return &InputError{Field: "base_image", Message: fmt.Sprintf("unsupported base image %q", r.BaseImage)}
	}

	customImage := strings.TrimSpace(r.CustomImage)
	switch {
	case r.BaseImage == BaseImageCustom && customImage == "":
		return &InputError{Field: "custom_image", Message: "required when the base image is Custom"}
	case r.BaseImage != BaseImageCustom && r.CustomImage != "":
		return &InputError{Field: "custom_image", Message: "only allowed when the base image is Custom"}
	}

	if strings.TrimSpace(r.TargetImage) == "" {
		return &InputError{Field: "target_image", Message: "required"}
	}

	seen := map[Feature]bool{}
	for _, feature := range r.Features {
		if !slices.Contains(Features, feature) {
			return &InputError{Field: "features", Message: fmt.Sprintf("unsupported feature %q", feature)}
		}
		if seen[feature] {
			return &InputError{Field: "features", Message: fmt.Sprintf("duplicate feature %q", feature)}
		}
		seen[feature] = true
	}

	if strings.TrimSpace(r.OSTreeRef) == "" {
		return &InputError{Field: "ostree_ref", Message: "required"}
	}

	return nil
}

// ResolvedBaseImage is the image reference the recipe should start FROM
func (r BuildRequirements) ResolvedBaseImage() string {
	if r.BaseImage == BaseImageCustom {
		return strings.TrimSpace(r.CustomImage)
	}
	return string(r.BaseImage)
}
