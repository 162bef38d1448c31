// Package prompts renders build requirements into the instruction sent to the model
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"bootc-guide/pkg/requirements"
)

// FeatureSeparator joins the selected feature names
const FeatureSeparator = ", "

// ContainerfileTemplate is the instruction for a bootc Containerfile
const ContainerfileTemplate = `Create a Containerfile for a bootc image with these requirements:
- Base image: {{ .BaseImage }}
- Features: {{ .Features }}
- FIPS mode: {{ .FIPSMode }}
- OSTree ref: {{ .OSTreeRef }}

Requirements:
1. Use bootc-specific instructions
2. Include proper labels for RHEL UBI images
3. Set up systemd appropriately
4. Configure chosen features securely
5. Follow RHEL best practices
`

var containerfileTmpl = template.Must(template.New("containerfile prompt").Parse(ContainerfileTemplate))

type promptData struct {
	BaseImage string
	Features  string
	FIPSMode  string
	OSTreeRef string
}

// Build renders the prompt, equal requirements always give identical output
func Build(r requirements.BuildRequirements) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	features := make([]string, 0, len(r.Features))
	for _, f := range r.Features {
		features = append(features, string(f))
	}

	data := promptData{
		BaseImage: r.ResolvedBaseImage(),
		Features:  strings.Join(features, FeatureSeparator),
		FIPSMode:  FIPSMode(r.FIPS),
		OSTreeRef: r.OSTreeRef,
	}

	buf := new(bytes.Buffer)
	if err := containerfileTmpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("prompt rendering failed: %w", err)
	}
	return buf.String(), nil
}

// FIPSMode is "enabled" or "disabled"
func FIPSMode(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
