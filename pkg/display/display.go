// Package display renders the guide session to a terminal
//
// Every method writes to the configured writer and never reads input,
// except Confirmer which asks a single yes/no question.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bootc-guide/pkg/requirements"
	"bootc-guide/pkg/tasks"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	colorBlue   = lipgloss.Color("#5F87FF")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorRed    = lipgloss.Color("#FF0000")
	colorGray   = lipgloss.Color("#888888")
)

// Display is the output sink for a session
type Display struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

// New creates a Display writing to w, color support is detected from w
func New(w io.Writer) *Display {
	return &Display{w: w, renderer: lipgloss.NewRenderer(w)}
}

// Writer is the underlying output, used to mirror live build output
func (d *Display) Writer() io.Writer {
	return d.w
}

func (d *Display) panel(title string, border lipgloss.Color, body string) {
	titleStyle := d.renderer.NewStyle().Bold(true).Foreground(border)
	boxStyle := d.renderer.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	content := body
	if title != "" {
		content = titleStyle.Render(title) + "\n\n" + body
	}
	fmt.Fprintln(d.w, boxStyle.Render(content))
}

func (d *Display) line(color lipgloss.Color, msg string) {
	fmt.Fprintln(d.w, "\n"+d.renderer.NewStyle().Foreground(color).Render(msg))
}

// Welcome prints the session banner
func (d *Display) Welcome() {
	d.panel("bootc Image Builder", colorBlue,
		"Welcome to the bootc Image Builder Guide!\nThis tool will help you create a custom bootc image for RHEL 9")
}

// Status prints a progress message
func (d *Display) Status(msg string) {
	d.line(colorYellow, msg)
}

// Containerfile shows the generated Containerfile and where it was written
func (d *Display) Containerfile(path string, content string) {
	body := strings.TrimRight(content, "\n")
	if body == "" {
		body = d.renderer.NewStyle().Foreground(colorGray).Render("(empty)")
	}
	d.panel("Generated Containerfile: "+path, colorBlue, body)
}

// BuildSucceeded prints the success line followed by image details when known
func (d *Display) BuildSucceeded(metadata *tasks.ImageMetadata) {
	d.line(colorGreen, "Build successful!")
	if metadata == nil {
		return
	}

	details := fmt.Sprintf("Size: %s\nCreated: %s\nArchitecture: %s",
		metadata.SizeMB(), metadata.CreatedOrUnknown(), metadata.ArchitectureOrUnknown())
	d.panel("Image details", colorBlue, details)
}

// Usage prints the install instructions for a built image
func (d *Display) Usage(targetImage string) {
	d.panel("Usage Instructions", colorGreen,
		"You can now use this image with:\nbootc install "+targetImage)
}

// BuildFailed prints the build tool's error output verbatim
func (d *Display) BuildFailed(exitCode int, stderr string) {
	d.line(colorRed, fmt.Sprintf("Build failed (exit code %d):", exitCode))
	fmt.Fprintln(d.w, strings.TrimRight(stderr, "\n"))
}

// Cancelled reports a session ended by the user
func (d *Display) Cancelled() {
	d.line(colorYellow, "Build process cancelled by user")
}

// Declined reports a build the user chose not to run
func (d *Display) Declined(path string) {
	d.line(colorGray, "Skipping build, the Containerfile is available at "+path)
}

// Error prints a titled error panel
func (d *Display) Error(title string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	d.panel(title, colorRed, msg)
}

// Confirmer asks the build confirmation question with a huh form
type Confirmer struct {
	Input      io.Reader
	Output     io.Writer
	Accessible bool
}

// Confirm blocks until the user answers or ctx is done, the default answer is no
func (c Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	var answer bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	).WithAccessible(c.Accessible)

	if c.Input != nil {
		form = form.WithInput(c.Input)
	}
	if c.Output != nil {
		form = form.WithOutput(c.Output)
	}

	err := form.RunWithContext(ctx)
	switch {
	case errors.Is(err, huh.ErrUserAborted), errors.Is(err, context.Canceled):
		return false, requirements.ErrCancelled
	case err != nil:
		return false, fmt.Errorf("build confirmation: %w", err)
	}

	return answer, nil
}
