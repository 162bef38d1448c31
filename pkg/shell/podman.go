package shell

import (
	"fmt"
	"strings"
)

// CLIInterface names a docker compatible container CLI
//
// For example, `docker build` and `podman build` can be used interchangably
type CLIInterface string

const (
	CLIPodman CLIInterface = "podman"
	CLIDocker CLIInterface = "docker"
)

// ParseCLIInterface accepts "podman" or "docker" in any case
func ParseCLIInterface(s string) (CLIInterface, error) {
	switch CLIInterface(strings.ToLower(strings.TrimSpace(s))) {
	case CLIPodman:
		return CLIPodman, nil
	case CLIDocker:
		return CLIDocker, nil
	default:
		return "", fmt.Errorf("only docker/podman cli interfaces are supported, got %q: %w", s, ErrBadParameters)
	}
}

type containerCLICmd struct {
	name    CLIInterface
	InitCmd func() *Executable
}

// ContainerCommand for the given docker compatible CLI
func ContainerCommand(name CLIInterface) *containerCLICmd {
	return &containerCLICmd{
		name: name,
		InitCmd: func() *Executable {
			return NewExecutable(string(name))
		},
	}
}

// PodmanCommand is the default build tool
func PodmanCommand() *containerCLICmd {
	return ContainerCommand(CLIPodman)
}

// DockerCommand can replace podman for hosts without it
func DockerCommand() *containerCLICmd {
	return ContainerCommand(CLIDocker)
}

// Name of the executable
func (p *containerCLICmd) Name() string {
	return string(p.name)
}

// Version outputs the version of the CLI
//
// shell: `[docker|podman] version`
func (p *containerCLICmd) Version() *Executable {
	return p.InitCmd().WithArgs("version")
}

// Info tests the connection to the container runtime daemon
//
// shell: `[docker|podman] info`
func (p *containerCLICmd) Info() *Executable {
	return p.InitCmd().WithArgs("info")
}

// Build a container image from a Containerfile in the context directory
//
// shell: `[docker|podman] build -t <tag> -f <containerfile> <context dir>`
func (p *containerCLICmd) Build(tag string, containerfile string, contextDir string) *Executable {
	return p.InitCmd().WithArgs("build", "-t", tag, "-f", containerfile, contextDir)
}

// Inspect prints a JSON array describing the image
//
// shell: `[docker|podman] inspect <image>`
func (p *containerCLICmd) Inspect(image string) *Executable {
	return p.InitCmd().WithArgs("inspect", image)
}
