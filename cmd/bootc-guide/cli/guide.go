package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"bootc-guide/pkg/display"
	"bootc-guide/pkg/pipelines"
	"bootc-guide/pkg/requirements"
	"bootc-guide/pkg/shell"
	"bootc-guide/pkg/tasks"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addBackendFlags creates the persistent flags shared by every command that talks to ollama or the build tool
func addBackendFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("host", "", "ollama address, must use https (env OLLAMA_HOST)")
	cmd.PersistentFlags().StringP("model", "m", "", "model used to write the Containerfile")
	cmd.PersistentFlags().String("ca-bundle", "", "PEM file with extra root certificates trusted for the ollama host")
	cmd.PersistentFlags().StringP("cli-interface", "i", "", "[podman|docker] CLI interface to use for image building")
	cmd.PersistentFlags().StringP("workspace", "w", "", "directory the Containerfile is written to and built from")
	cmd.PersistentFlags().BoolP("dry-run", "n", false, "log commands to debug but don't execute")

	_ = cmd.MarkPersistentFlagFilename("ca-bundle", "pem", "crt")
	_ = cmd.MarkPersistentFlagDirname("workspace")
}

func bindBackendFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("ollama.host", cmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("ollama.model", cmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("ollama.cabundle", cmd.PersistentFlags().Lookup("ca-bundle"))
	_ = viper.BindPFlag("build.cliinterface", cmd.PersistentFlags().Lookup("cli-interface"))
	_ = viper.BindPFlag("build.workspace", cmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("build.dryrun", cmd.PersistentFlags().Lookup("dry-run"))
}

// addSessionFlags are local to the commands that run a guide session
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("from-file", "", "read the build requirements from a yaml or json file instead of asking")
	cmd.Flags().BoolP("yes", "y", false, "build the image without asking for confirmation")
	cmd.Flags().Bool("accessible", false, "use plain prompts that work with screen readers")
	_ = cmd.MarkFlagFilename("from-file", "yaml", "yml", "json")
}

func newRunCommand() *cobra.Command {
	cmd := newBasicCommand("run", "start a guide session, same as running bootc-guide without a command", runGuide)
	cmd.Args = cobra.NoArgs
	addSessionFlags(cmd)
	return cmd
}

func newModelsCommand() *cobra.Command {
	cmd := newBasicCommand("models", "list the models currently running on the ollama host", runModels)
	cmd.Args = cobra.NoArgs
	return cmd
}

func newDebugCommand() *cobra.Command {
	cmd := newBasicCommand("debug", "print build tool version and runtime info, then the running models", runDebug)
	cmd.Args = cobra.NoArgs
	return cmd
}

// Run Functions - Parsing flags and arguments at command runtime

func runGuide(cmd *cobra.Command, _ []string) error {
	config, err := pipelines.ConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	fromFile, _ := cmd.Flags().GetString("from-file")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	accessible, _ := cmd.Flags().GetBool("accessible")

	guide, err := newGuide(cmd, config, fromFile, assumeYes, accessible)
	if err != nil {
		return err
	}

	outcome, err := guide.Run(cmd.Context())
	slog.Info("guide session finished", "session_id", guide.SessionID, "outcome", outcome.String())
	if err != nil {
		return &SessionError{Outcome: outcome, Err: err}
	}
	return nil
}

func runModels(cmd *cobra.Command, _ []string) error {
	config, err := pipelines.ConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	client, err := config.NewOllamaClient()
	if err != nil {
		return err
	}

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return &SessionError{Outcome: pipelines.OutcomeGenerationFailed, Err: err}
	}

	for _, model := range models {
		fmt.Fprintln(cmd.OutOrStdout(), model)
	}
	return nil
}

func runDebug(cmd *cobra.Command, _ []string) error {
	config, err := pipelines.ConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	client, err := config.NewOllamaClient()
	if err != nil {
		return err
	}

	pipeline := pipelines.NewDebug(cmd.OutOrStdout(), cmd.ErrOrStderr())
	pipeline.DryRunEnabled = config.Build.DryRun
	pipeline.CLIInterface = config.CLIInterface()
	pipeline.Models = client

	if err := pipeline.Run(cmd.Context()); err != nil {
		return &SessionError{Outcome: pipelines.OutcomeUnexpected, Err: err}
	}
	return nil
}

// Execution functions - Logic for command execution

func newGuide(cmd *cobra.Command, config *pipelines.Config, fromFile string, assumeYes bool, accessible bool) (*pipelines.Guide, error) {
	client, err := config.NewOllamaClient()
	if err != nil {
		return nil, err
	}

	var collector requirements.Collector
	switch {
	case fromFile != "":
		collector = &requirements.FileCollector{Filename: fromFile}
	default:
		formCollector := requirements.NewFormCollector()
		formCollector.Input = cmd.InOrStdin()
		formCollector.Output = cmd.OutOrStdout()
		formCollector.Accessible = accessible
		collector = formCollector
	}

	var confirmer pipelines.Confirmer = display.Confirmer{
		Input:      cmd.InOrStdin(),
		Output:     cmd.OutOrStdout(),
		Accessible: accessible,
	}
	if assumeYes {
		confirmer = alwaysConfirm{}
	}

	workspace := config.Build.Workspace
	builder := tasks.NewImageBuildTask(
		config.CLIInterface(),
		tasks.WithWorkDir(workspace),
		tasks.WithContainerfile(config.Build.Containerfile),
		tasks.WithDisplay(cmd.ErrOrStderr()),
		tasks.WithRunner(shell.ExecRunner{DryRunEnabled: config.Build.DryRun}),
	)

	guide := pipelines.NewGuide(cmd.OutOrStdout(), workspace)
	guide.Destination = config.Build.Containerfile
	if !filepath.IsAbs(guide.Destination) {
		guide.Destination = filepath.Join(workspace, guide.Destination)
	}
	guide.Collector = collector
	guide.Generator = client
	guide.Builder = builder
	guide.Confirmer = confirmer

	slog.Debug("guide session ready", "session_id", guide.SessionID, "host", client.Host(),
		"model", client.Model(), "cli", config.CLIInterface(), "workspace", workspace, "dry_run", config.Build.DryRun)

	return guide, nil
}

type alwaysConfirm struct{}

func (alwaysConfirm) Confirm(_ context.Context, question string) (bool, error) {
	slog.Debug("confirmation assumed", "question", question)
	return true, nil
}
