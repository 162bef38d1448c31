package cli

import (
	"errors"
	"io"
	"log/slog"

	"bootc-guide/pkg/pipelines"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCommand() *cobra.Command {
	// config init
	initCmd := newBasicCommand("init", "write the default configuration file", runConfigInit)
	initCmd.Flags().StringP("output", "o", "yaml", "config output format (<format>=<file>) empty will write to STDOUT, formats=[json yaml yml toml]")

	// config info
	infoCmd := newBasicCommand("info [CONFIG FILE]", "print the loaded configuration values", runConfigInfo)
	infoCmd.Args = cobra.MaximumNArgs(1)
	infoCmd.Flags().StringP("output", "o", "table", "output format, formats=[table json yaml yml toml]")

	// config
	cmd := &cobra.Command{Use: "config", Short: "manage the bootc-guide config file"}

	// add sub commands
	cmd.AddCommand(infoCmd, initCmd)

	return cmd
}

// Run Functions - Parsing flags and arguments at command runtime

func runConfigInfo(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()

	// an explicit file is read on its own, without flag values
	if len(args) == 1 {
		v = viper.New()
		pipelines.SetDefaults(v)
		pipelines.BindEnvs(v)
		if err := ReadConfig(v, args[0]); err != nil {
			return err
		}
	}

	config, err := pipelines.ConfigFromViper(v)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "table" {
		return NewAbstractEncoder(cmd.OutOrStdout(), ConfigValues(v)).Encode(output)
	}
	return NewAbstractEncoder(cmd.OutOrStdout(), config).Encode(output)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	var targetWriter io.Writer

	output, _ := cmd.Flags().GetString("output")

	format, filename := ParsedOutput(output)

	switch {
	case filename == "":
		targetWriter = cmd.OutOrStdout()
	default:
		f, err := pipelines.OpenOrCreateFile(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		targetWriter = f
	}

	if err := NewAbstractEncoder(targetWriter, pipelines.NewDefaultConfig()).Encode(format); err != nil {
		slog.Error("cannot encode default config object", "format", format, "error", err)
		return errors.New("Config Init Failed.")
	}

	return nil
}
