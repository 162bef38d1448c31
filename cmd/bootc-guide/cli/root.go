package cli

import (
	"log/slog"

	"bootc-guide/pkg/pipelines"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewBootcGuideCommand is the root command, without a sub command it runs the guide
func NewBootcGuideCommand(logLeveler *slog.LevelVar, metadata ApplicationMetadata) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootc-guide",
		Short: "Build a bootc image for RHEL 9 from a few questions",
		Long: "bootc-guide asks what the image should contain, has a local Ollama model write the Containerfile, " +
			"then optionally builds it with podman or docker.",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verboseFlag, _ := cmd.Flags().GetBool("verbose")
			silentFlag, _ := cmd.Flags().GetBool("silent")

			switch {
			case verboseFlag:
				logLeveler.Set(slog.LevelDebug)
			case silentFlag:
				logLeveler.Set(slog.LevelError)
			}

			envFile, _ := cmd.Flags().GetString("env-file")
			pipelines.LoadDotEnv(envFile)

			configFilename, _ := cmd.Flags().GetString("config")
			if err := ReadConfig(viper.GetViper(), configFilename); err != nil {
				return err
			}

			viperKVs := []any{}
			for _, key := range viper.AllKeys() {
				viperKVs = append(viperKVs, key, viper.Get(key))
			}
			slog.Debug("config values", viperKVs...)

			return nil
		},
		RunE: runGuide,
	}

	// Create log leveling flags
	cmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	cmd.PersistentFlags().BoolP("silent", "q", false, "only log errors")
	cmd.MarkFlagsMutuallyExclusive("verbose", "silent")

	cmd.PersistentFlags().StringP("config", "f", "", "bootc-guide config file in json, yaml, or toml")
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded into the environment before configuration is read")
	_ = cmd.MarkPersistentFlagFilename("config", "json", "yaml", "yml", "toml")

	addBackendFlags(cmd)
	addSessionFlags(cmd)

	// Other settings
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	// Viper set up. Viper loads configuration values in this order of precedence
	// 1. explicit call to Set
	// 2. flag
	// 3. env
	// 4. config
	// 5. key/value store
	// 6. default
	viper.SetConfigName("bootc-guide")
	viper.AddConfigPath(".")
	pipelines.SetDefaults(viper.GetViper())
	pipelines.BindEnvs(viper.GetViper())
	bindBackendFlags(cmd)

	versionCmd := newBasicCommand("version", "print version and build information", func(cmd *cobra.Command, _ []string) error {
		_, err := metadata.WriteTo(cmd.OutOrStdout())
		return err
	})

	// Add Sub-commands
	cmd.AddCommand(newRunCommand(), newModelsCommand(), newDebugCommand(), newConfigCommand(), versionCmd)

	return cmd
}
