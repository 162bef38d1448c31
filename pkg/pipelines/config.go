package pipelines

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bootc-guide/pkg/ollama"
	"bootc-guide/pkg/shell"
	"bootc-guide/pkg/tasks"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config contains all parameters for the guide session
type Config struct {
	Version string       `json:"version" toml:"version" yaml:"version"`
	Ollama  configOllama `json:"ollama"  toml:"ollama"  yaml:"ollama"`
	Build   configBuild  `json:"build"   toml:"build"   yaml:"build"`
}

type configOllama struct {
	Host     string `json:"host"     toml:"host"     yaml:"host"`
	Model    string `json:"model"    toml:"model"    yaml:"model"`
	CABundle string `json:"caBundle" toml:"caBundle" yaml:"caBundle"`
	Timeout  string `json:"timeout"  toml:"timeout"  yaml:"timeout"`
}

type configBuild struct {
	CLIInterface  string `json:"cliInterface"  toml:"cliInterface"  yaml:"cliInterface"`
	Workspace     string `json:"workspace"     toml:"workspace"     yaml:"workspace"`
	Containerfile string `json:"containerfile" toml:"containerfile" yaml:"containerfile"`
	DryRun        bool   `json:"dryRun"        toml:"dryRun"        yaml:"dryRun"`
}

func BindEnvs(v *viper.Viper) {
	v.MustBindEnv("ollama.host", "OLLAMA_HOST")
	v.MustBindEnv("ollama.model", "BOOTC_GUIDE_MODEL")
	v.MustBindEnv("ollama.cabundle", "BOOTC_GUIDE_CA_BUNDLE")
	v.MustBindEnv("ollama.timeout", "BOOTC_GUIDE_TIMEOUT")

	v.MustBindEnv("build.cliinterface", "BOOTC_GUIDE_CLI_INTERFACE")
	v.MustBindEnv("build.workspace", "BOOTC_GUIDE_WORKSPACE")
	v.MustBindEnv("build.containerfile", "BOOTC_GUIDE_CONTAINERFILE")
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("version", "1")

	v.SetDefault("ollama.host", ollama.DefaultHost)
	v.SetDefault("ollama.model", ollama.DefaultModel)
	v.SetDefault("ollama.cabundle", "")
	v.SetDefault("ollama.timeout", "0s")

	v.SetDefault("build.cliinterface", string(shell.CLIPodman))
	v.SetDefault("build.workspace", ".")
	v.SetDefault("build.containerfile", tasks.DefaultContainerfile)
	v.SetDefault("build.dryrun", false)
}

// LoadDotEnv reads KEY=value pairs from the given files into the process environment
//
// Missing files are ignored, variables already set in the environment win.
func LoadDotEnv(filenames ...string) {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, filename := range filenames {
		if err := godotenv.Load(filename); err != nil {
			slog.Debug("skip dotenv file", "filename", filename, "error", err)
			continue
		}
		slog.Debug("loaded dotenv file", "filename", filename)
	}
}

// NewDefaultConfig is the configuration with no file, env, or flag values applied
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	config := new(Config)
	// defaults are plain values so decoding cannot fail
	_ = v.Unmarshal(config)
	return config
}

// ConfigFromViper decodes the resolved values and validates them
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	config := new(Config)
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that cannot be caught by the decoder
func (c *Config) Validate() error {
	var errs error
	if _, err := shell.ParseCLIInterface(c.Build.CLIInterface); err != nil {
		errs = errors.Join(errs, fmt.Errorf("build.cliInterface: %w", err))
	}
	if c.Build.Workspace == "" {
		errs = errors.Join(errs, errors.New("build.workspace: must not be empty"))
	}
	if c.Build.Containerfile == "" {
		errs = errors.Join(errs, errors.New("build.containerfile: must not be empty"))
	}
	if _, err := c.Ollama.timeout(); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}

func (c configOllama) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("ollama.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("ollama.timeout: must not be negative, got %s", c.Timeout)
	}
	return d, nil
}

// NewOllamaClient builds the generation client described by the configuration
func (c *Config) NewOllamaClient() (*ollama.Client, error) {
	timeout, err := c.Ollama.timeout()
	if err != nil {
		return nil, err
	}

	rootCAs, err := ollama.LoadRootCAs(c.Ollama.CABundle)
	if err != nil {
		return nil, err
	}

	return ollama.NewClient(
		c.Ollama.Host,
		ollama.WithModel(c.Ollama.Model),
		ollama.WithRootCAs(rootCAs),
		ollama.WithTimeout(timeout),
	)
}

// CLIInterface is the validated build tool
func (c *Config) CLIInterface() shell.CLIInterface {
	cli, err := shell.ParseCLIInterface(c.Build.CLIInterface)
	if err != nil {
		return shell.CLIPodman
	}
	return cli
}
