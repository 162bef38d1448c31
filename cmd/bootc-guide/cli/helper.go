package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"bootc-guide/pkg/pipelines"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// ApplicationMetadata ...
type ApplicationMetadata struct {
	CLIVersion     string
	GitCommit      string
	BuildDate      string
	GitDescription string
	Platform       string
	GoVersion      string
	Compiler       string
}

func (m ApplicationMetadata) String() string {
	return fmt.Sprintf(`CLIVersion:     %s
GitCommit:      %s
Build Date:     %s
GitDescription: %s
Platform:       %s
GoVersion:      %s
Compiler:       %s
`,
		m.CLIVersion, m.GitCommit, m.BuildDate, m.GitDescription,
		m.Platform, m.GoVersion, m.Compiler)
}

func (m ApplicationMetadata) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s\n", m)
	return int64(n), err
}

// SessionError carries how a session or backend command ended so main can pick an exit code
type SessionError struct {
	Outcome pipelines.Outcome
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Outcome, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// newBasicCommand is a convienence function that includes the minimum fields for a command
//
// It simplifies the cobra interface which has a lot of useful fields for different use cases
// but in this CLI, we don't need all of those features.
func newBasicCommand(use string, short string, runE func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{Use: use, Short: short, RunE: runE}
}

type AbstractEncoder struct {
	w   io.Writer
	obj any
}

func NewAbstractEncoder(w io.Writer, v any) *AbstractEncoder {
	return &AbstractEncoder{w: w, obj: v}
}

func (a *AbstractEncoder) EncodePrettyJSON() error {
	enc := json.NewEncoder(a.w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.obj)
}

func (a *AbstractEncoder) EncodePrettyYAML() error {
	enc := yaml.NewEncoder(a.w)
	enc.SetIndent(2)
	return enc.Encode(a.obj)
}

func (a *AbstractEncoder) EncodeTOML() error {
	return toml.NewEncoder(a.w).Encode(a.obj)
}

// EncodeFormatedTable writes one "key value" line per entry in key order
func (a *AbstractEncoder) EncodeFormatedTable() error {
	m, ok := a.obj.(map[string]string)
	if !ok {
		return errors.New("cannot encode object to table")
	}

	keys := maps.Keys(m)
	slices.Sort(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(a.w, "%-25s %s\n", key, m[key]); err != nil {
			return err
		}
	}

	return nil
}

func (a *AbstractEncoder) Encode(asFormat string) error {
	switch asFormat {
	case "json":
		return a.EncodePrettyJSON()
	case "yaml", "yml":
		return a.EncodePrettyYAML()
	case "toml":
		return a.EncodeTOML()
	case "table":
		return a.EncodeFormatedTable()
	default:
		return fmt.Errorf("unsupported format: '%s'", asFormat)
	}
}

// ParsedOutput splits the format and filename
//
// expects the `--output` argument in the <format>=<filename> format
func ParsedOutput(output string) (format, filename string) {
	format, filename, _ = strings.Cut(output, "=")
	return format, filename
}

// ReadConfig reads the config file into v, a missing default config file is not an error
func ReadConfig(v *viper.Viper, configFilename string) error {
	l := slog.Default().With("step", "load_config")

	if configFilename != "" {
		l.Debug("use config file from flag", "config_file", configFilename)
		v.SetConfigFile(configFilename)
		return v.ReadInConfig()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			l.Debug("viper did not find a config file; check other sources")
			return nil
		}
		return err
	}

	l.Debug("config file loaded", "config_file", v.ConfigFileUsed())
	return nil
}

// ConfigValues flattens the resolved viper keys to strings
func ConfigValues(v *viper.Viper) map[string]string {
	values := make(map[string]string, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		values[key] = fmt.Sprint(v.Get(key))
	}
	return values
}
