package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// SourceConfig names one input table and where it lives. Relative paths are
// resolved against DataDir.
type SourceConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Global configuration structure.
type Global struct {
	DataDir string         `mapstructure:"data_dir" yaml:"data_dir"`
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources"`

	// Parsing. Empty values mean auto-detect.
	Delimiter          string   `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string   `mapstructure:"thousands_separator" yaml:"thousands_separator"`
	MissingValues      []string `mapstructure:"missing_values" yaml:"missing_values"`

	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	ServerAddress string `mapstructure:"server_address" yaml:"server_address"`
}

// DefaultSources are the three cleaned regional exports.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{ID: "Benin", Path: "benin-cleaned.csv"},
		{ID: "Sierra Leone", Path: "sierraleone-cleaned.csv"},
		{ID: "Togo", Path: "togo-cleaned.csv"},
	}
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".solarcmp"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.solarcmp/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. An explicit cfgFile must exist;
// the default ~/.solarcmp/config.yaml is optional.
func Load(cfgFile string) (*Global, error) {
	return load(cfgFile, true)
}

// LoadFile loads configuration from file and defaults only, ignoring
// SOLARCMP_* environment overrides. Use it for values that will be saved back.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, env bool) (*Global, error) {
	v := viper.New()
	if env {
		v.SetEnvPrefix("SOLARCMP")
		v.AutomaticEnv()
	}

	v.SetDefault("data_dir", "data")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("missing_values", []string{})
	v.SetDefault("histogram_bins", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("server_address", "127.0.0.1:8501")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// viper cannot default a list of structs
	if len(c.Sources) == 0 {
		c.Sources = DefaultSources()
	}
	return &c, nil
}

// Validate checks the configuration for values the loader cannot work with.
func (c *Global) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("sources[%d] (%s): path is required", i, id)
		}
		if seen[id] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}
	if _, err := delimiterRune(c.Delimiter); err != nil {
		return err
	}
	dec, err := singleRune("decimal_separator", c.DecimalSeparator)
	if err != nil {
		return err
	}
	th, err := singleRune("thousands_separator", c.ThousandsSeparator)
	if err != nil {
		return err
	}
	if dec != 0 && dec == th {
		return fmt.Errorf("decimal_separator and thousands_separator must differ (both %q)", string(dec))
	}
	if c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be >= 0, got %d", c.HistogramBins)
	}
	if !lo.Contains([]string{"", "text", "json"}, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// LoaderOptions translates the parsing settings into dataset.Options.
func (c *Global) LoaderOptions() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	var err error
	if opt.Delimiter, err = delimiterRune(c.Delimiter); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator, err = singleRune("decimal_separator", c.DecimalSeparator); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = singleRune("thousands_separator", c.ThousandsSeparator); err != nil {
		return opt, err
	}
	if tokens := MissingTokens(c.MissingValues); len(tokens) > 0 {
		opt.MissingValues = tokens
	}
	return opt, nil
}

// MissingTokens trims the tokens and drops blanks. An empty result means the
// loader defaults apply.
func MissingTokens(values []string) []string {
	return lo.Compact(lo.Map(values, func(s string, _ int) string { return strings.TrimSpace(s) }))
}

// DatasetSources returns the configured sources as loader inputs.
func (c *Global) DatasetSources() []dataset.Source {
	return lo.Map(c.Sources, func(s SourceConfig, _ int) dataset.Source {
		return dataset.Source{ID: dataset.SourceID(strings.TrimSpace(s.ID)), Path: s.Path}
	})
}

func delimiterRune(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	return singleRune("delimiter", s)
}

func singleRune(key, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
