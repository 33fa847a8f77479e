package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solarcmp/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set solarcmp configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintln(out, "sources:")
		for _, s := range cfg.Sources {
			fmt.Fprintf(out, "  - %s: %s\n", s.ID, s.Path)
		}
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.DecimalSeparator != "" {
			fmt.Fprintf(out, "decimal_separator: %q\n", cfg.DecimalSeparator)
		}
		if cfg.ThousandsSeparator != "" {
			fmt.Fprintf(out, "thousands_separator: %q\n", cfg.ThousandsSeparator)
		}
		if len(cfg.MissingValues) > 0 {
			fmt.Fprintf(out, "missing_values: %s\n", strings.Join(cfg.MissingValues, ", "))
		}
		fmt.Fprintf(out, "histogram_bins: %d\n", cfg.HistogramBins)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "server_address: %s\n", cfg.ServerAddress)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

Sources are set as a comma-separated list of id=path pairs, e.g.
  solarcmp config set sources "Benin=benin.csv,Togo=togo.csv"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// environment and flag overrides must not end up in the file
		saved, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "data_dir":
			saved.DataDir = val
		case "sources":
			srcs, err := parseSources(val)
			if err != nil {
				return err
			}
			saved.Sources = srcs
		case "delimiter":
			saved.Delimiter = val
		case "decimal_separator":
			saved.DecimalSeparator = val
		case "thousands_separator":
			saved.ThousandsSeparator = val
		case "missing_values":
			saved.MissingValues = cfgpkg.MissingTokens(strings.Split(val, ","))
		case "histogram_bins":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for histogram_bins: %v", val)
			}
			saved.HistogramBins = i
		case "log_level":
			saved.LogLevel = val
		case "log_format":
			saved.LogFormat = val
		case "server_address":
			saved.ServerAddress = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := saved.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if err := cfgpkg.Save(saved, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func parseSources(val string) ([]cfgpkg.SourceConfig, error) {
	var out []cfgpkg.SourceConfig
	for _, pair := range strings.Split(val, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, path, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid source %q (want id=path)", pair)
		}
		out = append(out, cfgpkg.SourceConfig{ID: strings.TrimSpace(id), Path: strings.TrimSpace(path)})
	}
	return out, nil
}
