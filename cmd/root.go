package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solarcmp/internal/config"
	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/engine"
	"github.com/KaramelBytes/solarcmp/internal/logger"
)

var (
	// Global flags
	cfgFile      string
	flagDataDir  string
	flagLogLevel string

	// Loaded configuration and the engine built from it
	cfg *cfgpkg.Global
	eng *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "solarcmp",
	Short: "solarcmp: compare solar irradiance across regional datasets",
	Long: `solarcmp loads cleaned per-region solar measurement tables into one dataset,
summarizes GHI, DNI and DHI per region, tests whether the regions differ
(one-way ANOVA) and names the best-performing region.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.solarcmp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding the source tables (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

// setup loads configuration, applies flag overrides, configures logging and
// builds the engine. It runs before every command.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if err := logger.Configure(c.LogLevel, c.LogFormat, cmd.ErrOrStderr()); err != nil {
		return err
	}
	cfg = c

	// config subcommands must work on a config that does not validate yet
	if cmd.Parent() == configCmd {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	opt, err := cfg.LoaderOptions()
	if err != nil {
		return err
	}
	eng = engine.New(dataset.NewLoader(cfg.DataDir, opt), cfg.DatasetSources())
	return nil
}
