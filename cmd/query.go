package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/engine"
	"github.com/KaramelBytes/solarcmp/internal/server"
	"github.com/KaramelBytes/solarcmp/internal/stats"
	"github.com/KaramelBytes/solarcmp/internal/utils"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, s := range cfg.Sources {
			path := s.Path
			if !filepath.IsAbs(path) && cfg.DataDir != "" {
				path = filepath.Join(cfg.DataDir, path)
			}
			fmt.Fprintf(out, "%-16s %s\n", s.ID, path)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the metrics that can be compared",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, m := range eng.ListAvailableMetrics() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s %s [%s]\n", m, m.Label(), dataset.Unit)
		}
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Per-source descriptive statistics for a metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, ds, err := prepare()
		if err != nil {
			return err
		}
		sums := eng.FilterAndSummarize(ds, reqSources, m)
		out := cmd.OutOrStdout()
		if reqJSON {
			return printJSON(out, server.NewSummaryViews(sums))
		}
		fmt.Fprintf(out, "%s [%s]\n", m.Label(), dataset.Unit)
		fmt.Fprintf(out, "%-16s %7s %7s %9s %9s %9s %9s %9s\n", "Source", "Count", "Missing", "Mean", "Median", "Std", "Min", "Max")
		for _, s := range sums {
			fmt.Fprintf(out, "%-16s %7d %7d %9s %9s %9s %9s %9s\n",
				s.Source, s.Count, s.Missing, engine.FormatNumber(s.Mean), engine.FormatNumber(s.Median), engine.FormatNumber(s.Std), engine.FormatNumber(s.Min), engine.FormatNumber(s.Max))
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "One-way ANOVA of a metric across sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, ds, err := prepare()
		if err != nil {
			return err
		}
		res, err := eng.CompareGroups(ds, reqSources, m)
		if err != nil {
			if errors.Is(err, stats.ErrInsufficientGroups) {
				return fmt.Errorf("select at least two sources with %s values to compare: %w", m, err)
			}
			return err
		}
		out := cmd.OutOrStdout()
		if reqJSON {
			return printJSON(out, server.NewComparisonView(res))
		}
		fmt.Fprintf(out, "One-way ANOVA of %s across %d source(s), N=%d\n", m, len(res.Groups), res.N)
		for _, g := range res.Groups {
			fmt.Fprintf(out, "  %-16s n=%-6d mean=%s\n", g.Source, g.N, engine.FormatNumber(stats.Round(g.Mean, 2)))
		}
		fmt.Fprintf(out, "F(%d, %d) = %s, p = %s [%s]\n", res.DFBetween, res.DFWithin, engine.FormatNumber(res.F), engine.FormatPValue(res.P), res.Outcome)
		for _, ex := range res.Excluded {
			fmt.Fprintf(out, "⚠ %s: %s\n", ex.Source, ex.Reason)
		}
		fmt.Fprintln(out, res.Interpretation)
		return nil
	},
}

var bestCmd = &cobra.Command{
	Use:   "best",
	Short: "Name the source with the highest average for a metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, ds, err := prepare()
		if err != nil {
			return err
		}
		best, err := eng.BestPerforming(ds, reqSources, m)
		if err != nil {
			return fmt.Errorf("rank %s: %w", m, err)
		}
		out := cmd.OutOrStdout()
		if reqJSON {
			return printJSON(out, server.NewBestView(m, best))
		}
		fmt.Fprintf(out, "%s has the highest average %s: %s %s\n", best.Source, m, engine.FormatNumber(best.Mean), dataset.Unit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(metricsCmd)
	for _, c := range []*cobra.Command{summarizeCmd, compareCmd, bestCmd} {
		addRequestFlags(c)
		addJSONFlag(c)
		rootCmd.AddCommand(c)
	}
}

// prepare parses the metric flag and loads the unified dataset.
func prepare() (dataset.Metric, *dataset.Dataset, error) {
	m, err := requestMetric()
	if err != nil {
		return 0, nil, err
	}
	ds, err := eng.LoadUnifiedDataset()
	if err != nil {
		return 0, nil, err
	}
	return m, ds, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

