package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarcmp/internal/server"
	"github.com/KaramelBytes/solarcmp/internal/utils"
)

var (
	repFormat     string
	repOutputPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summary, comparison, ranking and distribution in one report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := requestMetric()
		if err != nil {
			return err
		}
		r, err := eng.BuildReport(reqSources, m)
		if err != nil {
			return err
		}

		var data []byte
		switch strings.ToLower(strings.TrimSpace(repFormat)) {
		case "", "markdown", "md":
			data = []byte(r.Markdown())
		case "json":
			b, err := utils.PrettyJSON(server.NewReportView(r))
			if err != nil {
				return err
			}
			data = append(b, '\n')
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", repFormat)
		}

		if repOutputPath != "" {
			if err := utils.SafeWriteFile(repOutputPath, data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report %s to %s\n", r.RequestID, repOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	addRequestFlags(reportCmd)
	reportCmd.Flags().StringVar(&repFormat, "format", "markdown", "output format: markdown | json")
	reportCmd.Flags().StringVarP(&repOutputPath, "output", "o", "", "optional path to write the report")
	rootCmd.AddCommand(reportCmd)
}
