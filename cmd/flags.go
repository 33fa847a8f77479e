package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// Per-request flags shared by the analysis commands.
var (
	reqMetric  string
	reqSources sourceList
	reqJSON    bool
)

// sourceList collects repeated or comma-separated --source values.
type sourceList []dataset.SourceID

func (s *sourceList) String() string {
	parts := make([]string, len(*s))
	for i, id := range *s {
		parts[i] = string(id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *sourceList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if id := strings.TrimSpace(part); id != "" {
			*s = append(*s, dataset.SourceID(id))
		}
	}
	return nil
}

func (s *sourceList) Type() string { return "strings" }

func addRequestFlags(c *cobra.Command) {
	c.Flags().StringVarP(&reqMetric, "metric", "m", "GHI", "metric: GHI | DNI | DHI")
	c.Flags().VarP(&reqSources, "source", "s", "source to include (repeatable or comma-separated; default all)")
}

func addJSONFlag(c *cobra.Command) {
	c.Flags().BoolVar(&reqJSON, "json", false, "print JSON instead of text")
}

func requestMetric() (dataset.Metric, error) {
	m, err := dataset.ParseMetric(reqMetric)
	if err != nil {
		return 0, fmt.Errorf("invalid --metric: %w", err)
	}
	return m, nil
}
