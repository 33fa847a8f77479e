package dataset

import (
	"fmt"
	"math"
	"strings"
)

// SourceID labels the regional table an observation came from.
type SourceID string

// Metric is one of the three irradiance measures carried by every source.
type Metric int

const (
	GHI Metric = iota
	DNI
	DHI

	metricCount = 3
)

// Unit is the display unit shared by all metrics.
const Unit = "kWh/m²/day"

var metricNames = [metricCount]string{"GHI", "DNI", "DHI"}

var metricLabels = [metricCount]string{
	"GHI (Global Horizontal Irradiance)",
	"DNI (Direct Normal Irradiance)",
	"DHI (Diffuse Horizontal Irradiance)",
}

// Metrics returns the metrics in their canonical order.
func Metrics() []Metric { return []Metric{GHI, DNI, DHI} }

func (m Metric) String() string {
	if m < 0 || m >= metricCount {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// Label is the long, human-readable metric name.
func (m Metric) Label() string {
	if m < 0 || m >= metricCount {
		return m.String()
	}
	return metricLabels[m]
}

// ParseMetric accepts a short name in any case or a full label.
func ParseMetric(s string) (Metric, error) {
	v := strings.TrimSpace(s)
	for i := 0; i < metricCount; i++ {
		if strings.EqualFold(v, metricNames[i]) || strings.EqualFold(v, metricLabels[i]) {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q (use GHI, DNI or DHI)", s)
}

// Kind is the inferred type of a column.
type Kind int

const (
	KindUnknown Kind = iota // every value missing
	KindNumeric
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Column is one named column of a table.
type Column struct {
	Name string
	Kind Kind
}

// Observation is a single immutable row. Metric values use NaN for missing.
type Observation struct {
	Source  SourceID
	metrics [metricCount]float64
	fields  map[string]string
}

// Value returns the metric value, NaN when missing.
func (o Observation) Value(m Metric) float64 {
	if m < 0 || m >= metricCount {
		return math.NaN()
	}
	return o.metrics[m]
}

// Field returns a passthrough column value. Columns the row's source lacks
// read as missing.
func (o Observation) Field(name string) (string, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// Table is the content of one source after loading.
type Table struct {
	Source  SourceID
	Columns []Column
	Rows    []Observation
}

// Dataset is the unified, tagged collection of observations from all sources.
// It is never mutated after construction and is safe to share.
type Dataset struct {
	columns []Column
	sources []SourceID
	rows    []Observation
}

// Len reports the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Row returns the i-th observation.
func (d *Dataset) Row(i int) Observation { return d.rows[i] }

// Rows returns a copy of the observation slice.
func (d *Dataset) Rows() []Observation {
	if d == nil {
		return nil
	}
	out := make([]Observation, len(d.rows))
	copy(out, d.rows)
	return out
}

// Columns returns the column union in first-seen order.
func (d *Dataset) Columns() []Column {
	if d == nil {
		return nil
	}
	out := make([]Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// Sources returns the sources the dataset was built from, in input order.
func (d *Dataset) Sources() []SourceID {
	if d == nil {
		return nil
	}
	out := make([]SourceID, len(d.sources))
	copy(out, d.sources)
	return out
}

// Values collects the non-missing values of metric m for one source.
func (d *Dataset) Values(src SourceID, m Metric) []float64 {
	if d == nil {
		return nil
	}
	var out []float64
	for _, r := range d.rows {
		if r.Source != src {
			continue
		}
		if v := r.Value(m); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// CountBySource returns the number of rows per source.
func (d *Dataset) CountBySource() map[SourceID]int {
	out := map[SourceID]int{}
	if d == nil {
		return out
	}
	for _, r := range d.rows {
		out[r.Source]++
	}
	return out
}
