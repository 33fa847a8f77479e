package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Options controls how source tables are parsed.
type Options struct {
	// Delimiter for the table. If 0, picked from the file extension or sniffed
	// from the header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
	// MissingValues lists the tokens read as the missing-value sentinel.
	// Comparison is exact after trimming spaces; the empty string is always missing.
	MissingValues []string
}

// DefaultOptions returns the parsing defaults used for the regional tables.
func DefaultOptions() Options {
	return Options{
		MissingValues: []string{"NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "-"},
	}
}

// Source binds a SourceID to its backing table.
type Source struct {
	ID   SourceID
	Path string
}

// Loader reads source tables relative to a data directory.
type Loader struct {
	Dir string
	Opt Options
}

// NewLoader returns a loader rooted at dir.
func NewLoader(dir string, opt Options) *Loader {
	return &Loader{Dir: dir, Opt: opt}
}

func (l *Loader) resolve(p string) string {
	if filepath.IsAbs(p) || l.Dir == "" {
		return p
	}
	return filepath.Join(l.Dir, p)
}

// Load locates and parses the backing table of src. Every returned
// observation is tagged with src.ID.
func (l *Loader) Load(src Source) (*Table, error) {
	path := l.resolve(src.Path)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Source: src.ID, Path: path, Err: err}
		}
		return nil, fmt.Errorf("open source %q: %w", src.ID, err)
	}
	defer f.Close()

	opt := l.Opt
	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	t, err := ReadTable(f, src.ID, opt)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", string(src.ID)).Str("path", path).Int("rows", len(t.Rows)).Msg("loaded source table")
	return t, nil
}

// LoadAll loads every source in order and aggregates them. Any failure aborts
// the whole load; no partial dataset is returned.
func (l *Loader) LoadAll(srcs []Source) (*Dataset, error) {
	tables := make([]*Table, 0, len(srcs))
	for _, s := range srcs {
		t, err := l.Load(s)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return Aggregate(tables...)
}

// ReadTable parses a delimited table from r and tags each row with id.
func ReadTable(r io.Reader, id SourceID, opt Options) (*Table, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SourceSchemaError{Source: id, Reason: "table is empty"}
		}
		return nil, fmt.Errorf("source %q: read header: %w", id, err)
	}
	ncol := len(header)

	missing := map[string]struct{}{"": {}}
	for _, m := range opt.MissingValues {
		missing[strings.TrimSpace(m)] = struct{}{}
	}

	// per-column role: metric index or -1 for passthrough
	metricAt := make([]int, ncol)
	names := make([]string, ncol)
	seen := map[string]bool{}
	var found [metricCount]bool
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if seen[name] {
			return nil, &SourceSchemaError{Source: id, Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = true
		names[i] = name
		metricAt[i] = -1
		clean, _ := splitUnits(name)
		for m := 0; m < metricCount; m++ {
			if strings.EqualFold(clean, metricNames[m]) && !found[m] {
				metricAt[i] = m
				found[m] = true
				names[i] = metricNames[m]
			}
		}
	}
	if !found[GHI] && !found[DNI] && !found[DHI] {
		return nil, &SourceSchemaError{Source: id, Reason: "none of the metric columns GHI, DNI, DHI is present"}
	}

	type colAcc struct {
		numCnt int
		txtCnt int
	}
	accs := make([]colAcc, ncol)
	t := &Table{Source: id}
	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("source %q: read row %d: %w", id, line+1, err)
		}
		line++
		obs := Observation{Source: id}
		for m := range obs.metrics {
			obs.metrics[m] = math.NaN()
		}
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if _, isMissing := missing[v]; isMissing {
				continue
			}
			x, numeric := parseNumeric(v, opt)
			if m := metricAt[j]; m >= 0 {
				if !numeric {
					return nil, &SourceSchemaError{Source: id, Reason: fmt.Sprintf("column %s, line %d: non-numeric value %q", names[j], line, v)}
				}
				obs.metrics[m] = x
				continue
			}
			if numeric {
				accs[j].numCnt++
			} else {
				accs[j].txtCnt++
			}
			if obs.fields == nil {
				obs.fields = make(map[string]string, ncol)
			}
			obs.fields[names[j]] = v
		}
		t.Rows = append(t.Rows, obs)
	}

	t.Columns = make([]Column, ncol)
	for j := range names {
		kind := KindUnknown
		switch {
		case metricAt[j] >= 0:
			kind = KindNumeric
		case accs[j].txtCnt > 0:
			kind = KindText
		case accs[j].numCnt > 0:
			kind = KindNumeric
		}
		t.Columns[j] = Column{Name: names[j], Kind: kind}
	}
	return t, nil
}

// sniffDelimiter inspects the header line without consuming it.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if i := strings.IndexByte(string(head), '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(string(head), string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	// Decide decimal separator
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // e.g., GHI (kWh/m²/day)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // e.g., GHI [W/m²]
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
