// Package ingest fetches remote tables and cleans them into frame views.
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmarket-engine/internal/frame"
)

// Source formats.
const (
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// Built-in sources used by the default boards.
const (
	IrisURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/iris/iris.data"
	TipsURL = "https://raw.githubusercontent.com/mwaskom/seaborn-data/master/tips.csv"
)

var ErrNoRows = errors.New("no usable rows")

// Source describes one remote table and how to clean it.
type Source struct {
	Name   string
	URL    string
	Format string

	// Header reports whether the first row names the columns. When false,
	// Columns supplies the names in file order.
	Header  bool
	Columns []string

	Dimensions []string
	Measures   []string
	// Ranges are "low-high" text columns split into <col>_min, <col>_max
	// and <col>_mid measures.
	Ranges []string

	// Selector picks the table of an HTML page (default "table").
	Selector string
	// TokenAccount names a keychain entry holding a bearer token.
	TokenAccount string
	Timeout      time.Duration
	// Rate overrides the fetcher's per-host default when set.
	Rate *Rate
}

// MeasureKeys returns the measure columns a parsed table exposes.
func (s Source) MeasureKeys() []string {
	keys := append([]string(nil), s.Measures...)
	for _, r := range s.Ranges {
		keys = append(keys, r+"_min", r+"_max", r+"_mid")
	}
	return keys
}

// Table is a cleaned remote dataset.
type Table struct {
	Source  string
	View    *frame.Records
	Read    int
	Dropped int
}

// IrisSource is the headerless UCI iris file.
func IrisSource() Source {
	return Source{
		Name:       "iris",
		URL:        IrisURL,
		Format:     FormatCSV,
		Header:     false,
		Columns:    []string{"sepal_length", "sepal_width", "petal_length", "petal_width", "species"},
		Dimensions: []string{"species"},
		Measures:   []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
		Timeout:    15 * time.Second,
	}
}

// TipsSource is the restaurant tips sample table.
func TipsSource() Source {
	return Source{
		Name:       "tips",
		URL:        TipsURL,
		Format:     FormatCSV,
		Header:     true,
		Dimensions: []string{"sex", "smoker", "day", "time"},
		Measures:   []string{"total_bill", "tip", "size"},
		Timeout:    15 * time.Second,
	}
}

// Validate checks the source is fetchable and its columns are declared.
func (s Source) Validate() error {
	var errs []string
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		errs = append(errs, fmt.Sprintf("url %q must be http(s)", s.URL))
	}
	switch s.Format {
	case FormatCSV, FormatHTML:
	default:
		errs = append(errs, fmt.Sprintf("format %q must be csv or html", s.Format))
	}
	if !s.Header && len(s.Columns) == 0 {
		errs = append(errs, "columns are required when header is false")
	}
	if len(s.Dimensions)+len(s.Measures)+len(s.Ranges) == 0 {
		errs = append(errs, "no dimensions, measures or ranges declared")
	}
	if s.Rate != nil && s.Rate.PerSecond <= 0 {
		errs = append(errs, "requests_per_second must be > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("source %q: %s", s.Name, strings.Join(errs, "; "))
	}
	return nil
}

func snakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
