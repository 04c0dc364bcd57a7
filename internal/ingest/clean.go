package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"jobmarket-engine/internal/frame"
)

var errMalformed = errors.New("malformed value")

// cleaner turns raw string rows into records. Any measure or range cell
// that does not parse makes the row missing, and the row is dropped.
type cleaner struct {
	src   Source
	index map[string]int
}

func newCleaner(src Source, header []string) (*cleaner, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[snakeCase(h)] = i
	}
	for _, groups := range [][]string{src.Dimensions, src.Measures, src.Ranges} {
		for _, col := range groups {
			if _, ok := index[col]; !ok {
				return nil, fmt.Errorf("source %q: column %q not found in %v", src.Name, col, header)
			}
		}
	}
	return &cleaner{src: src, index: index}, nil
}

func (c *cleaner) record(row []string) (frame.Record, bool) {
	rec := frame.Record{
		Dimensions: make(map[string]string, len(c.src.Dimensions)),
		Measures:   make(map[string]float64, len(c.src.Measures)+3*len(c.src.Ranges)),
	}
	cell := func(col string) (string, bool) {
		i := c.index[col]
		if i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	for _, d := range c.src.Dimensions {
		v, ok := cell(d)
		if !ok {
			return rec, false
		}
		rec.Dimensions[d] = v
	}
	for _, m := range c.src.Measures {
		v, ok := cell(m)
		if !ok {
			return rec, false
		}
		f, err := ParseNumber(v)
		if err != nil {
			return rec, false
		}
		rec.Measures[m] = f
	}
	for _, r := range c.src.Ranges {
		v, ok := cell(r)
		if !ok {
			return rec, false
		}
		lo, hi, err := ParseRange(v)
		if err != nil {
			return rec, false
		}
		rec.Measures[r+"_min"] = lo
		rec.Measures[r+"_max"] = hi
		rec.Measures[r+"_mid"] = (lo + hi) / 2
	}
	return rec, true
}

func (c *cleaner) table(rows [][]string) (*Table, error) {
	t := &Table{Source: c.src.Name, Read: len(rows)}
	out := make([]frame.Record, 0, len(rows))
	for _, row := range rows {
		rec, ok := c.record(row)
		if !ok {
			t.Dropped++
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("source %q: %w (read %d, dropped %d)", c.src.Name, ErrNoRows, t.Read, t.Dropped)
	}
	t.View = frame.NewRecords(out, c.src.Dimensions, c.src.MeasureKeys())
	return t, nil
}

// ParseNumber parses a numeric cell, accepting thousands separators and a
// leading currency sign. Empty and NA cells are malformed.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "?":
		return 0, fmt.Errorf("%w: %q", errMalformed, s)
	}
	// ParseFloat also accepts "inf", "Infinity" and overflows like "1e999".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q", errMalformed, s)
	}
	return f, nil
}

// ParseRange parses "low-high" salary-style ranges such as "$80K-$120K" or
// "80,000 – 120,000". Anything that does not split into exactly two numeric
// parts is malformed.
func ParseRange(s string) (lo, hi float64, err error) {
	s = strings.NewReplacer("–", "-", "—", "-", " to ", "-").Replace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: range %q", errMalformed, s)
	}
	if lo, err = parseAmount(parts[0]); err != nil {
		return 0, 0, err
	}
	if hi, err = parseAmount(parts[1]); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult, s = 1e3, s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		mult, s = 1e6, s[:len(s)-1]
	}
	f, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f*mult, 0) {
		return 0, fmt.Errorf("%w: %q", errMalformed, s)
	}
	return f * mult, nil
}
