package board

import (
	"context"
	"fmt"
	"strings"

	"jobmarket-engine/internal/chart"
	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/session"
)

const (
	histogramBins = 20
	scatterLimit  = 500
	maxRowsPage   = 1000
)

// Tile is one metric shown above the charts. Value reads "no data" when
// the selection leaves nothing to summarize.
type Tile struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Defined bool   `json:"defined"`
}

// Input describes one prediction slider, bounded by the full table.
type Input struct {
	Name    string       `json:"name"`
	Label   string       `json:"label"`
	Min     frame.Scalar `json:"min"`
	Max     frame.Scalar `json:"max"`
	Default frame.Scalar `json:"default"`
}

type Overview struct {
	Board      Info                     `json:"board"`
	Rows       int                      `json:"rows"`
	Seed       int64                    `json:"seed,omitempty"`
	Total      int                      `json:"total"`
	Selected   int                      `json:"selected"`
	Filters    frame.Filters            `json:"filters"`
	Tiles      []Tile                   `json:"tiles"`
	Summaries  []frame.Summary          `json:"summaries"`
	Unique     map[string][]string      `json:"unique"`
	GroupMeans map[string][]frame.Group `json:"groupMeans"`
	Charts     []chart.Config           `json:"charts"`
	Preview    frame.Table              `json:"preview"`
	Inputs     []Input                  `json:"inputs,omitempty"`
}

// selected is a board's full table and the rows a query keeps.
type selected struct {
	cfg   config.Config
	board config.BoardConfig
	info  Info
	full  frame.View
	rows  frame.View
}

// selection loads the full table and applies q's filters. Filtering on a
// column the board does not have is an error rather than an empty result.
func (s *Service) selection(ctx context.Context, sess *session.Session, name string, q Query) (selected, error) {
	c := s.cfg()
	b, err := lookup(c, name)
	if err != nil {
		return selected{}, err
	}
	full, err := s.table(ctx, sess, c, b, q)
	if err != nil {
		return selected{}, err
	}
	for dim := range q.Filters.Dimensions {
		if !frame.HasDimension(full, dim) {
			return selected{}, fmt.Errorf("%w: dimension %q", ErrUnknownColumn, dim)
		}
	}
	for m := range q.Filters.Ranges {
		if !frame.HasMeasure(full, m) {
			return selected{}, fmt.Errorf("%w: measure %q", ErrUnknownColumn, m)
		}
	}
	return selected{cfg: c, board: b, info: describe(c, b), full: full, rows: frame.Filter(full, q.Filters)}, nil
}

// Overview computes every readout of a board for the current selection.
func (s *Service) Overview(ctx context.Context, sess *session.Session, name string, q Query) (Overview, error) {
	st, err := s.selection(ctx, sess, name, q)
	if err != nil {
		return Overview{}, err
	}
	info, full, sel := st.info, st.full, st.rows

	ov := Overview{
		Board:      info,
		Total:      full.Len(),
		Selected:   sel.Len(),
		Filters:    q.Filters,
		Unique:     make(map[string][]string, len(info.Dimensions)),
		GroupMeans: make(map[string][]frame.Group, len(info.Dimensions)),
		Preview:    frame.Head(sel, frame.PreviewRows),
	}
	if st.board.Source == config.SourceGenerator {
		ov.Rows, ov.Seed = q.Rows, q.Seed
	}

	for _, m := range info.Measures {
		ov.Summaries = append(ov.Summaries, frame.Summarize(sel, m))
	}
	for _, d := range info.Dimensions {
		ov.Unique[d] = frame.Unique(full, d)
	}

	value := valueMeasure(info)
	for _, d := range info.Dimensions {
		if value != "" && (d != info.Target || !info.Classifies()) {
			ov.GroupMeans[d] = frame.GroupMean(sel, d, value)
		}
	}

	ov.Tiles = tiles(info, sel)
	ov.Charts = charts(info, sel)
	ov.Inputs = inputs(info, full)
	return ov, nil
}

// Rows returns up to limit selected rows as display strings.
func (s *Service) Rows(ctx context.Context, sess *session.Session, name string, q Query, limit int) (frame.Table, error) {
	st, err := s.selection(ctx, sess, name, q)
	if err != nil {
		return frame.Table{}, err
	}
	if limit <= 0 || limit > maxRowsPage {
		limit = maxRowsPage
	}
	return frame.Project(st.rows, frame.Columns(st.rows), limit), nil
}

// Values returns the distinct values of dim across the full table, for
// populating filter widgets.
func (s *Service) Values(ctx context.Context, sess *session.Session, name string, q Query, dim string) ([]string, error) {
	st, err := s.selection(ctx, sess, name, Query{Rows: q.Rows, Seed: q.Seed})
	if err != nil {
		return nil, err
	}
	if !frame.HasDimension(st.full, dim) {
		return nil, fmt.Errorf("%w: dimension %q", ErrUnknownColumn, dim)
	}
	return frame.Unique(st.full, dim), nil
}

// valueMeasure is the measure charts and group means are drawn over: the
// target for regression boards, else the first model feature or measure.
func valueMeasure(info Info) string {
	if !info.Classifies() && info.Target != "" {
		return info.Target
	}
	if info.Model != nil && len(info.Model.Features) > 0 {
		return info.Model.Features[0]
	}
	if len(info.Measures) > 0 {
		return info.Measures[0]
	}
	return ""
}

func firstDimension(info Info) string {
	for _, d := range info.Dimensions {
		if d != info.Target {
			return d
		}
	}
	return info.Target
}

func tiles(info Info, sel frame.View) []Tile {
	out := []Tile{{Label: "Rows", Value: fmt.Sprint(sel.Len()), Defined: true}}

	if info.Classifies() {
		mode := frame.Mode(sel, info.Target)
		out = append(out, Tile{Label: "Most common " + title(info.Target), Value: mode.String(), Defined: mode.Defined})
		return out
	}

	sum := frame.Summarize(sel, info.Target)
	for _, t := range []struct {
		label string
		v     frame.Scalar
	}{
		{"Average " + title(info.Target), sum.Mean},
		{"Lowest " + title(info.Target), sum.Min},
		{"Highest " + title(info.Target), sum.Max},
	} {
		out = append(out, Tile{Label: t.label, Value: t.v.String(), Defined: t.v.Defined})
	}
	return out
}

func charts(info Info, sel frame.View) []chart.Config {
	value := valueMeasure(info)
	if value == "" {
		return nil
	}
	if info.Classifies() {
		out := []chart.Config{
			chart.Histogram(sel, value, histogramBins),
			chart.Bar(frame.GroupMean(sel, info.Target, value), info.Target, value),
			chart.BoxPlot(sel, info.Target, value),
		}
		if info.Model != nil && len(info.Model.Features) > 1 {
			out = append(out, chart.Scatter(sel, info.Model.Features[0], info.Model.Features[1], info.Target, scatterLimit))
		}
		return out
	}

	dim := firstDimension(info)
	out := []chart.Config{chart.Histogram(sel, value, histogramBins)}
	if dim != "" {
		out = append(out,
			chart.Bar(frame.GroupMean(sel, dim, value), dim, value),
			chart.BoxPlot(sel, dim, value),
		)
	}
	if info.Model != nil && len(info.Model.Features) > 0 {
		out = append(out, chart.Scatter(sel, info.Model.Features[0], value, dim, scatterLimit))
	}
	return out
}

func inputs(info Info, full frame.View) []Input {
	if info.Model == nil {
		return nil
	}
	out := make([]Input, 0, len(info.Model.Features))
	for _, f := range info.Model.Features {
		sum := frame.Summarize(full, f)
		out = append(out, Input{Name: f, Label: title(f), Min: sum.Min, Max: sum.Max, Default: sum.Mean})
	}
	return out
}

// title turns a snake_case column into words: "skill_score" -> "Skill Score".
func title(col string) string {
	words := strings.Fields(strings.ReplaceAll(col, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
