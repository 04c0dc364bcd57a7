// Package chart turns views into render-ready chart payloads.
// It never draws; a frontend picks the widget from Config.Type.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"jobmarket-engine/internal/frame"
)

// Chart types.
const (
	TypeHistogram = "histogram"
	TypeBar       = "bar"
	TypeBox       = "box"
	TypeScatter   = "scatter"
)

var palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

type Config struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	XAxis  string   `json:"xAxis,omitempty"`
	YAxis  string   `json:"yAxis,omitempty"`
	Series []Series `json:"series"`
	Boxes  []Box    `json:"boxes,omitempty"`
	Empty  bool     `json:"empty"`
}

type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color,omitempty"`
	Points []Point `json:"points"`
}

// Point is a labelled (bar, histogram) or positioned (scatter) value.
type Point struct {
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Box is a five-number summary of one group.
type Box struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Histogram buckets measure into bins equal-width intervals.
func Histogram(view frame.View, measure string, bins int) Config {
	cfg := Config{Type: TypeHistogram, Title: "Distribution of " + label(measure), XAxis: label(measure), YAxis: "Count"}
	var vals []float64
	for _, v := range frame.Values(view, measure) {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 || bins <= 0 {
		cfg.Empty = true
		return cfg
	}

	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range vals {
		b := bins - 1
		if width > 0 {
			b = int((v - lo) / width)
			if b >= bins {
				b = bins - 1
			}
		}
		counts[b]++
	}

	points := make([]Point, bins)
	for i, c := range counts {
		start := lo + float64(i)*width
		points[i] = Point{
			Label: fmt.Sprintf("%s–%s", fmtNum(start), fmtNum(start+width)),
			X:     round2(start + width/2),
			Y:     float64(c),
		}
	}
	cfg.Series = []Series{{Name: label(measure), Color: palette[0], Points: points}}
	return cfg
}

// Bar renders one bar per group mean. Groups with an undefined mean are
// left out.
func Bar(groups []frame.Group, dimension, measure string) Config {
	cfg := Config{
		Type:  TypeBar,
		Title: "Average " + label(measure) + " by " + label(dimension),
		XAxis: label(dimension),
		YAxis: "Average " + label(measure),
	}
	points := make([]Point, 0, len(groups))
	for i, g := range groups {
		if !g.Mean.Defined {
			continue
		}
		points = append(points, Point{Label: g.Key, X: float64(i), Y: round2(g.Mean.Value)})
	}
	if len(points) == 0 {
		cfg.Empty = true
		return cfg
	}
	cfg.Series = []Series{{Name: "Average " + label(measure), Color: palette[1], Points: points}}
	return cfg
}

// BoxPlot summarizes measure per dimension value.
func BoxPlot(view frame.View, dimension, measure string) Config {
	cfg := Config{
		Type:  TypeBox,
		Title: label(measure) + " by " + label(dimension),
		XAxis: label(dimension),
		YAxis: label(measure),
	}
	for _, g := range frame.GroupBy(view, dimension) {
		vals := frame.Values(g.View, measure)
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		cfg.Boxes = append(cfg.Boxes, Box{
			Label:  g.Key,
			Count:  len(vals),
			Min:    round2(vals[0]),
			Q1:     round2(stat.Quantile(0.25, stat.Empirical, vals, nil)),
			Median: round2(stat.Quantile(0.5, stat.Empirical, vals, nil)),
			Q3:     round2(stat.Quantile(0.75, stat.Empirical, vals, nil)),
			Max:    round2(vals[len(vals)-1]),
		})
	}
	cfg.Empty = len(cfg.Boxes) == 0
	return cfg
}

// Scatter plots y against x, one series per colorBy value (or one series
// when colorBy is empty). At most limit points are emitted per chart.
func Scatter(view frame.View, x, y, colorBy string, limit int) Config {
	cfg := Config{Type: TypeScatter, Title: label(y) + " vs " + label(x), XAxis: label(x), YAxis: label(y)}

	order := []string{}
	series := map[string][]Point{}
	emitted := 0
	for i := 0; i < view.Len(); i++ {
		if limit > 0 && emitted >= limit {
			break
		}
		xv, yv := view.Measure(i, x), view.Measure(i, y)
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		key := label(y)
		if colorBy != "" {
			key = view.Dimension(i, colorBy)
		}
		if _, ok := series[key]; !ok {
			order = append(order, key)
		}
		series[key] = append(series[key], Point{X: xv, Y: round2(yv)})
		emitted++
	}
	if emitted == 0 {
		cfg.Empty = true
		return cfg
	}

	sort.Strings(order)
	for i, k := range order {
		cfg.Series = append(cfg.Series, Series{Name: k, Color: palette[i%len(palette)], Points: series[k]})
	}
	return cfg
}

func label(key string) string {
	if key == "" {
		return ""
	}
	out := []byte(key)
	upper := true
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
		upper = false
	}
	return string(out)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func fmtNum(v float64) string { return strconv.FormatFloat(round2(v), 'f', -1, 64) }
