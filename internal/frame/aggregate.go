package frame

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// NoData is the display text for an undefined scalar.
const NoData = "no data"

// Scalar is a summary value that may be undefined (empty selection).
// Undefined scalars encode as JSON null.
type Scalar struct {
	Value   float64
	Defined bool
}

func defined(v float64) Scalar { return Scalar{Value: v, Defined: true} }

func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Scalar{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = defined(v)
	return nil
}

// Format renders the value with prec decimals, or NoData.
func (s Scalar) Format(prec int) string {
	if !s.Defined {
		return NoData
	}
	return strconv.FormatFloat(s.Value, 'f', prec, 64)
}

func (s Scalar) String() string { return s.Format(2) }

// Summary holds the scalar metrics of one measure over a view.
type Summary struct {
	Measure string `json:"measure"`
	Count   int    `json:"count"`
	Mean    Scalar `json:"mean"`
	Min     Scalar `json:"min"`
	Max     Scalar `json:"max"`
}

// Empty reports whether the summary was computed over zero rows.
func (s Summary) Empty() bool { return s.Count == 0 }

// Summarize computes count/mean/min/max of measure. Missing cells are
// skipped; with no values every scalar except Count is undefined.
func Summarize(view View, measure string) Summary {
	vals := Values(view, measure)
	out := Summary{Measure: measure, Count: len(vals)}
	if len(vals) == 0 {
		return out
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out.Mean = defined(stat.Mean(vals, nil))
	out.Min = defined(lo)
	out.Max = defined(hi)
	return out
}

// Values returns the non-missing values of measure in row order.
func Values(view View, measure string) []float64 {
	out := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		v := view.Measure(i, measure)
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Label is a categorical result that may be undefined.
type Label struct {
	Value   string
	Defined bool
}

func (l Label) MarshalJSON() ([]byte, error) {
	if !l.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

func (l Label) String() string {
	if !l.Defined {
		return NoData
	}
	return l.Value
}

// Mode returns the most frequent value of dimension. Ties go to the
// lexicographically smallest value. Undefined on an empty view.
func Mode(view View, dimension string) Label {
	counts := make(map[string]int)
	for i := 0; i < view.Len(); i++ {
		counts[view.Dimension(i, dimension)]++
	}
	if len(counts) == 0 {
		return Label{}
	}
	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return Label{Value: best, Defined: true}
}

// Group is one bucket of a group-by.
type Group struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Mean  Scalar `json:"mean"`
	View  View   `json:"-"`
}

// GroupBy splits view by dimension value, sorted by key.
func GroupBy(view View, dimension string) []Group {
	idx := make(map[string][]int)
	for i := 0; i < view.Len(); i++ {
		k := view.Dimension(i, dimension)
		idx[k] = append(idx[k], i)
	}
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, Group{Key: k, Count: len(idx[k]), View: newSubView(view, idx[k])})
	}
	return groups
}

// GroupMean returns the mean of measure per dimension value.
func GroupMean(view View, dimension, measure string) []Group {
	groups := GroupBy(view, dimension)
	for i := range groups {
		groups[i].Mean = Summarize(groups[i].View, measure).Mean
	}
	return groups
}

// Unique returns the sorted distinct non-empty values of dimension.
func Unique(view View, dimension string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < view.Len(); i++ {
		v := view.Dimension(i, dimension)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
