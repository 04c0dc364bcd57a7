package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Range is an inclusive numeric bound on a measure.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type rangeJSON struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// MarshalJSON writes an open bound as null.
func (r Range) MarshalJSON() ([]byte, error) {
	var out rangeJSON
	if !math.IsInf(r.Min, 0) {
		out.Min = &r.Min
	}
	if !math.IsInf(r.Max, 0) {
		out.Max = &r.Max
	}
	return json.Marshal(out)
}

func (r *Range) UnmarshalJSON(b []byte) error {
	var in rangeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.Min, r.Max = math.Inf(-1), math.Inf(1)
	if in.Min != nil {
		r.Min = *in.Min
	}
	if in.Max != nil {
		r.Max = *in.Max
	}
	return nil
}

func (r Range) contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Filters select rows of a view.
//
// Values are OR-combined within a dimension and AND-combined across
// dimensions and ranges. A dimension present with an empty selection
// matches nothing; an absent dimension is unrestricted.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions,omitempty"`
	Ranges     map[string]Range    `json:"ranges,omitempty"`
}

// IsEmpty reports whether the filters restrict nothing.
func (f Filters) IsEmpty() bool {
	return len(f.Dimensions) == 0 && len(f.Ranges) == 0
}

// Key returns a stable string identifying the filter set.
func (f Filters) Key() string {
	if f.IsEmpty() {
		return ""
	}
	var parts []string
	for dim, vals := range f.Dimensions {
		vs := append([]string(nil), vals...)
		sort.Strings(vs)
		parts = append(parts, "f."+dim+"="+strings.Join(vs, "|"))
	}
	for m, r := range f.Ranges {
		parts = append(parts, fmt.Sprintf("r.%s=%g:%g", m, r.Min, r.Max))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Filter returns a view of the rows matching f. The parent is not modified.
func Filter(view View, f Filters) View {
	matched, _ := Split(view, f)
	return matched
}

// Split partitions view into rows matching f and the complement.
func Split(view View, f Filters) (matched, rest View) {
	n := view.Len()
	if f.IsEmpty() {
		return view, newSubView(view, nil)
	}

	sets := make(map[string]map[string]bool, len(f.Dimensions))
	for dim, allowed := range f.Dimensions {
		set := make(map[string]bool, len(allowed))
		for _, v := range allowed {
			set[v] = true
		}
		sets[dim] = set
	}

	in := make([]int, 0, n)
	var out []int
	for i := 0; i < n; i++ {
		if rowMatches(view, i, sets, f.Ranges) {
			in = append(in, i)
		} else {
			out = append(out, i)
		}
	}
	return newSubView(view, in), newSubView(view, out)
}

func rowMatches(view View, i int, sets map[string]map[string]bool, ranges map[string]Range) bool {
	for dim, set := range sets {
		if !set[view.Dimension(i, dim)] {
			return false
		}
	}
	for m, r := range ranges {
		if !r.contains(view.Measure(i, m)) {
			return false
		}
	}
	return true
}

// DropMissing returns a view without rows whose listed measures are NaN.
func DropMissing(view View, measures ...string) View {
	idx := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		ok := true
		for _, m := range measures {
			if math.IsNaN(view.Measure(i, m)) {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return newSubView(view, idx)
}
