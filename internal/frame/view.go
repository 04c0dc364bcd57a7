package frame

import "math"

// View provides indexed, read-only access to a table.
// Filters and groupings return new views over the same parent rows.
type View interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string
	MeasureKeys() []string
}

// Record is one row of a loosely typed table (remote sources).
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// Records is a table of Record rows with a fixed column order.
type Records struct {
	rows    []Record
	dimKeys []string
	mesKeys []string
}

// NewRecords wraps rows as a View. Column order is taken from dimKeys and
// mesKeys so previews stay stable across runs.
func NewRecords(rows []Record, dimKeys, mesKeys []string) *Records {
	return &Records{rows: rows, dimKeys: dimKeys, mesKeys: mesKeys}
}

func (r *Records) Len() int { return len(r.rows) }

func (r *Records) Dimension(i int, key string) string {
	if i < 0 || i >= len(r.rows) {
		return ""
	}
	return r.rows[i].Dimensions[key]
}

// Measure returns NaN for a missing cell.
func (r *Records) Measure(i int, key string) float64 {
	if i < 0 || i >= len(r.rows) {
		return math.NaN()
	}
	v, ok := r.rows[i].Measures[key]
	if !ok {
		return math.NaN()
	}
	return v
}

func (r *Records) DimensionKeys() []string { return r.dimKeys }
func (r *Records) MeasureKeys() []string   { return r.mesKeys }

// subView is a selection of parent rows by index. No row data is copied.
type subView struct {
	parent  View
	indices []int
}

func newSubView(parent View, indices []int) View {
	// Flatten nested selections so lookups stay one hop deep.
	if sv, ok := parent.(*subView); ok {
		flat := make([]int, len(indices))
		for i, idx := range indices {
			flat[i] = sv.indices[idx]
		}
		return &subView{parent: sv.parent, indices: flat}
	}
	return &subView{parent: parent, indices: indices}
}

func (v *subView) Len() int { return len(v.indices) }

func (v *subView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *subView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return math.NaN()
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *subView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *subView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// Adapter binds typed structs to a View through accessor functions.
//
//	adapter := frame.NewAdapter[Job]().
//	    Dimension("role", func(j Job) string { return j.Role }).
//	    Measure("salary", func(j Job) float64 { return j.Salary })
//	view := adapter.Bind(jobs)
type Adapter[T any] struct {
	dimOrder []string
	mesOrder []string
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
}

func NewAdapter[T any]() *Adapter[T] {
	return &Adapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) float64),
	}
}

func (a *Adapter[T]) Dimension(key string, fn func(T) string) *Adapter[T] {
	if _, ok := a.dims[key]; !ok {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

func (a *Adapter[T]) Measure(key string, fn func(T) float64) *Adapter[T] {
	if _, ok := a.meas[key]; !ok {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Bind returns a View holding a reference to data.
func (a *Adapter[T]) Bind(data []T) View {
	return &typedView[T]{data: data, a: a}
}

type typedView[T any] struct {
	data []T
	a    *Adapter[T]
}

func (v *typedView[T]) Len() int { return len(v.data) }

func (v *typedView[T]) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.a.dims[key]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *typedView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) {
		return math.NaN()
	}
	if fn, ok := v.a.meas[key]; ok {
		return fn(v.data[i])
	}
	return math.NaN()
}

func (v *typedView[T]) DimensionKeys() []string { return v.a.dimOrder }
func (v *typedView[T]) MeasureKeys() []string   { return v.a.mesOrder }

// HasDimension reports whether key is a dimension column of view.
func HasDimension(view View, key string) bool {
	for _, k := range view.DimensionKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// HasMeasure reports whether key is a measure column of view.
func HasMeasure(view View, key string) bool {
	for _, k := range view.MeasureKeys() {
		if k == key {
			return true
		}
	}
	return false
}
