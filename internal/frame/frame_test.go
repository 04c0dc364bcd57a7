package frame_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"jobmarket-engine/internal/frame"
)

type row struct {
	Role   string
	Mode   string
	Years  int
	Salary float64
}

var adapter = frame.NewAdapter[row]().
	Dimension("role", func(r row) string { return r.Role }).
	Dimension("mode", func(r row) string { return r.Mode }).
	Measure("years", func(r row) float64 { return float64(r.Years) }).
	Measure("salary", func(r row) float64 { return r.Salary })

func sample() frame.View {
	return adapter.Bind([]row{
		{"Data Scientist", "Remote", 3, 120},
		{"Data Analyst", "Hybrid", 1, 70},
		{"Data Scientist", "On-site", 8, 140},
		{"ML Engineer", "Remote", 5, 150},
		{"Data Analyst", "Remote", 2, 80},
	})
}

func TestFilter_Membership(t *testing.T) {
	v := sample()

	ds := frame.Filter(v, frame.Filters{Dimensions: map[string][]string{"role": {"Data Scientist"}}})
	require.Equal(t, 2, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		require.Equal(t, "Data Scientist", ds.Dimension(i, "role"))
	}

	matched, rest := frame.Split(v, frame.Filters{Dimensions: map[string][]string{"role": {"Data Scientist"}}})
	require.Equal(t, v.Len(), matched.Len()+rest.Len())
	for i := 0; i < rest.Len(); i++ {
		require.NotEqual(t, "Data Scientist", rest.Dimension(i, "role"))
	}
}

func TestFilter_OrWithinAndAcross(t *testing.T) {
	v := sample()
	f := frame.Filters{
		Dimensions: map[string][]string{
			"role": {"Data Scientist", "Data Analyst"},
			"mode": {"Remote"},
		},
	}
	got := frame.Filter(v, f)
	require.Equal(t, 2, got.Len())
	require.Equal(t, []string{"Data Analyst", "Data Scientist"}, frame.Unique(got, "role"))
}

func TestFilter_Range(t *testing.T) {
	v := sample()
	got := frame.Filter(v, frame.Filters{Ranges: map[string]frame.Range{"years": {Min: 2, Max: 5}}})
	require.Equal(t, 3, got.Len())
}

func TestFilter_EmptySelectionMatchesNothing(t *testing.T) {
	v := sample()
	got := frame.Filter(v, frame.Filters{Dimensions: map[string][]string{"role": {}}})
	require.Equal(t, 0, got.Len())

	all := frame.Filter(v, frame.Filters{})
	require.Equal(t, v.Len(), all.Len())
}

func TestFilter_NestedViewsDoNotMutateParent(t *testing.T) {
	v := sample()
	remote := frame.Filter(v, frame.Filters{Dimensions: map[string][]string{"mode": {"Remote"}}})
	ds := frame.Filter(remote, frame.Filters{Dimensions: map[string][]string{"role": {"Data Scientist"}}})

	require.Equal(t, 1, ds.Len())
	require.Equal(t, 120.0, ds.Measure(0, "salary"))
	require.Equal(t, 5, v.Len())
	require.Equal(t, 3, remote.Len())
}

func TestSummarize(t *testing.T) {
	s := frame.Summarize(sample(), "salary")
	require.Equal(t, 5, s.Count)
	require.True(t, s.Mean.Defined)
	require.InDelta(t, 112, s.Mean.Value, 1e-9)
	require.Equal(t, 70.0, s.Min.Value)
	require.Equal(t, 150.0, s.Max.Value)
}

func TestSummarize_EmptyIsNoData(t *testing.T) {
	empty := frame.Filter(sample(), frame.Filters{Dimensions: map[string][]string{"role": {"Astronaut"}}})

	s := frame.Summarize(empty, "salary")
	require.True(t, s.Empty())
	require.Equal(t, 0, s.Count)
	require.False(t, s.Mean.Defined)
	require.False(t, s.Min.Defined)
	require.False(t, s.Max.Defined)
	require.Equal(t, frame.NoData, s.Mean.String())

	mode := frame.Mode(empty, "role")
	require.False(t, mode.Defined)
	require.Equal(t, frame.NoData, mode.String())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"measure":"salary","count":0,"mean":null,"min":null,"max":null}`, string(b))

	require.Empty(t, frame.GroupMean(empty, "role", "salary"))
	require.Empty(t, frame.Unique(empty, "role"))
}

func TestMode_TieBreaksAlphabetically(t *testing.T) {
	m := frame.Mode(sample(), "role")
	require.True(t, m.Defined)
	require.Equal(t, "Data Analyst", m.Value)

	m = frame.Mode(sample(), "mode")
	require.Equal(t, "Remote", m.Value)
}

func TestGroupMean(t *testing.T) {
	groups := frame.GroupMean(sample(), "role", "salary")
	require.Len(t, groups, 3)
	require.Equal(t, "Data Analyst", groups[0].Key)
	require.Equal(t, 2, groups[0].Count)
	require.InDelta(t, 75, groups[0].Mean.Value, 1e-9)
	require.Equal(t, "Data Scientist", groups[1].Key)
	require.InDelta(t, 130, groups[1].Mean.Value, 1e-9)
	require.Equal(t, "ML Engineer", groups[2].Key)
}

func TestRecords_MissingMeasureIsNaN(t *testing.T) {
	v := frame.NewRecords([]frame.Record{
		{Dimensions: map[string]string{"species": "setosa"}, Measures: map[string]float64{"petal": 1.4}},
		{Dimensions: map[string]string{"species": "virginica"}, Measures: map[string]float64{}},
	}, []string{"species"}, []string{"petal"})

	require.True(t, math.IsNaN(v.Measure(1, "petal")))
	require.Equal(t, 1, frame.Summarize(v, "petal").Count)
	require.Equal(t, 1, frame.DropMissing(v, "petal").Len())
}

func TestProjectAndHead(t *testing.T) {
	v := sample()
	tbl := frame.Project(v, []string{"role", "salary"}, 2)
	require.Equal(t, []string{"role", "salary"}, tbl.Columns)
	require.Equal(t, [][]string{{"Data Scientist", "120"}, {"Data Analyst", "70"}}, tbl.Rows)
	require.Equal(t, 5, tbl.Total)

	head := frame.Head(v, frame.PreviewRows)
	require.Len(t, head.Rows, 5)
	require.Equal(t, []string{"role", "mode", "years", "salary"}, head.Columns)
}

func TestFiltersKey_Stable(t *testing.T) {
	a := frame.Filters{Dimensions: map[string][]string{"role": {"b", "a"}, "mode": {"x"}}}
	b := frame.Filters{Dimensions: map[string][]string{"mode": {"x"}, "role": {"a", "b"}}}
	require.Equal(t, a.Key(), b.Key())
	require.Equal(t, "", frame.Filters{}.Key())
}

func TestRange_OpenBoundsAsNull(t *testing.T) {
	r := frame.Range{Min: 3, Max: math.Inf(1)}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"min":3,"max":null}`, string(b))

	var back frame.Range
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, 3.0, back.Min)
	require.True(t, math.IsInf(back.Max, 1))
}
