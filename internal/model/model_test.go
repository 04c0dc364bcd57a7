package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"jobmarket-engine/internal/frame"
)

func linearData(n int) Dataset {
	d := Dataset{Features: []string{"experience", "skill_score"}}
	for i := 0; i < n; i++ {
		e := float64(i % 20)
		s := float64(50 + (i*7)%50)
		d.X = append(d.X, []float64{e, s})
		d.Y = append(d.Y, 40+2*e+0.3*s)
	}
	return d
}

// clusters builds three well separated classes in two dimensions.
func clusters(n int, seed uint64) Dataset {
	r := rand.New(rand.NewPCG(seed, seed))
	centers := map[string][2]float64{"setosa": {1, 1}, "versicolor": {5, 5}, "virginica": {9, 1}}
	names := []string{"setosa", "versicolor", "virginica"}
	d := Dataset{Features: []string{"a", "b"}}
	for i := 0; i < n; i++ {
		c := names[i%3]
		ctr := centers[c]
		d.X = append(d.X, []float64{ctr[0] + r.NormFloat64()*0.5, ctr[1] + r.NormFloat64()*0.5})
		d.Labels = append(d.Labels, c)
	}
	return d
}

func TestFitLinear_RecoversCoefficients(t *testing.T) {
	m, err := FitLinear(linearData(200))
	require.NoError(t, err)
	require.InDelta(t, 40, m.Intercept, 1e-8)
	require.InDelta(t, 2, m.Coef[0], 1e-8)
	require.InDelta(t, 0.3, m.Coef[1], 1e-8)

	p, err := m.Predict([]float64{10, 80})
	require.NoError(t, err)
	require.Equal(t, KindLinear, p.Kind)
	require.InDelta(t, 84, p.Value, 1e-6)
	require.Equal(t, "84.00", p.Text())
}

func TestFitLinear_ConstantFeatureIsSingular(t *testing.T) {
	d := Dataset{
		Features: []string{"experience", "skill_score"},
		X:        [][]float64{{5, 60}, {5, 70}, {5, 80}, {5, 90}},
		Y:        []float64{100, 103, 106, 109},
	}
	_, err := FitLinear(d)
	require.ErrorIs(t, err, ErrSingular)
}

func TestFitLinear_Errors(t *testing.T) {
	_, err := FitLinear(Dataset{Features: []string{"x"}})
	require.ErrorIs(t, err, ErrEmptyTraining)

	m, err := FitLinear(linearData(50))
	require.NoError(t, err)

	_, err = m.Predict([]float64{1})
	require.ErrorIs(t, err, ErrFeatureWidth)

	_, err = m.Predict([]float64{1, math.NaN()})
	require.ErrorIs(t, err, ErrNonFinite)
}

func TestForestRegressor_Deterministic(t *testing.T) {
	d := linearData(300)
	p := Params{Trees: 20, MaxDepth: 6, Seed: 7}

	a, err := FitForestRegressor(d, p)
	require.NoError(t, err)
	b, err := FitForestRegressor(d, p)
	require.NoError(t, err)

	for _, x := range [][]float64{{0, 50}, {10, 75}, {19, 99}} {
		pa, err := a.Predict(x)
		require.NoError(t, err)
		pb, err := b.Predict(x)
		require.NoError(t, err)
		require.Equal(t, pa.Value, pb.Value)
	}
}

func TestForestRegressor_Approximates(t *testing.T) {
	d := linearData(400)
	f, err := FitForestRegressor(d, Params{Trees: 30, MaxDepth: 10, Seed: 1})
	require.NoError(t, err)

	p, err := f.Predict([]float64{10, 75})
	require.NoError(t, err)
	// truth: 40 + 20 + 22.5
	require.InDelta(t, 82.5, p.Value, 6)
}

func TestForestClassifier_SeparatesClusters(t *testing.T) {
	f, err := FitForestClassifier(clusters(300, 3), Params{Trees: 25, Seed: 11})
	require.NoError(t, err)
	require.Equal(t, []string{"setosa", "versicolor", "virginica"}, f.Classes())

	cases := map[string][]float64{
		"setosa":     {1, 1.2},
		"versicolor": {5.1, 4.9},
		"virginica":  {8.8, 0.9},
	}
	for want, x := range cases {
		p, err := f.Predict(x)
		require.NoError(t, err)
		require.Equal(t, want, p.Label)
		require.Equal(t, want, p.Text())
	}
}

func TestFit_Dispatch(t *testing.T) {
	_, err := Fit("svm", linearData(10), Params{})
	require.ErrorIs(t, err, ErrUnknownKind)

	m, err := Fit(KindForestClassifier, clusters(30, 1), Params{Trees: 3})
	require.NoError(t, err)
	require.Equal(t, KindForestClassifier, m.Kind())
	require.Equal(t, []string{"a", "b"}, m.Features())
}

func TestFromView_SkipsMissing(t *testing.T) {
	v := frame.NewRecords([]frame.Record{
		{Dimensions: map[string]string{"species": "setosa"}, Measures: map[string]float64{"a": 1, "b": 2}},
		{Dimensions: map[string]string{"species": "virginica"}, Measures: map[string]float64{"a": 3}},
		{Dimensions: map[string]string{"species": ""}, Measures: map[string]float64{"a": 3, "b": 4}},
	}, []string{"species"}, []string{"a", "b"})

	cls := FromView(v, []string{"a", "b"}, "species", true)
	require.Equal(t, 1, cls.Len())
	require.Equal(t, []string{"setosa"}, cls.Labels)

	reg := FromView(v, []string{"a"}, "b", false)
	require.Equal(t, 2, reg.Len())
	require.Equal(t, []float64{2, 4}, reg.Y)
}
