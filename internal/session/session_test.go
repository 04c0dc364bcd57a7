package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/model"
)

func TestMemo_ComputeOnceAndEvict(t *testing.T) {
	m := NewMemo[string, int](2)
	calls := 0
	get := func(k string, v int) int {
		got, err := m.Get(k, func() (int, error) { calls++; return v, nil })
		require.NoError(t, err)
		return got
	}

	require.Equal(t, 1, get("a", 1))
	require.Equal(t, 1, get("a", 99))
	require.Equal(t, 1, calls)

	get("b", 2)
	get("c", 3)
	require.Equal(t, 2, m.Len())
	_, ok := m.Peek("a")
	require.False(t, ok, "oldest entry evicted")
	v, ok := m.Peek("c")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	m := NewMemo[int, string](4)
	boom := errors.New("boom")
	_, err := m.Get(1, func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, m.Len())

	v, err := m.Get(1, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestSlot_RefitsOnlyOnKeyChange(t *testing.T) {
	var s Slot[string, int]
	fits := 0
	fit := func() (int, error) { fits++; return fits, nil }

	v, ran, err := s.Get("all", fit)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, 1, v)

	v, ran, _ = s.Get("all", fit)
	require.False(t, ran)
	require.Equal(t, 1, v)

	v, ran, _ = s.Get("role=Data Scientist", fit)
	require.True(t, ran)
	require.Equal(t, 2, v)

	s.Reset()
	_, ran, _ = s.Get("role=Data Scientist", fit)
	require.True(t, ran)
	require.Equal(t, 3, fits)
}

func TestManager_TouchAndSweep(t *testing.T) {
	m := NewManager(4)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	a, created := m.Touch("")
	require.True(t, created)
	require.NotEmpty(t, a.ID)

	again, created := m.Touch(a.ID)
	require.False(t, created)
	require.Same(t, a, again)

	other, created := m.Touch("not-a-session")
	require.True(t, created)
	require.NotEqual(t, "not-a-session", other.ID)
	require.NotSame(t, a.Model("jobs"), other.Model("jobs"))
	require.Same(t, a.Model("jobs"), a.Model("jobs"))

	clock = clock.Add(20 * time.Minute)
	m.Touch(a.ID)
	clock = clock.Add(20 * time.Minute)

	require.Equal(t, 1, m.Sweep(30*time.Minute))
	require.Equal(t, 1, m.Len())
	_, created = m.Touch(a.ID)
	require.False(t, created)
}

func TestSession_ModelSlotHoldsPredictor(t *testing.T) {
	s, _ := NewManager(1).Touch("")
	sl := s.Model("tips")
	p, ran, err := sl.Get("k", func() (model.Predictor, error) {
		return model.FitLinear(model.Dataset{
			Features: []string{"x"},
			X:        [][]float64{{1}, {2}, {3}},
			Y:        []float64{2, 4, 6},
		})
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, model.KindLinear, p.Kind())
}

func TestManager_SetMaxDatasets(t *testing.T) {
	mgr := NewManager(3)
	old, _ := mgr.Touch("")
	for _, k := range []string{"a", "b", "c"} {
		_, err := old.Datasets.Get(k, func() (frame.View, error) { return frame.NewRecords(nil, nil, nil), nil })
		require.NoError(t, err)
	}

	mgr.SetMaxDatasets(1)
	require.Equal(t, 1, old.Datasets.Len(), "existing caches are trimmed")
	_, ok := old.Datasets.Peek("c")
	require.True(t, ok, "newest entry survives")

	fresh, _ := mgr.Touch("")
	for _, k := range []string{"x", "y"} {
		_, err := fresh.Datasets.Get(k, func() (frame.View, error) { return frame.NewRecords(nil, nil, nil), nil })
		require.NoError(t, err)
	}
	require.Equal(t, 1, fresh.Datasets.Len())
}
