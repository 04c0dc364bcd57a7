package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	require.Equal(t, 1, v)
}

func TestPredictions_InsertAndList(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	salary := 151.25
	first, err := InsertPrediction(ctx, db.Pool, Prediction{
		Board: "jobs", Session: "s1", Kind: "linear",
		Inputs: map[string]float64{"experience": 10, "skill_score": 80},
		Value:  &salary, Text: "151.25",
		CreatedAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	_, err = InsertPrediction(ctx, db.Pool, Prediction{
		Board: "iris", Session: "s1", Kind: "forest_classifier",
		Inputs: map[string]float64{"petal_length": 1.4},
		Label:  "Iris-setosa", Text: "Iris-setosa",
	})
	require.NoError(t, err)

	all, err := ListPredictions(ctx, db.Pool, ListPredictionsOpts{Window: "24h"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "iris", all[0].Board, "newest first")
	require.Nil(t, all[0].Value)

	jobs, err := ListPredictions(ctx, db.Pool, ListPredictionsOpts{Board: "jobs"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].Value)
	require.Equal(t, 151.25, *jobs[0].Value)
	require.Equal(t, 80.0, jobs[0].Inputs["skill_score"])
	require.WithinDuration(t, first.CreatedAt, jobs[0].CreatedAt, time.Second)

	none, err := ListPredictions(ctx, db.Pool, ListPredictionsOpts{Session: "other"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCleanupOldPredictions(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	_, err := InsertPrediction(ctx, db.Pool, Prediction{Board: "tips", Kind: "linear", Text: "old", CreatedAt: time.Now().AddDate(0, 0, -40)})
	require.NoError(t, err)
	_, err = InsertPrediction(ctx, db.Pool, Prediction{Board: "tips", Kind: "linear", Text: "new"})
	require.NoError(t, err)

	n, err := CleanupOldPredictions(ctx, db.Pool, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	left, err := ListPredictions(ctx, db.Pool, ListPredictionsOpts{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "new", left[0].Text)
}
