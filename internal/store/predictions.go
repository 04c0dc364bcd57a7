package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Prediction is one served model prediction.
type Prediction struct {
	ID        int64              `json:"id"`
	Board     string             `json:"board"`
	Session   string             `json:"session"`
	Kind      string             `json:"kind"`
	Inputs    map[string]float64 `json:"inputs"`
	Filters   string             `json:"filters"`
	Value     *float64           `json:"value"`
	Label     string             `json:"label,omitempty"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"createdAt"`
}

type ListPredictionsOpts struct {
	Board   string
	Session string
	Window  string // 24h | 7d | all
	Limit   int
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS predictions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  board TEXT NOT NULL,
  session TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL,
  inputs TEXT NOT NULL DEFAULT '{}',
  filters TEXT NOT NULL DEFAULT '',
  value REAL,
  label TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_predictions_board_created
ON predictions(board, created_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertPrediction stores p and returns it with ID (and CreatedAt, when
// unset) filled in.
func InsertPrediction(ctx context.Context, db *sql.DB, p Prediction) (Prediction, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Second)
	inputs, err := json.Marshal(p.Inputs)
	if err != nil {
		return Prediction{}, err
	}

	var value sql.NullFloat64
	if p.Value != nil {
		value = sql.NullFloat64{Float64: *p.Value, Valid: true}
	}
	res, err := db.ExecContext(ctx, `
INSERT INTO predictions(board, session, kind, inputs, filters, value, label, text, created_at)
VALUES(?,?,?,?,?,?,?,?,?);`,
		p.Board, p.Session, p.Kind, string(inputs), p.Filters, value, p.Label, p.Text,
		p.CreatedAt.Format(timeLayout))
	if err != nil {
		return Prediction{}, fmt.Errorf("insert prediction: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return p, nil
}

// ListPredictions returns newest first.
func ListPredictions(ctx context.Context, db *sql.DB, opts ListPredictionsOpts) ([]Prediction, error) {
	if opts.Limit <= 0 || opts.Limit > 1000 {
		opts.Limit = 100
	}

	var where []string
	var args []any
	if opts.Board != "" {
		where = append(where, "board = ?")
		args = append(args, opts.Board)
	}
	if opts.Session != "" {
		where = append(where, "session = ?")
		args = append(args, opts.Session)
	}
	switch opts.Window {
	case "24h":
		where = append(where, "created_at >= datetime('now','-24 hours')")
	case "7d":
		where = append(where, "created_at >= datetime('now','-7 days')")
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT id, board, session, kind, inputs, filters, value, label, text, created_at
FROM predictions
%s
ORDER BY created_at DESC, id DESC
LIMIT ?;
`, clause)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Prediction{}
	for rows.Next() {
		var (
			p       Prediction
			inputs  string
			value   sql.NullFloat64
			created string
		)
		if err := rows.Scan(&p.ID, &p.Board, &p.Session, &p.Kind, &inputs, &p.Filters, &value, &p.Label, &p.Text, &created); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(inputs), &p.Inputs)
		if value.Valid {
			v := value.Float64
			p.Value = &v
		}
		p.CreatedAt, _ = time.ParseInLocation(timeLayout, created, time.UTC)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CleanupOldPredictions deletes history older than maxAge.
func CleanupOldPredictions(ctx context.Context, db *sql.DB, maxAge time.Duration) (deleted int64, err error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	res, err := db.ExecContext(ctx, `
DELETE FROM predictions
WHERE created_at < ?;
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old predictions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
