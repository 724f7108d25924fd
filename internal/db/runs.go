package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run describes one classification session over a file or a live port.
type Run struct {
	ID           string
	Source       string // input path or serial port
	Capacity     int
	MaxAgeMillis int64
	MaxBacktrack int
	StartedAt    time.Time
	FinishedAt   *time.Time
	TotalRows    int
	LabelledRows int
	MatchedRows  int
}

// Prediction is one classified sample of a run.
type Prediction struct {
	RunID     string
	Millis    int64
	X, Y, Z   float64
	Actual    string
	Predicted string
	Rule      string
}

// CreateRun inserts run, assigning a new ID and start time when unset.
func (db *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := db.Exec(
		`INSERT INTO runs (run_id, source, capacity, max_age_millis, max_backtrack, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Capacity, run.MaxAgeMillis, run.MaxBacktrack, run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the finish time and the final counts of a run.
func (db *DB) FinishRun(runID string, total, labelled, matched int) error {
	res, err := db.Exec(
		`UPDATE runs SET finished_at = ?, total_rows = ?, labelled_rows = ?, matched_rows = ?
		 WHERE run_id = ?`,
		time.Now().UnixMilli(), total, labelled, matched, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	var (
		run        Run
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := db.QueryRow(
		`SELECT run_id, source, capacity, max_age_millis, max_backtrack, started_at, finished_at,
		        total_rows, labelled_rows, matched_rows
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&run.ID, &run.Source, &run.Capacity, &run.MaxAgeMillis, &run.MaxBacktrack, &startedAt, &finishedAt,
		&run.TotalRows, &run.LabelledRows, &run.MatchedRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}

// RecordPrediction inserts a single prediction.
func (db *DB) RecordPrediction(p Prediction) error {
	_, err := db.Exec(insertPredictionSQL, p.RunID, p.Millis, p.X, p.Y, p.Z, p.Actual, p.Predicted, p.Rule)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

const insertPredictionSQL = `INSERT INTO predictions (run_id, millis, x, y, z, actual, predicted, rule)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// RecordPredictions inserts a batch of predictions in one transaction.
func (db *DB) RecordPredictions(ps []Prediction) error {
	if len(ps) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertPredictionSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		if _, err := stmt.Exec(p.RunID, p.Millis, p.X, p.Y, p.Z, p.Actual, p.Predicted, p.Rule); err != nil {
			return fmt.Errorf("failed to insert prediction at %d: %w", p.Millis, err)
		}
	}
	return tx.Commit()
}

// ListPredictions returns the predictions of a run in time order.
func (db *DB) ListPredictions(runID string) ([]Prediction, error) {
	rows, err := db.Query(
		`SELECT run_id, millis, x, y, z, actual, predicted, rule
		 FROM predictions WHERE run_id = ? ORDER BY millis, rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.RunID, &p.Millis, &p.X, &p.Y, &p.Z, &p.Actual, &p.Predicted, &p.Rule); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LabelCounts returns how often each label was predicted in a run.
func (db *DB) LabelCounts(runID string) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT predicted, COUNT(*) FROM predictions WHERE run_id = ? GROUP BY predicted`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
