package db

import (
	"github.com/banshee-data/rollstate/internal/replay"
)

// DefaultBatchSize is the number of predictions buffered before a flush.
const DefaultBatchSize = 500

// PredictionRecorder buffers replay results for a run and writes them in
// batches. It implements replay.Sink.
type PredictionRecorder struct {
	db        *DB
	runID     string
	batchSize int
	pending   []Prediction
}

// NewPredictionRecorder creates a recorder for runID.
func NewPredictionRecorder(db *DB, runID string, batchSize int) *PredictionRecorder {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &PredictionRecorder{
		db:        db,
		runID:     runID,
		batchSize: batchSize,
		pending:   make([]Prediction, 0, batchSize),
	}
}

// Record buffers res and flushes when the batch is full.
func (r *PredictionRecorder) Record(res replay.Result) error {
	r.pending = append(r.pending, Prediction{
		RunID:     r.runID,
		Millis:    res.Row.Millis,
		X:         res.Row.X,
		Y:         res.Row.Y,
		Z:         res.Row.Z,
		Actual:    res.Row.Actual,
		Predicted: string(res.Predicted),
		Rule:      string(res.Rule),
	})
	if len(r.pending) >= r.batchSize {
		return r.Flush()
	}
	return nil
}

// Flush writes any buffered predictions.
func (r *PredictionRecorder) Flush() error {
	if err := r.db.RecordPredictions(r.pending); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

// Finish flushes pending predictions and stores the summary counts.
func (r *PredictionRecorder) Finish(summary *replay.Summary) error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.db.FinishRun(r.runID, summary.Rows, summary.Labelled, summary.Matched)
}
