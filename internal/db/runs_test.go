package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/replay"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_MigratesToLatest(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Running again is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var cols int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('predictions') WHERE name = 'rule'`).Scan(&cols))
	assert.Equal(t, 0, cols)
}

func TestOpenDB_FreshHasNoVersion(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)

	run := &Run{Source: "roll.csv", Capacity: 10, MaxAgeMillis: 10000, MaxBacktrack: 10}
	require.NoError(t, db.CreateRun(run))
	require.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "roll.csv", got.Source)
	assert.Nil(t, got.FinishedAt)
	assert.Equal(t, run.StartedAt.UnixMilli(), got.StartedAt.UnixMilli())

	require.NoError(t, db.FinishRun(run.ID, 5, 4, 3))
	got, err = db.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 5, got.TotalRows)
	assert.Equal(t, 4, got.LabelledRows)
	assert.Equal(t, 3, got.MatchedRows)
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = db.FinishRun("missing", 1, 1, 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestPredictions(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Source: "live", Capacity: 3, MaxAgeMillis: 100, StartedAt: time.Unix(100, 0)}
	require.NoError(t, db.CreateRun(run))

	want := []Prediction{
		{RunID: run.ID, Millis: 0, Z: 1, Actual: "OnFace", Predicted: "OnFace", Rule: "gravity_band"},
		{RunID: run.ID, Millis: 10, Z: 1, Actual: "OnFace", Predicted: "OnFace", Rule: "stillness"},
	}
	require.NoError(t, db.RecordPredictions(want))
	require.NoError(t, db.RecordPrediction(Prediction{RunID: run.ID, Millis: 20, Z: 2.2, Predicted: "Rolling", Rule: "jerk"}))
	want = append(want, Prediction{RunID: run.ID, Millis: 20, Z: 2.2, Predicted: "Rolling", Rule: "jerk"})

	got, err := db.ListPredictions(run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("predictions mismatch (-want +got):\n%s", diff)
	}

	counts, err := db.LabelCounts(run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"OnFace": 2, "Rolling": 1}, counts)

	require.NoError(t, db.RecordPredictions(nil))
}

func TestPredictionRecorder(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Source: "in.csv", Capacity: 10, MaxAgeMillis: 10000}
	require.NoError(t, db.CreateRun(run))

	rec := NewPredictionRecorder(db, run.ID, 2)
	summary := replay.NewSummary()
	for i, label := range []motion.Label{motion.LabelOnFace, motion.LabelOnFace, motion.LabelRolling} {
		res := replay.Result{
			Row:       replay.Row{Millis: int64(i * 10), Z: 1, Actual: "OnFace"},
			Predicted: label,
			Rule:      motion.RuleGravityBand,
		}
		require.NoError(t, rec.Record(res))
		summary.Add(res.Row.Actual, res.Predicted)
	}

	// First batch of two was flushed on the second record
	got, err := db.ListPredictions(run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, rec.Finish(summary))
	got, err = db.ListPredictions(run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	stored, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalRows)
	assert.Equal(t, 2, stored.MatchedRows)
}
