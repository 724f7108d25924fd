package replay

import (
	"sort"

	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/motion"
)

// Summary accumulates prediction counts for a replay.
type Summary struct {
	Rows      int
	Labelled  int // rows with a non-empty actual label
	Matched   int // labelled rows where prediction equals actual
	Predicted map[motion.Label]int
	Confusion map[string]map[motion.Label]int // actual -> predicted -> count
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		Predicted: make(map[motion.Label]int),
		Confusion: make(map[string]map[motion.Label]int),
	}
}

// Add records one prediction.
func (s *Summary) Add(actual string, predicted motion.Label) {
	s.Rows++
	s.Predicted[predicted]++
	if actual == "" {
		return
	}

	s.Labelled++
	if actual == string(predicted) {
		s.Matched++
	}
	row, ok := s.Confusion[actual]
	if !ok {
		row = make(map[motion.Label]int)
		s.Confusion[actual] = row
	}
	row[predicted]++
}

// Accuracy returns the fraction of labelled rows predicted correctly,
// or 0 when no row carried a label.
func (s *Summary) Accuracy() float64 {
	if s.Labelled == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Labelled)
}

// Log writes the summary through monitoring.Logf.
func (s *Summary) Log() {
	s.LogTo(monitoring.Logf)
}

// LogTo writes the summary through logf.
func (s *Summary) LogTo(logf func(format string, v ...interface{})) {
	logf("Processed %d rows; %d/%d labelled rows matched (%.1f%%)",
		s.Rows, s.Matched, s.Labelled, 100*s.Accuracy())

	actuals := make([]string, 0, len(s.Confusion))
	for actual := range s.Confusion {
		actuals = append(actuals, actual)
	}
	sort.Strings(actuals)

	for _, actual := range actuals {
		row := s.Confusion[actual]
		for _, predicted := range motion.Labels {
			if n := row[predicted]; n > 0 {
				logf("  actual=%s predicted=%s count=%d", actual, predicted, n)
			}
		}
	}
}
