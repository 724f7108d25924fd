package motion

import "fmt"

// Detector owns one history buffer and classifies every sample inserted into
// it. Use one Detector per physical device. A Detector is not safe for
// concurrent use; callers must serialize ProcessSample.
type Detector struct {
	history      HistoryBuffer
	classifier   *Classifier
	maxBacktrack int // 0 means use the buffer capacity

	lastResult ClassificationResult
}

// NewDetector creates an uninitialized detector using th.
func NewDetector(th Thresholds) *Detector {
	return &Detector{classifier: NewClassifier(th)}
}

// SetMaxBacktrack overrides the window used by the averaged rules.
// Zero or a negative value restores the default of the buffer capacity.
func (d *Detector) SetMaxBacktrack(n int) {
	if n < 0 {
		n = 0
	}
	d.maxBacktrack = n
}

// MaxBacktrack returns the effective backtrack window.
func (d *Detector) MaxBacktrack() int {
	if d.maxBacktrack > 0 {
		return d.maxBacktrack
	}
	return d.history.Capacity()
}

// Initialize (re)configures the history bounds and discards all samples.
func (d *Detector) Initialize(capacity int, maxAgeMillis int64) error {
	if err := d.history.Initialize(capacity, maxAgeMillis); err != nil {
		return fmt.Errorf("initialize detector: %w", err)
	}
	d.lastResult = ClassificationResult{}
	return nil
}

// ProcessSample inserts the sample and classifies the resulting window.
func (d *Detector) ProcessSample(millis int64, x, y, z float64) (Label, error) {
	if err := d.history.Insert(NewSample(millis, x, y, z)); err != nil {
		return LabelUnknown, err
	}
	d.lastResult = d.classifier.Evaluate(d.history.Snapshot(), d.MaxBacktrack())
	return d.lastResult.Label, nil
}

// LastResult returns the full result of the most recent ProcessSample call.
func (d *Detector) LastResult() ClassificationResult {
	return d.lastResult
}

// Snapshot returns the current history window, oldest first.
func (d *Detector) Snapshot() []Sample {
	return d.history.Snapshot()
}
