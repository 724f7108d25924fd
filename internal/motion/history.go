package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a buffer is configured with a
	// non-positive capacity or a negative maximum age.
	ErrInvalidConfig = errors.New("invalid history configuration")

	// ErrNotInitialized is returned when samples are inserted before the
	// buffer has been initialized.
	ErrNotInitialized = errors.New("history buffer not initialized")
)

// HistoryBuffer maintains a sliding window of samples bounded both by count
// and by age relative to the newest sample. Samples are kept oldest first.
// A HistoryBuffer is not safe for concurrent use.
type HistoryBuffer struct {
	samples      []Sample
	capacity     int
	maxAgeMillis int64
	initialized  bool
}

// NewHistoryBuffer creates an initialized buffer with the given bounds.
func NewHistoryBuffer(capacity int, maxAgeMillis int64) (*HistoryBuffer, error) {
	hb := &HistoryBuffer{}
	if err := hb.Initialize(capacity, maxAgeMillis); err != nil {
		return nil, err
	}
	return hb, nil
}

// Initialize resets the buffer to empty with the given bounds. Calling it
// again discards all history.
func (hb *HistoryBuffer) Initialize(capacity int, maxAgeMillis int64) error {
	if capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidConfig, capacity)
	}
	if maxAgeMillis < 0 {
		return fmt.Errorf("%w: max age must be non-negative, got %d", ErrInvalidConfig, maxAgeMillis)
	}

	// One spare slot so the append before capacity eviction never reallocates.
	hb.samples = make([]Sample, 0, capacity+1)
	hb.capacity = capacity
	hb.maxAgeMillis = maxAgeMillis
	hb.initialized = true
	return nil
}

// Insert appends s to the tail, then evicts the oldest sample if the buffer
// is over capacity, then evicts every sample older than the max age relative
// to s. Survivors keep their relative order.
func (hb *HistoryBuffer) Insert(s Sample) error {
	if !hb.initialized {
		return ErrNotInitialized
	}

	hb.samples = append(hb.samples, s)
	if len(hb.samples) > hb.capacity {
		n := copy(hb.samples, hb.samples[1:])
		hb.samples = hb.samples[:n]
	}

	// Every entry is checked, not just a prefix.
	kept := hb.samples[:0]
	for _, old := range hb.samples {
		if s.Time-old.Time > hb.maxAgeMillis {
			continue
		}
		kept = append(kept, old)
	}
	hb.samples = kept
	return nil
}

// Snapshot returns a copy of the buffered samples from oldest to newest.
func (hb *HistoryBuffer) Snapshot() []Sample {
	if len(hb.samples) == 0 {
		return nil
	}
	out := make([]Sample, len(hb.samples))
	copy(out, hb.samples)
	return out
}

// Len returns the current number of buffered samples.
func (hb *HistoryBuffer) Len() int {
	return len(hb.samples)
}

// Capacity returns the maximum number of samples that can be stored.
func (hb *HistoryBuffer) Capacity() int {
	return hb.capacity
}

// MaxAgeMillis returns the configured maximum sample age.
func (hb *HistoryBuffer) MaxAgeMillis() int64 {
	return hb.maxAgeMillis
}

// Initialized reports whether Initialize has succeeded at least once.
func (hb *HistoryBuffer) Initialized() bool {
	return hb.initialized
}
