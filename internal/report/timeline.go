// Package report renders the predicted labels of a run as a static PNG plot
// and an interactive HTML chart.
package report

import (
	"errors"
	"math"
	"sync"

	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/replay"
)

// ErrEmptyTimeline is returned when rendering a timeline with no points.
var ErrEmptyTimeline = errors.New("timeline has no points")

// Point is one classified sample on the timeline.
type Point struct {
	Millis    int64
	Magnitude float64 // |a| in g
	Actual    string
	Predicted motion.Label
}

// Timeline collects classified samples for plotting. It is safe for
// concurrent use and implements replay.Sink.
type Timeline struct {
	mu     sync.Mutex
	title  string
	points []Point
}

// NewTimeline creates an empty timeline.
func NewTimeline(title string) *Timeline {
	return &Timeline{title: title}
}

// Add appends a classified sample.
func (t *Timeline) Add(s motion.Sample, actual string, predicted motion.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, Point{
		Millis:    s.Time,
		Magnitude: math.Sqrt(s.Measurements.NormSq()),
		Actual:    actual,
		Predicted: predicted,
	})
}

// Record adds a replay result.
func (t *Timeline) Record(res replay.Result) error {
	t.Add(res.Row.Sample(), res.Row.Actual, res.Predicted)
	return nil
}

// Points returns a copy of the collected points.
func (t *Timeline) Points() []Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// Len returns the number of collected points.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.points)
}

// Title returns the timeline title.
func (t *Timeline) Title() string {
	return t.title
}

// labelIndex maps a label onto its position in motion.Labels, used as the
// y value of the label series.
func labelIndex(l motion.Label) int {
	for i, known := range motion.Labels {
		if known == l {
			return i
		}
	}
	return len(motion.Labels) - 1
}
