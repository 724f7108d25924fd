package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/rollstate/internal/fsutil"
	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/motion"
)

// Processor classifies one sample at a time. *motion.Detector implements it.
type Processor interface {
	ProcessSample(millis int64, x, y, z float64) (motion.Label, error)
}

// ruleReporter is implemented by processors that expose the rule behind the
// last label.
type ruleReporter interface {
	LastResult() motion.ClassificationResult
}

// Result pairs an input row with its predicted label.
type Result struct {
	Row       Row
	Predicted motion.Label
	Rule      motion.Rule
}

// Sink receives every result in input order.
type Sink interface {
	Record(Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Result) error

// Record calls f(res).
func (f SinkFunc) Record(res Result) error { return f(res) }

// Runner replays rows through a Processor.
type Runner struct {
	Processor Processor
	Sinks     []Sink
	Units     string // acceleration units of the input; empty means g
}

// NewRunner creates a runner forwarding results to sinks.
func NewRunner(p Processor, sinks ...Sink) *Runner {
	return &Runner{Processor: p, Sinks: sinks}
}

// Run reads every row from in, classifies it, writes the prediction file to
// out and returns the accuracy summary. It stops early when ctx is done.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (*Summary, error) {
	reader := NewReader(in)
	reader.SetUnits(r.Units)
	writer, err := NewWriter(out)
	if err != nil {
		return nil, err
	}

	summary := NewSummary()
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		res, err := r.process(row)
		if err != nil {
			return summary, err
		}
		monitoring.Logf("Predicted state: %s; actual state: %s", res.Predicted, row.Actual)
		monitoring.Debugf("line %d: %s via rule %s", row.Line, res.Predicted, res.Rule)

		if err := writer.Write(res); err != nil {
			return summary, fmt.Errorf("line %d: failed to write prediction: %w", row.Line, err)
		}
		for _, sink := range r.Sinks {
			if err := sink.Record(res); err != nil {
				return summary, fmt.Errorf("line %d: sink failed: %w", row.Line, err)
			}
		}
		summary.Add(row.Actual, res.Predicted)
	}

	if err := writer.Flush(); err != nil {
		return summary, fmt.Errorf("failed to flush predictions: %w", err)
	}
	return summary, nil
}

func (r *Runner) process(row Row) (Result, error) {
	label, err := r.Processor.ProcessSample(row.Millis, row.X, row.Y, row.Z)
	if err != nil {
		return Result{}, fmt.Errorf("line %d: %w", row.Line, err)
	}
	res := Result{Row: row, Predicted: label}
	if rr, ok := r.Processor.(ruleReporter); ok {
		res.Rule = rr.LastResult().Rule
	}
	return res, nil
}

// RunFiles opens inPath and writes predictions to outPath on fsys.
func (r *Runner) RunFiles(ctx context.Context, fsys fsutil.FileSystem, inPath, outPath string) (*Summary, error) {
	in, err := fsys.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := fsys.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	summary, runErr := r.Run(ctx, in, out)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close output: %w", err)
	}
	return summary, runErr
}
