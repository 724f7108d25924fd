package serialsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/timeutil"
	"github.com/banshee-data/rollstate/internal/units"
)

// Source turns a line-oriented byte stream into motion samples. Lines are
// either "millis,x,y,z" or "x,y,z"; the latter are stamped with the
// milliseconds elapsed on the clock since Run started.
type Source struct {
	r     io.ReadCloser
	clock timeutil.Clock
	scale float64

	skipped int
}

// NewSource creates a source over r. A nil clock uses the wall clock.
func NewSource(r io.ReadCloser, clock timeutil.Clock) *Source {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Source{r: r, clock: clock, scale: 1}
}

// SetUnits sets the acceleration units the sensor reports in. Samples are
// converted to g before they reach the handler.
func (s *Source) SetUnits(unit string) {
	s.scale = units.ScaleToGravity(unit)
}

// Skipped returns the number of malformed lines dropped so far.
func (s *Source) Skipped() int {
	return s.skipped
}

// Close closes the underlying reader.
func (s *Source) Close() error {
	return s.r.Close()
}

// Run scans lines until EOF or ctx is done, calling handle for every parsed
// sample. An error from handle stops the scan and is returned.
func (s *Source) Run(ctx context.Context, handle func(motion.Sample) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scan := bufio.NewScanner(s.r)
	watch := timeutil.StartStopwatch(s.clock)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return fmt.Errorf("serial read failed: %w", err)
				default:
					return nil
				}
			}

			sample, ok, err := ParseLine(line, watch.ElapsedMillis())
			if err != nil {
				s.skipped++
				monitoring.Logf("serialsource: skipping line %q: %v", line, err)
				continue
			}
			if !ok {
				continue
			}
			if s.scale != 1 {
				m := sample.Measurements
				sample = motion.NewSample(sample.Time, m.X*s.scale, m.Y*s.scale, m.Z*s.scale)
			}
			if err := handle(sample); err != nil {
				return err
			}
		}
	}
}

// ParseLine parses one sensor line. It reports ok=false for blank lines and
// '#' comments. Three-field lines take their timestamp from nowMillis.
func ParseLine(line string, nowMillis int64) (motion.Sample, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return motion.Sample{}, false, nil
	}

	fields := strings.Split(line, ",")
	millis := nowMillis
	switch len(fields) {
	case 3:
	case 4:
		v, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return motion.Sample{}, false, fmt.Errorf("failed to parse millis: %w", err)
		}
		millis = v
		fields = fields[1:]
	default:
		return motion.Sample{}, false, fmt.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}

	var axes [3]float64
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return motion.Sample{}, false, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		axes[i] = v
	}
	return motion.NewSample(millis, axes[0], axes[1], axes[2]), true, nil
}
