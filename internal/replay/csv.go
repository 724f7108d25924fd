// Package replay feeds recorded accelerometer CSV files through a motion
// detector and writes the predicted label next to each input row.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/units"
)

// OutputHeader is the header row written to every prediction file.
var OutputHeader = []string{"millis", "x", "y", "z", "state", "predicted"}

// Row is one parsed input record.
type Row struct {
	Line   int // 1-based line in the input, header included
	Millis int64
	X      float64
	Y      float64
	Z      float64
	Actual string // empty when the input has no label column

	raw []string
}

// Sample returns the row as a motion sample.
func (r Row) Sample() motion.Sample {
	return motion.NewSample(r.Millis, r.X, r.Y, r.Z)
}

// Reader parses rows of "millis,x,y,z[,state]" after a header row.
type Reader struct {
	csv           *csv.Reader
	line          int
	headerSkipped bool
	scale         float64
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return &Reader{csv: cr, scale: 1}
}

// SetUnits sets the acceleration units of the x, y and z columns. Parsed
// values are converted to g; the raw text echoed by Writer is unchanged.
func (r *Reader) SetUnits(unit string) {
	r.scale = units.ScaleToGravity(unit)
}

// Next returns the next data row, or io.EOF when the input is exhausted.
func (r *Reader) Next() (Row, error) {
	if !r.headerSkipped {
		r.headerSkipped = true
		if _, err := r.read(); err != nil {
			if errors.Is(err, io.EOF) {
				return Row{}, io.EOF
			}
			return Row{}, fmt.Errorf("failed to read header: %w", err)
		}
	}

	record, err := r.read()
	if err != nil {
		return Row{}, err
	}
	row, err := parseRow(r.line, record)
	if err != nil {
		return Row{}, err
	}
	row.X *= r.scale
	row.Y *= r.scale
	row.Z *= r.scale
	return row, nil
}

func (r *Reader) read() ([]string, error) {
	record, err := r.csv.Read()
	if err != nil {
		return nil, err
	}
	r.line++
	return record, nil
}

func parseRow(line int, record []string) (Row, error) {
	if len(record) < 4 {
		return Row{}, fmt.Errorf("line %d: expected at least 4 fields, got %d", line, len(record))
	}

	row := Row{Line: line, raw: record}
	var err error
	if row.Millis, err = strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64); err != nil {
		return Row{}, fmt.Errorf("line %d: failed to parse millis: %w", line, err)
	}
	if row.X, err = strconv.ParseFloat(strings.TrimSpace(record[1]), 64); err != nil {
		return Row{}, fmt.Errorf("line %d: failed to parse x: %w", line, err)
	}
	if row.Y, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err != nil {
		return Row{}, fmt.Errorf("line %d: failed to parse y: %w", line, err)
	}
	if row.Z, err = strconv.ParseFloat(strings.TrimSpace(record[3]), 64); err != nil {
		return Row{}, fmt.Errorf("line %d: failed to parse z: %w", line, err)
	}
	if len(record) > 4 {
		row.Actual = strings.TrimSpace(record[4])
	}
	return row, nil
}

// Writer writes prediction rows with the raw input text preserved.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer over w and writes the header row.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &Writer{csv: cw}, nil
}

// Write appends one prediction row.
func (w *Writer) Write(res Result) error {
	row := res.Row
	var fields []string
	if len(row.raw) >= 4 {
		fields = append(fields, row.raw[:4]...)
	} else {
		fields = []string{
			strconv.FormatInt(row.Millis, 10),
			strconv.FormatFloat(row.X, 'g', -1, 64),
			strconv.FormatFloat(row.Y, 'g', -1, 64),
			strconv.FormatFloat(row.Z, 'g', -1, 64),
		}
	}
	fields = append(fields, row.Actual, string(res.Predicted))
	return w.csv.Write(fields)
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
