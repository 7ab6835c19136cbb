package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

// CSVWriter writes records as CSV with a header row.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (w *CSVWriter) writeHeader() error {
	if w.header {
		return nil
	}
	w.header = true
	return w.w.Write(scholar.Columns)
}

// Write writes a record row.
func (w *CSVWriter) Write(r scholar.Record) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.w.Write([]string{strconv.Itoa(r.Order), r.Title, r.Authors, r.Abstract, r.Link})
}

// WriteAll writes record rows.
func (w *CSVWriter) WriteAll(rs []scholar.Record) error {
	for _, r := range rs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the header if nothing else was written and flushes.
func (w *CSVWriter) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes the writer.
func (w *CSVWriter) Close() error {
	return w.Flush()
}
