package export

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

// JSONWriter writes records as one JSON array.
type JSONWriter struct {
	recordBuffer
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		recordBuffer: newRecordBuffer(),
		w:            bufio.NewWriter(w),
		pretty:       pretty,
		indent:       indent,
	}
}

// Flush writes the buffered records as a JSON array, even when there is
// only one. Later calls do nothing.
func (w *JSONWriter) Flush() error {
	if !w.markFlushed() {
		return nil
	}
	var (
		output []byte
		err    error
	)
	if w.pretty {
		output, err = json.MarshalIndent(w.records, "", w.indent)
	} else {
		output, err = json.Marshal(w.records)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL), one record per line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes a record as a JSON line.
func (w *JSONLWriter) Write(r scholar.Record) error {
	output, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// WriteAll writes records as JSON lines.
func (w *JSONLWriter) WriteAll(rs []scholar.Record) error {
	for _, r := range rs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
