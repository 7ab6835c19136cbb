package export

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes records as a YAML sequence.
type YAMLWriter struct {
	recordBuffer
	w *bufio.Writer
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		recordBuffer: newRecordBuffer(),
		w:            bufio.NewWriter(w),
	}
}

// Flush writes the buffered records. Later calls do nothing.
func (w *YAMLWriter) Flush() error {
	if !w.markFlushed() {
		return nil
	}
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)
	if err := encoder.Encode(w.records); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
