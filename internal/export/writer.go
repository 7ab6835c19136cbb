// Package export writes collected records to files.
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

// Format represents output format types.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatJSONL  Format = "jsonl"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{FormatXLSX, FormatCSV, FormatJSON, FormatJSONL, FormatYAML, FormatSQLite}

// ErrUnsupportedFormat is returned for an unknown format name or extension.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ErrFlushed is returned when records are written to a buffered writer after
// it has rendered its output.
var ErrFlushed = errors.New("writer already flushed")

// formatAliases are alternative names accepted by ParseFormat.
var formatAliases = map[string]Format{
	"yml":     FormatYAML,
	"db":      FormatSQLite,
	"sqlite3": FormatSQLite,
}

// ParseFormat parses a format name or one of its aliases ("yml", "db",
// "sqlite3").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch f {
	case FormatXLSX, FormatCSV, FormatJSON, FormatJSONL, FormatYAML, FormatSQLite:
		return f, nil
	}
	if alias, ok := formatAliases[string(f)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromPath derives the format from path's extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Writer handles record serialization.
type Writer interface {
	// Write outputs a single record.
	Write(r scholar.Record) error

	// WriteAll outputs multiple records.
	WriteAll(rs []scholar.Record) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
	sheet  string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithSheet names the worksheet of spreadsheet output.
func WithSheet(name string) WriterOption {
	return func(c *writerConfig) {
		if name != "" {
			c.sheet = name
		}
	}
}

// NewWriter creates a writer for the specified stream format. SQLite needs a
// file path; use NewSQLiteWriter for it.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
		sheet:  DefaultSheet,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatXLSX:
		return NewXLSXWriter(w, cfg.sheet), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// recordBuffer holds records for writers that render the whole document at
// once. The document is rendered by the first Flush only.
type recordBuffer struct {
	records []scholar.Record
	flushed bool
}

func newRecordBuffer() recordBuffer {
	return recordBuffer{records: make([]scholar.Record, 0)}
}

// Write buffers a record.
func (b *recordBuffer) Write(r scholar.Record) error {
	if b.flushed {
		return ErrFlushed
	}
	b.records = append(b.records, r)
	return nil
}

// WriteAll buffers records.
func (b *recordBuffer) WriteAll(rs []scholar.Record) error {
	if b.flushed {
		return ErrFlushed
	}
	b.records = append(b.records, rs...)
	return nil
}

// markFlushed reports whether the document still has to be rendered.
func (b *recordBuffer) markFlushed() bool {
	if b.flushed {
		return false
	}
	b.flushed = true
	return true
}
