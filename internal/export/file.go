package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/scholarscrape/internal/logger"
	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

// File exports records to a file on disk. It implements scholar.Exporter.
type File struct {
	Path   string
	Format Format // derived from Path when empty
	Sheet  string // spreadsheet worksheet name
}

var _ scholar.Exporter = (*File)(nil)

// NewFile creates a file exporter. format may be empty to use the extension
// of path.
func NewFile(path, format, sheet string) (*File, error) {
	f := &File{Path: path, Sheet: sheet}
	var err error
	if format != "" {
		f.Format, err = ParseFormat(format)
	} else {
		f.Format, err = FormatFromPath(path)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Export writes records to Path and returns the absolute path written.
// Stream formats are written to a temporary file in the same directory and
// renamed into place, so a failed export leaves any previous file intact.
func (e *File) Export(ctx context.Context, records []scholar.Record) (string, error) {
	format := e.Format
	if format == "" {
		var err error
		if format, err = FormatFromPath(e.Path); err != nil {
			return "", err
		}
	}

	path, err := filepath.Abs(e.Path)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	logger.Info("exporting results", "format", format, "records", len(records), "path", path)

	if format == FormatSQLite {
		err = writeSQLite(ctx, path, records)
	} else {
		err = writeStream(path, format, e.Sheet, records)
	}
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(path); err == nil {
		logger.Info("results saved",
			"records", humanize.Comma(int64(len(records))),
			"size", humanize.Bytes(uint64(info.Size())),
			"path", path)
	}
	return path, nil
}

func writeStream(path string, format Format, sheet string, records []scholar.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w, err := NewWriter(tmp, format, WithSheet(sheet))
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", format, err)
	}
	if err := w.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, records []scholar.Record) error {
	w, err := NewSQLiteWriter(ctx, path)
	if err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		_ = w.db.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing sqlite: %w", err)
	}
	return nil
}
