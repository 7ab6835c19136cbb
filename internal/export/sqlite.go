package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	"order"  INTEGER PRIMARY KEY,
	title    TEXT NOT NULL,
	authors  TEXT NOT NULL DEFAULT '',
	abstract TEXT NOT NULL DEFAULT '',
	link     TEXT NOT NULL DEFAULT ''
);`

// SQLiteWriter stores records in the results table of a SQLite database.
// Opening the writer empties the table; records are committed on Flush.
type SQLiteWriter struct {
	ctx     context.Context
	db      *sql.DB
	records []scholar.Record
	closed  bool
}

// NewSQLiteWriter opens or creates the database at path.
func NewSQLiteWriter(ctx context.Context, path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, resultsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create results table: %w", err)
	}
	return &SQLiteWriter{ctx: ctx, db: db}, nil
}

// Write buffers a record.
func (w *SQLiteWriter) Write(r scholar.Record) error {
	w.records = append(w.records, r)
	return nil
}

// WriteAll buffers records.
func (w *SQLiteWriter) WriteAll(rs []scholar.Record) error {
	w.records = append(w.records, rs...)
	return nil
}

// Flush replaces the table contents with the buffered records in one
// transaction.
func (w *SQLiteWriter) Flush() error {
	tx, err := w.db.BeginTx(w.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(w.ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	stmt, err := tx.PrepareContext(w.ctx,
		`INSERT INTO results ("order", title, authors, abstract, link) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range w.records {
		if _, err := stmt.ExecContext(w.ctx, r.Order, r.Title, r.Authors, r.Abstract, r.Link); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", r.Order, err)
		}
	}
	return tx.Commit()
}

// Close flushes and closes the database.
func (w *SQLiteWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.Flush()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}
