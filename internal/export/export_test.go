package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/scholarscrape/internal/config"
	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

func sampleRecords() []scholar.Record {
	return []scholar.Record{
		{Order: 1, Title: "EEG-based emotion recognition", Authors: "A Li, B Chen - IEEE, 2025", Abstract: "We propose a transformer for EEG signals.", Link: "https://example.org/1"},
		{Order: 2, Title: scholar.NoTitle},
		{Order: 3, Title: "Sleep staging, revisited", Authors: "C \"Doe\"", Abstract: "Line one,\nline two.", Link: "https://example.org/3"},
	}
}

// --- Format Tests ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "xlsx", want: FormatXLSX},
		{in: ".XLSX", want: FormatXLSX},
		{in: "csv", want: FormatCSV},
		{in: "json", want: FormatJSON},
		{in: "jsonl", want: FormatJSONL},
		{in: "yml", want: FormatYAML},
		{in: "db", want: FormatSQLite},
		{in: "docx", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	if f, err := FormatFromPath("out/eeg_2025_results.xlsx"); err != nil || f != FormatXLSX {
		t.Errorf("FormatFromPath() = %q, %v", f, err)
	}
	if _, err := FormatFromPath("results"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("FormatFromPath() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseFormat_NamesAcceptedByConfig(t *testing.T) {
	names := make([]string, 0, len(Formats)+len(formatAliases))
	for _, f := range Formats {
		names = append(names, string(f))
	}
	for alias := range formatAliases {
		names = append(names, alias)
	}

	for _, name := range names {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", name, err)
		}
		cfg := config.Default()
		cfg.Query = "q"
		cfg.Format = name
		if err := cfg.Validate(); err != nil {
			t.Errorf("config rejects format %q: %v", name, err)
		}
	}
}

// --- NewWriter Factory Tests ---

func TestNewWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	for _, f := range []Format{FormatXLSX, FormatCSV, FormatJSON, FormatJSONL, FormatYAML} {
		if _, err := NewWriter(buf, f); err != nil {
			t.Errorf("NewWriter(%s) error = %v", f, err)
		}
	}
	if _, err := NewWriter(buf, FormatSQLite); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("NewWriter(sqlite) error = %v, want ErrUnsupportedFormat", err)
	}
}

// --- Stream Writer Tests ---

func TestJSONWriter_AlwaysArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	if err := w.Write(sampleRecords()[0]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []scholar.Record
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(got) != 1 || got[0].Order != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestBufferedWriters_FlushThenClose(t *testing.T) {
	tests := []struct {
		name string
		new  func(*bytes.Buffer) Writer
	}{
		{"json", func(b *bytes.Buffer) Writer { return NewJSONWriter(b, true, "  ") }},
		{"yaml", func(b *bytes.Buffer) Writer { return NewYAMLWriter(b) }},
		{"xlsx", func(b *bytes.Buffer) Writer { return NewXLSXWriter(b, "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := tt.new(buf)
			if err := w.WriteAll(sampleRecords()); err != nil {
				t.Fatalf("WriteAll() error = %v", err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			flushed := buf.Len()
			if flushed == 0 {
				t.Fatal("Flush() wrote nothing")
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if buf.Len() != flushed {
				t.Errorf("Close() after Flush() wrote %d more bytes", buf.Len()-flushed)
			}
			if err := w.Write(sampleRecords()[0]); !errors.Is(err, ErrFlushed) {
				t.Errorf("Write() after Flush() error = %v, want ErrFlushed", err)
			}
		})
	}
}

func TestJSONWriter_FlushThenCloseIsOneArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	if err := w.WriteAll(sampleRecords()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []scholar.Record
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a single JSON array: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
}

func TestJSONLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	if err := w.WriteAll(sampleRecords()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	var r scholar.Record
	if err := json.Unmarshal([]byte(lines[2]), &r); err != nil {
		t.Fatalf("line 3: %v", err)
	}
	if r.Abstract != "Line one,\nline two." {
		t.Errorf("Abstract = %q", r.Abstract)
	}
}

func TestYAMLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	if err := w.WriteAll(sampleRecords()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []scholar.Record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if len(got) != 3 || got[1].Title != scholar.NoTitle {
		t.Errorf("got %+v", got)
	}
}

func TestCSVWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewCSVWriter(buf)
	if err := w.WriteAll(sampleRecords()); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "Order,Title,Authors,Abstract,Link" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[3][2] != `C "Doe"` || rows[3][3] != "Line one,\nline two." {
		t.Errorf("row 3 = %q", rows[3])
	}
}

func TestCSVWriter_EmptyHasHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewCSVWriter(buf).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Order,Title,Authors,Abstract,Link" {
		t.Errorf("output = %q", buf.String())
	}
}

// --- XLSX Tests ---

func exportXLSX(t *testing.T, records []scholar.Record, sheet string) (*excelize.File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.xlsx")
	exp, err := NewFile(path, "", sheet)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if _, err := exp.Export(context.Background(), records); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	if sheet == "" {
		sheet = DefaultSheet
	}
	return f, sheet
}

func cellStyle(t *testing.T, f *excelize.File, sheet, cell string) *excelize.Style {
	t.Helper()
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		t.Fatalf("GetCellStyle(%s) error = %v", cell, err)
	}
	style, err := f.GetStyle(id)
	if err != nil {
		t.Fatalf("GetStyle(%s) error = %v", cell, err)
	}
	return style
}

func TestXLSX_Rows(t *testing.T) {
	f, sheet := exportXLSX(t, sampleRecords(), "")

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if strings.Join(rows[0], "|") != "Order|Title|Authors|Abstract|Link" {
		t.Errorf("header = %v", rows[0])
	}
	for i := 1; i <= 3; i++ {
		if rows[i][0] != string(rune('0'+i)) {
			t.Errorf("row %d order = %q", i, rows[i][0])
		}
	}
	if rows[1][4] != "https://example.org/1" {
		t.Errorf("row 1 link = %q", rows[1][4])
	}
	if rows[2][1] != scholar.NoTitle {
		t.Errorf("row 2 title = %q", rows[2][1])
	}
}

func TestXLSX_Formatting(t *testing.T) {
	f, sheet := exportXLSX(t, sampleRecords(), "")

	for _, cell := range []string{"A1", "C1", "E1"} {
		s := cellStyle(t, f, sheet, cell)
		if s.Font == nil || !s.Font.Bold {
			t.Errorf("%s not bold", cell)
		}
		if s.Alignment == nil || s.Alignment.Horizontal != "center" {
			t.Errorf("%s not centred", cell)
		}
	}

	for _, cell := range []string{"D2", "D3", "D4"} {
		s := cellStyle(t, f, sheet, cell)
		if s.Alignment == nil || !s.Alignment.WrapText || s.Alignment.Vertical != "top" {
			t.Errorf("%s alignment = %+v, want wrap + top", cell, s.Alignment)
		}
	}
	if s := cellStyle(t, f, sheet, "B2"); s.Alignment != nil && s.Alignment.WrapText {
		t.Error("only the Abstract column wraps")
	}

	for i, col := range []string{"A", "B", "C", "D", "E"} {
		w, err := f.GetColWidth(sheet, col)
		if err != nil {
			t.Fatalf("GetColWidth(%s) error = %v", col, err)
		}
		if w != ColumnWidths[i] {
			t.Errorf("column %s width = %v, want %v", col, w, ColumnWidths[i])
		}
	}
}

func TestXLSX_SheetNameAndEmpty(t *testing.T) {
	f, sheet := exportXLSX(t, nil, "EEG")

	if got := f.GetSheetName(0); got != "EEG" {
		t.Errorf("sheet = %q, want EEG", got)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

// --- SQLite Tests ---

func TestSQLite_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	exp, err := NewFile(path, "", "")
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	ctx := context.Background()

	// A second export replaces the first.
	if _, err := exp.Export(ctx, sampleRecords()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := exp.Export(ctx, sampleRecords()[:2]); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	var title, link string
	if err := db.QueryRowContext(ctx, `SELECT title, link FROM results WHERE "order" = 1`).Scan(&title, &link); err != nil {
		t.Fatalf("select: %v", err)
	}
	if title != "EEG-based emotion recognition" || link != "https://example.org/1" {
		t.Errorf("row 1 = %q, %q", title, link)
	}
}

// --- File Tests ---

func TestFile_ExplicitFormatOverridesExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	exp, err := NewFile(path, "jsonl", "")
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	got, err := exp.Export(context.Background(), sampleRecords())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got != path {
		t.Errorf("Export() = %q, want %q", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 3 {
		t.Errorf("got %d lines, want 3", n)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestNewFile_UnknownFormat(t *testing.T) {
	if _, err := NewFile("out.docx", "", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("NewFile() error = %v, want ErrUnsupportedFormat", err)
	}
}
