package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jmylchreest/scholarscrape/internal/scholar"
)

// DefaultSheet is the worksheet name used when none is configured.
const DefaultSheet = "Results"

// ColumnWidths are the widths of the Order, Title, Authors, Abstract and
// Link columns.
var ColumnWidths = []float64{6, 55, 40, 95, 60}

// abstractColumn is the spreadsheet column holding Record.Abstract.
const abstractColumn = "D"

// XLSXWriter builds a formatted workbook and writes it on Flush.
type XLSXWriter struct {
	recordBuffer
	w     io.Writer
	sheet string
}

// NewXLSXWriter creates a spreadsheet writer. An empty sheet name means
// DefaultSheet.
func NewXLSXWriter(w io.Writer, sheet string) *XLSXWriter {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXWriter{recordBuffer: newRecordBuffer(), w: w, sheet: sheet}
}

// Flush renders the workbook: one header row, one row per record, then the
// formatting. Formatting never changes cell values. Later calls do nothing.
func (w *XLSXWriter) Flush() error {
	if !w.markFlushed() {
		return nil
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(scholar.Columns))
	for i, c := range scholar.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range w.records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r.Values()
		if err := f.SetSheetRow(w.sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := w.format(f); err != nil {
		return fmt.Errorf("formatting sheet: %w", err)
	}

	if err := f.Write(w.w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) format(f *excelize.File) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(scholar.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(w.sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}

	for i, width := range ColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(w.sheet, col, col, width); err != nil {
			return err
		}
	}

	if len(w.records) == 0 {
		return nil
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	return f.SetCellStyle(w.sheet,
		abstractColumn+"2",
		fmt.Sprintf("%s%d", abstractColumn, len(w.records)+1),
		wrapStyle)
}

// Close flushes the writer.
func (w *XLSXWriter) Close() error {
	return w.Flush()
}
