// Package export genera las planillas xlsx de stock y transacciones.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"inventory-service/internal/ledger"
	"inventory-service/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	headerColor    = "4361EE"
	timestampStamp = "20060102_150405"
)

// Nombres base de los archivos exportados
const (
	KindStock        = "current_stock"
	KindTransactions = "transactions"
)

// File planilla generada lista para descargar
type File struct {
	Filename string
	Content  []byte
}

// Filename nombre <kind>_<YYYYmmdd_HHMMSS>.xlsx
func Filename(kind string, at time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, at.Format(timestampStamp))
}

// StockWorkbook exporta el stock actual de cada item
func StockWorkbook(levels []models.StockLevel, at time.Time) (*File, error) {
	header := []string{"ID", "Name", "Category", "Minimum Stock", "Current Stock"}
	rows := make([][]interface{}, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, []interface{}{l.ItemID, l.Name, deref(l.Category), l.MinimumStock, l.CurrentStock})
	}

	content, err := build("Stock", header, rows)
	if err != nil {
		return nil, err
	}
	return &File{Filename: Filename(KindStock, at), Content: content}, nil
}

// TransactionsWorkbook exporta el historial completo de transacciones
func TransactionsWorkbook(txs []*models.TransactionWithItem, at time.Time) (*File, error) {
	header := []string{
		"ID", "Date", "Item", "Category", "Type", "Quantity",
		"Source/Destination", "Expiry Date", "Batch", "Notes", "Created By", "Created At",
	}
	rows := make([][]interface{}, 0, len(txs))
	for _, t := range txs {
		expiry := ""
		if t.ExpiryDate != nil {
			expiry = t.ExpiryDate.Format(ledger.DateLayout)
		}
		rows = append(rows, []interface{}{
			t.ID,
			t.Date.Format(ledger.DateLayout),
			t.ItemName,
			deref(t.Category),
			string(t.Direction),
			t.Quantity,
			t.Counterparty,
			expiry,
			deref(t.Batch),
			deref(t.Note),
			t.CreatedBy,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	content, err := build("Transactions", header, rows)
	if err != nil {
		return nil, err
	}
	return &File{Filename: Filename(KindTransactions, at), Content: content}, nil
}

// build arma un libro de una hoja con encabezado destacado y columnas ajustadas al contenido
func build(sheet string, header []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	widths := make([]int, len(header))
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
		for c, v := range row {
			if n := utf8.RuneCountInString(cellText(v)); c < len(widths) && n > widths[c] {
				widths[c] = n
			}
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, float64(w+2)); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf *bytes.Buffer
	if buf, err = f.WriteToBuffer(); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
