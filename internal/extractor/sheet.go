package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// extractXLSX renders the first worksheet of an Office Open XML workbook.
func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return renderColumns(rows), nil
}

// BIFF8 worksheets hold at most 256 columns.
const maxXLSColumns = 256

// extractXLS renders the first worksheet of a legacy BIFF workbook.
func extractXLS(data []byte) (text string, err error) {
	// extrame/xls indexes past short records on some corrupt files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", fmt.Errorf("failed to open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return "", fmt.Errorf("workbook has no readable sheet")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Rows created from cell records alone carry no column bounds.
		limit := row.LastCol()
		if limit <= 0 {
			limit = maxXLSColumns
		}
		cells := make([]string, 0, limit)
		for c := 0; c < limit; c++ {
			cells = append(cells, row.Col(c))
		}
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	return renderColumns(rows), nil
}

// sheetRow returns nil for rows absent from the sheet; WorkSheet.Row
// dereferences the missing entry.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// renderColumns treats rows[0] as the header row and emits, column by column,
// "Column: <name>" followed by that column's non-blank values in row order.
// Columns are separated by a blank line.
func renderColumns(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	blocks := make([]string, 0, width)
	for col := 0; col < width; col++ {
		name := strings.TrimSpace(cell(rows[0], col))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", col)
		}
		lines := []string{"Column: " + name}
		for _, r := range rows[1:] {
			if v := strings.TrimSpace(cell(r, col)); v != "" {
				lines = append(lines, v)
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
