package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

// ErrUnreadableWorkbook is returned when an upload is not a readable xlsx or
// xls workbook.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

const maxXLSRows = 100000

var (
	xlsxMagic = []byte("PK\x03\x04")
	xlsMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ParseWorkbook reads the first sheet of an xlsx or legacy xls file and maps
// its data rows to preview records.
func ParseWorkbook(name string, data []byte) ([]entity.ImportedRecord, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableWorkbook, name, err)
	}
	return RecordsFromRows(rows), nil
}

func readRows(data []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(data, xlsxMagic):
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
		return f.GetRows(sheet, excelize.Options{RawCellValue: true})
	case bytes.HasPrefix(data, xlsMagic):
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if wb == nil || wb.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		return xlsSheetRows(wb.GetSheet(0)), nil
	default:
		return nil, fmt.Errorf("not a spreadsheet")
	}
}

func xlsSheetRows(sheet *xls.WorkSheet) [][]string {
	if sheet == nil {
		return nil
	}
	n := int(sheet.MaxRow) + 1
	if n > maxXLSRows {
		n = maxXLSRows
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows
}

// RecordsFromRows maps sheet rows to records. The first row is the header.
// Rows without an employee code are dropped; RowNumber keeps the sheet row.
func RecordsFromRows(rows [][]string) []entity.ImportedRecord {
	records := make([]entity.ImportedRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if cellValue(row, 0) == "" {
			continue
		}

		data := make(entity.RowData, len(Columns))
		for j, col := range Columns {
			data[col.Key] = cellValue(row, j)
		}
		data[keyBirthDate] = normalizeDate(data[keyBirthDate])

		records = append(records, entity.ImportedRecord{
			RowNumber: i + 1,
			Data:      data,
			Status:    entity.RowStatusPending,
		})
	}
	return records
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// normalizeDate turns an Excel date serial into YYYY-MM-DD. Anything else is
// returned unchanged for the remote validator to judge.
func normalizeDate(value string) string {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < 3000 || serial > 80000 {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}
