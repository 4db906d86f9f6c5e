package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/whp/internal/whp/importer"
)

// Workbook builds an .xlsx import file with the template header and one
// data row per tax id. Employee codes run EMP001, EMP002, ...
func Workbook(t *testing.T, taxIDs ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, 0, len(importer.Columns))
	for _, h := range importer.Headers() {
		header = append(header, h)
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))

	for i, taxID := range taxIDs {
		row := []interface{}{
			fmt.Sprintf("EMP%03d", i+1), taxID, "สมชาย", "ใจดี", "วิศวกร", "1990-05-01", "male", 35,
			"thai", "single", 70, 175, 82, "none", 22.9, 120, 80, 95, 180, 140, "exercise",
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
