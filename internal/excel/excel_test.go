package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, headers []string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "batch.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var headers = []string{"certificationID", "name", "certificationName", "grantDate", "expirationDate"}

func TestParseSheet_OK(t *testing.T) {
	path := writeSheet(t, headers, [][]string{
		{"ABC123456789", "Alice", "Go Basics", "01/01/2024", "01/01/2026"},
		{"DEF123456789", "Bob", "Go Basics", "01/02/2024", "01/02/2026"},
	})

	rows, err := ParseSheet(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ABC123456789", rows[0].CertificationID)
	assert.Equal(t, "Bob", rows[1].Name)
}

func TestParseSheet_MissingHeader(t *testing.T) {
	path := writeSheet(t, []string{"certificationID", "name"}, [][]string{
		{"ABC123456789", "Alice"},
	})
	_, err := ParseSheet(path)
	assert.ErrorIs(t, err, ErrMissingHeaders)
}

func TestParseSheet_NoRows(t *testing.T) {
	path := writeSheet(t, headers, nil)
	_, err := ParseSheet(path)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParseSheet_DuplicateID(t *testing.T) {
	path := writeSheet(t, headers, [][]string{
		{"ABC123456789", "Alice", "Go Basics", "01/01/2024", "01/01/2026"},
		{"ABC123456789", "Bob", "Go Basics", "01/02/2024", "01/02/2026"},
	})
	_, err := ParseSheet(path)
	assert.ErrorIs(t, err, ErrDuplicateCertID)
}

func TestParseSheet_SkipsTrailingBlankRows(t *testing.T) {
	path := writeSheet(t, headers, [][]string{
		{"ABC123456789", "Alice", "Go Basics", "01/01/2024", "01/01/2026"},
		{"", "", "", "", ""},
	})
	rows, err := ParseSheet(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
