// Package excel reads the bulk-issuance spreadsheet. Rows are keyed by
// certificate ID and matched 1:1 against the PDF filenames in the archive.
package excel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrMissingHeaders  = errors.New("excel: sheet is missing required column headers")
	ErrNoRows          = errors.New("excel: sheet contains no data rows")
	ErrTooManyRows     = errors.New("excel: sheet exceeds the per-batch row limit")
	ErrDuplicateCertID = errors.New("excel: duplicate certification ID in sheet")
)

// MaxRows bounds one batch; one Merkle tree and one chain transaction cover
// at most this many leaves.
const MaxRows = 250

var requiredHeaders = []string{"certificationID", "name", "certificationName", "grantDate", "expirationDate"}

// Row is one certificate entry from the sheet.
type Row struct {
	CertificationID   string
	Name              string
	CertificationName string
	GrantDate         string
	ExpirationDate    string
}

// ParseSheet reads the first sheet of the workbook at path and returns its
// rows in order. Header names must match exactly; extra columns are ignored.
func ParseSheet(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("excel: open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("excel: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrMissingHeaders
	}

	index := map[string]int{}
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return nil, ErrMissingHeaders
		}
	}

	data := rows[1:]
	if len(data) == 0 {
		return nil, ErrNoRows
	}
	if len(data) > MaxRows {
		return nil, ErrTooManyRows
	}

	seen := map[string]bool{}
	out := make([]Row, 0, len(data))
	for _, raw := range data {
		row := Row{
			CertificationID:   cell(raw, index["certificationID"]),
			Name:              cell(raw, index["name"]),
			CertificationName: cell(raw, index["certificationName"]),
			GrantDate:         cell(raw, index["grantDate"]),
			ExpirationDate:    cell(raw, index["expirationDate"]),
		}
		if row.CertificationID == "" {
			continue // trailing blank rows
		}
		if seen[row.CertificationID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCertID, row.CertificationID)
		}
		seen[row.CertificationID] = true
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
