// Package pdfcert validates certificate PDF templates, stamps issued
// certificates with their verification QR code, and reads stamped
// certificates back during verification.
package pdfcert

import (
	"errors"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// Accepted template envelope in millimetres. The layout the QR and
	// link are stamped against assumes a landscape page in this range.
	minWidthMM  = 340.0
	maxWidthMM  = 360.0
	minHeightMM = 240.0
	maxHeightMM = 260.0

	pointsPerInch = 72.0
	mmPerInch     = 25.4
)

var (
	ErrMultiPage     = errors.New("pdfcert: template must contain exactly one page")
	ErrBadDimensions = errors.New("pdfcert: template dimensions outside accepted range")
)

func pointsToMM(pts float64) float64 {
	return pts / pointsPerInch * mmPerInch
}

func dimensionsOK(widthMM, heightMM float64) bool {
	return widthMM >= minWidthMM && widthMM <= maxWidthMM &&
		heightMM >= minHeightMM && heightMM <= maxHeightMM
}

// ValidateTemplate checks that path points at a single page PDF whose
// page size fits the certificate layout.
func ValidateTemplate(path string) error {
	count, err := api.PageCountFile(path)
	if err != nil {
		return err
	}
	if count != 1 {
		return ErrMultiPage
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return err
	}
	if len(dims) == 0 {
		return ErrMultiPage
	}
	if !dimensionsOK(pointsToMM(dims[0].Width), pointsToMM(dims[0].Height)) {
		return ErrBadDimensions
	}
	return nil
}

// PageCount reports the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
