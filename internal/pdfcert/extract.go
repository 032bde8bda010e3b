package pdfcert

import (
	"github.com/gen2brain/go-fitz"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog/log"
)

// resolutionLadder lists the target raster widths tried in order when
// scanning a certificate for its QR code. Small scans are cheap and
// usually sufficient; wider ones recover codes from dense templates.
var resolutionLadder = []int{2000, 3000, 4000}

// ExtractQRText rasterises the first page of the PDF at path at
// increasing resolutions and attempts to decode a QR code from each
// render. It returns the decoded text and true on the first success,
// or "" and false when no attempt yields a QR code. Absence of a QR is
// an expected outcome during verification, not an error.
func ExtractQRText(path string) (string, bool) {
	doc, err := fitz.New(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("pdfcert: open for extraction failed")
		return "", false
	}
	defer doc.Close()

	bounds, err := doc.Bound(0)
	if err != nil || bounds.Dx() == 0 {
		return "", false
	}
	widthInches := float64(bounds.Dx()) / pointsPerInch

	reader := zxqr.NewQRCodeReader()
	for _, widthPx := range resolutionLadder {
		img, err := doc.ImageDPI(0, float64(widthPx)/widthInches)
		if err != nil {
			continue
		}
		bmp, err := gozxing.NewBinaryBitmapFromImage(img)
		if err != nil {
			continue
		}
		result, err := reader.Decode(bmp, nil)
		if err != nil {
			continue
		}
		return result.GetText(), true
	}
	return "", false
}
