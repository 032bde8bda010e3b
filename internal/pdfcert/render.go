package pdfcert

import (
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Stamp placement matches the certificate template layout: the
// transaction link sits in the lower left corner and the QR code in the
// upper right.
const (
	linkStampDesc = "points:8, pos:bl, off:62 30, scale:1 abs, rot:0"
	qrStampDesc   = "pos:tr, off:-108 -135, scale:0.36 rel, rot:0"
)

// Render stamps the template at inPath with the transaction link and
// the QR image and writes the finished certificate to outPath.
func Render(inPath, outPath, linkURL string, qrPNG []byte) error {
	qrFile := filepath.Join(filepath.Dir(outPath), "qr-"+filepath.Base(outPath)+".png")
	if err := os.WriteFile(qrFile, qrPNG, 0o644); err != nil {
		return err
	}
	defer os.Remove(qrFile)

	if err := api.AddTextWatermarksFile(inPath, outPath, nil, true, linkURL, linkStampDesc, nil); err != nil {
		return err
	}
	return api.AddImageWatermarksFile(outPath, outPath, nil, true, qrFile, qrStampDesc, nil)
}
