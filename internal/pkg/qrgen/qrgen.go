// Package qrgen produces the QR code images embedded into certificates.
package qrgen

import (
	qrcode "github.com/skip2/go-qrcode"
)

// Size is the pixel size of generated QR images.
const Size = 450

// Generate returns PNG bytes encoding content at the highest error
// correction level, so the QR survives print-and-scan cycles.
func Generate(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Highest, Size)
}
