package pdfcert

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certchain-backend/internal/pkg/encrypt"
	"certchain-backend/internal/pkg/qrgen"
)

// writeBlankPDF builds a minimal one-page PDF with the given media box.
func writeBlankPDF(t *testing.T, path string, widthPts, heightPts float64) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, 3)
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}
	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	writeObj(fmt.Sprintf("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << >> >>\nendobj\n",
		widthPts, heightPts))
	xref := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1))
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRenderExtractDecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "template.pdf")
	// 350 x 250 mm
	writeBlankPDF(t, template, 992.13, 708.66)
	require.NoError(t, ValidateTemplate(template))

	codec := encrypt.NewCodec("test-secret")
	link := "https://polygonscan.com/tx/0xdeadbeef"
	verifyURL, err := codec.GenerateEncryptedURL("https://verify.example.com", Payload{
		CertificateNumber: "CERT20240001",
		Name:              "Alice Example",
		CourseName:        "Distributed Systems",
		GrantDate:         "01/15/2024",
		ExpirationDate:    "01/15/2026",
		PolygonLink:       link,
	})
	require.NoError(t, err)
	qr, err := qrgen.Generate(verifyURL)
	require.NoError(t, err)

	out := filepath.Join(dir, "issued.pdf")
	require.NoError(t, Render(template, out, link, qr))

	pages, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, pages, "stamping must not add pages")

	text, ok := ExtractQRText(out)
	require.True(t, ok, "stamped QR must scan back")
	assert.Equal(t, verifyURL, text)

	info, err := ParseCertificateInfo(text, codec)
	require.NoError(t, err)
	assert.Equal(t, "CERT20240001", info.CertificateNumber)
	assert.Equal(t, "Alice Example", info.Name)
	assert.Equal(t, link, info.PolygonURL)
}
