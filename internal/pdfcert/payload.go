package pdfcert

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"certchain-backend/internal/pkg/encrypt"
)

// ErrUnreadablePayload is returned when a scanned QR carries neither a
// decryptable verification URL nor the legacy plain-text layout.
var ErrUnreadablePayload = errors.New("pdfcert: unreadable QR payload")

// Payload is the encrypted QR body. Key names are part of the wire
// format shared with already issued certificates and must not change.
type Payload struct {
	CertificateNumber string `json:"Certificate_Number"`
	Name              string `json:"name"`
	CourseName        string `json:"courseName"`
	GrantDate         string `json:"Grant_Date"`
	ExpirationDate    string `json:"Expiration_Date"`
	PolygonLink       string `json:"polygonLink"`
}

// CertificateInfo is the normalized result handed back to API clients
// after a QR has been read, regardless of which payload generation the
// certificate carries.
type CertificateInfo struct {
	CertificateNumber string `json:"Certificate Number"`
	Name              string `json:"Name"`
	CourseName        string `json:"Course Name"`
	GrantDate         string `json:"Grant Date"`
	ExpirationDate    string `json:"Expiration Date"`
	PolygonURL        string `json:"Polygon URL"`
}

// ParseCertificateInfo turns decoded QR text into certificate fields.
// Current certificates embed an encrypted verification URL; older ones
// embed the fields as plain "key: value" lines. Both are supported.
func ParseCertificateInfo(qrText string, codec *encrypt.Codec) (CertificateInfo, error) {
	if strings.HasPrefix(qrText, "http://") || strings.HasPrefix(qrText, "https://") {
		return parseEncryptedURL(qrText, codec)
	}
	return parseLegacyLines(qrText)
}

func parseEncryptedURL(qrText string, codec *encrypt.Codec) (CertificateInfo, error) {
	u, err := url.Parse(qrText)
	if err != nil {
		return CertificateInfo{}, ErrUnreadablePayload
	}
	q := u.Query().Get("q")
	iv := u.Query().Get("iv")
	if q == "" || iv == "" {
		return CertificateInfo{}, ErrUnreadablePayload
	}

	plain, err := codec.Decrypt(q, iv)
	if err != nil {
		return CertificateInfo{}, ErrUnreadablePayload
	}
	var p Payload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		return CertificateInfo{}, ErrUnreadablePayload
	}
	return CertificateInfo{
		CertificateNumber: p.CertificateNumber,
		Name:              p.Name,
		CourseName:        p.CourseName,
		GrantDate:         p.GrantDate,
		ExpirationDate:    p.ExpirationDate,
		PolygonURL:        p.PolygonLink,
	}, nil
}

func parseLegacyLines(qrText string) (CertificateInfo, error) {
	var info CertificateInfo
	found := false
	for _, line := range strings.Split(qrText, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSuffix(strings.TrimSpace(value), ",")
		switch strings.TrimSpace(key) {
		case "Certificate Number", "Certification Number":
			info.CertificateNumber = value
			found = true
		case "Name":
			info.Name = value
			found = true
		case "Course Name", "Certification Name":
			info.CourseName = value
			found = true
		case "Grant Date":
			info.GrantDate = value
			found = true
		case "Expiration Date":
			info.ExpirationDate = value
			found = true
		case "Polygon URL", "Verify On Blockchain":
			info.PolygonURL = value
			found = true
		}
	}
	if !found {
		return CertificateInfo{}, ErrUnreadablePayload
	}
	return info, nil
}
