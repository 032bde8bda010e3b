// Package hashing produces the deterministic digests anchored on chain.
//
// A certificate is bound by a two-level hash: each field is hashed
// individually, then the JSON serialization of the per-field digests is
// hashed again. The canonical field order is fixed; issuance and any later
// re-verification must serialize identically or the combined hash diverges.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fields is the canonical certificate field set, in hashing order.
type Fields struct {
	CertificateNumber string
	Name              string
	CourseName        string
	GrantDate         string
	ExpirationDate    string
	PolygonLink       string // optional, present only in QR payloads
}

// fieldOrder fixes the serialization order for per-field hashes.
var fieldOrder = []string{"Certificate_Number", "name", "courseName", "Grant_Date", "Expiration_Date", "polygonLink"}

// CalculateHash returns the hex SHA-256 digest of data. Deterministic, no salt.
func CalculateHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// CombinedHash hashes each field, serializes the per-field digest map in
// canonical order and hashes the serialization. The polygonLink slot is
// skipped when empty so issuance-time and QR-payload hashes stay distinct
// only when a link is actually bound.
func CombinedHash(f Fields) string {
	values := map[string]string{
		"Certificate_Number": f.CertificateNumber,
		"name":               f.Name,
		"courseName":         f.CourseName,
		"Grant_Date":         f.GrantDate,
		"Expiration_Date":    f.ExpirationDate,
		"polygonLink":        f.PolygonLink,
	}

	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, key := range fieldOrder {
		if key == "polygonLink" && f.PolygonLink == "" {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString(`":"`)
		b.WriteString(CalculateHash(values[key]))
		b.WriteByte('"')
	}
	b.WriteByte('}')

	return CalculateHash(b.String())
}
