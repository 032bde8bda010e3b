// Package encrypt implements the reversible QR payload encoding. Payloads are
// AES-256-CBC encrypted with a process-wide secret; only this system can
// recover the certificate fields from a scanned QR.
package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrBadPayload = errors.New("malformed encrypted payload")
	ErrBadPadding = errors.New("invalid padding in encrypted payload")
)

// Codec encrypts and decrypts QR payloads with a derived 32 byte key.
type Codec struct {
	key []byte
}

// NewCodec derives the AES key from the configured secret.
func NewCodec(secret string) *Codec {
	key := sha256.Sum256([]byte(secret))
	return &Codec{key: key[:]}
}

// Encrypt returns the base64url ciphertext and hex IV for data.
func (c *Codec) Encrypt(data string) (ciphertext, iv string, err error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", "", err
	}

	ivBytes := make([]byte, aes.BlockSize)
	if _, err := rand.Read(ivBytes); err != nil {
		return "", "", err
	}

	plain := pkcs7Pad([]byte(data), aes.BlockSize)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, ivBytes).CryptBlocks(out, plain)

	return base64.RawURLEncoding.EncodeToString(out), hex.EncodeToString(ivBytes), nil
}

// Decrypt reverses Encrypt. Both parameters come from the QR URL query.
func (c *Codec) Decrypt(ciphertext, iv string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrBadPayload
	}
	ivBytes, err := hex.DecodeString(iv)
	if err != nil || len(ivBytes) != aes.BlockSize {
		return "", ErrBadPayload
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrBadPayload
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(plain, raw)

	return pkcs7Unpad(plain)
}

// GenerateEncryptedURL serializes fields to JSON, encrypts the blob and
// returns the verification URL carrying q and iv query parameters.
func (c *Codec) GenerateEncryptedURL(baseURL string, fields interface{}) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	q, iv, err := c.Encrypt(string(payload))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/?q=%s&iv=%s", baseURL, url.QueryEscape(q), iv), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrBadPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return "", ErrBadPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return "", ErrBadPadding
		}
	}
	return string(data[:len(data)-pad]), nil
}
