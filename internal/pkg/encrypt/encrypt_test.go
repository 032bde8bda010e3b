package encrypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := NewCodec("test-secret")
	q, iv, err := c.Encrypt(`{"Certificate_Number":"ABC123456789"}`)
	require.NoError(t, err)

	plain, err := c.Decrypt(q, iv)
	require.NoError(t, err)
	assert.Equal(t, `{"Certificate_Number":"ABC123456789"}`, plain)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	q, iv, err := NewCodec("secret-a").Encrypt("payload")
	require.NoError(t, err)

	plain, err := NewCodec("secret-b").Decrypt(q, iv)
	if err == nil {
		// CBC with a wrong key almost always breaks padding; if padding
		// happens to survive, the plaintext must still differ.
		assert.NotEqual(t, "payload", plain)
	}
}

func TestDecrypt_MalformedInput(t *testing.T) {
	c := NewCodec("test-secret")

	_, err := c.Decrypt("%%%not-base64%%%", "00112233445566778899aabbccddeeff")
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = c.Decrypt("aGVsbG8", "zz")
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestGenerateEncryptedURL_Shape(t *testing.T) {
	c := NewCodec("test-secret")
	link, err := c.GenerateEncryptedURL("https://verify.example.com", map[string]string{
		"Certificate_Number": "ABC123456789",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://verify.example.com/?q="))
	assert.Contains(t, link, "&iv=")
}
