package phi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestNewEncryptorRejectsShortKey(t *testing.T) {
	_, err := NewEncryptor([]byte("too-short"))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	content := map[string]interface{}{
		"subjective": "patient reports headache for 3 days",
		"vitals":     map[string]interface{}{"bp": "120/80", "hr": float64(72)},
	}

	ciphertext, err := enc.EncryptContent(content)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "headache")

	decrypted := enc.DecryptContent(ciphertext)
	assert.Equal(t, content, decrypted)
}

func TestEncryptNilContent(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	ciphertext, err := enc.EncryptContent(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, enc.DecryptContent(ciphertext))
}

func TestDecryptFailuresReturnEmptyContent(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{}, enc.DecryptContent(""))
	assert.Equal(t, map[string]interface{}{}, enc.DecryptContent("not base64!!"))
	assert.Equal(t, map[string]interface{}{}, enc.DecryptContent("dG9vc2hvcnQ="))

	other, err := NewEncryptor(bytes.Repeat([]byte{0x99}, 32))
	require.NoError(t, err)
	ciphertext, err := other.EncryptContent(map[string]interface{}{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, enc.DecryptContent(ciphertext), "wrong key degrades to empty content")
}

func TestNonceVariesPerEncryption(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	content := map[string]interface{}{"k": "v"}
	first, err := enc.EncryptContent(content)
	require.NoError(t, err)
	second, err := enc.EncryptContent(content)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
