// Package phi provides AES-256-GCM encryption for clinical note content.
// Note bodies are stored only in encrypted form; decryption failures degrade
// to an empty document rather than blocking chart access.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// Encryptor provides AES-256-GCM field-level encryption for clinical content.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor with the given 32-byte AES-256 key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// EncryptContent serializes the note content and encrypts it, returning a
// base64 ciphertext with the nonce prepended.
func (e *Encryptor) EncryptContent(content map[string]interface{}) (string, error) {
	if content == nil {
		content = map[string]interface{}{}
	}
	plaintext, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("phi encrypt: marshal content: %w", err)
	}
	encrypted, err := e.encryptBytes(plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptContent decrypts a stored ciphertext back into note content. A
// ciphertext that cannot be decoded or decrypted (wrong key, corruption)
// yields an empty document so the rest of the record stays readable.
func (e *Encryptor) DecryptContent(ciphertext string) map[string]interface{} {
	if ciphertext == "" {
		return map[string]interface{}{}
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		log.Warn().Err(err).Msg("note content base64 decode failed, returning empty content")
		return map[string]interface{}{}
	}

	plaintext, err := e.decryptBytes(data)
	if err != nil {
		log.Warn().Err(err).Msg("note content decryption failed, returning empty content")
		return map[string]interface{}{}
	}

	var content map[string]interface{}
	if err := json.Unmarshal(plaintext, &content); err != nil {
		log.Warn().Err(err).Msg("note content unmarshal failed, returning empty content")
		return map[string]interface{}{}
	}
	return content
}

func (e *Encryptor) encryptBytes(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

func (e *Encryptor) decryptBytes(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("phi decrypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("phi decrypt: %w", err)
	}
	return plaintext, nil
}
