package auth

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against its stored hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Character classes for generated temporary passwords. Ambiguous characters
// (0/O, 1/l/I) are excluded so credentials survive being read over the phone.
const (
	tempLower   = "abcdefghijkmnopqrstuvwxyz"
	tempUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempDigits  = "23456789"
	tempSymbols = "!@#$%&*"
)

// GenerateTempPassword produces a random temporary password of the given
// length (minimum 8) with at least one character from each class.
func GenerateTempPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	classes := []string{tempLower, tempUpper, tempDigits, tempSymbols}
	all := tempLower + tempUpper + tempDigits + tempSymbols

	chars := make([]byte, 0, length)
	for _, class := range classes {
		ch, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, ch)
	}
	for len(chars) < length {
		ch, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, ch)
	}
	if err := shuffle(chars); err != nil {
		return "", err
	}
	return string(chars), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
