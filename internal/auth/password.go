package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 32
	hashIterations = 10_000
	hashKeyLength  = 32
)

// NewSalt returns a fresh random salt, base64-encoded.
func NewSalt() (string, error) {
	buf := make([]byte, saltSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashPassword derives a PBKDF2-HMAC-SHA256 hash of the password with the
// given salt and returns it base64-encoded. An empty or whitespace-only
// password is an input error, never a valid credential.
func HashPassword(password, salt string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
	}
	derived := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(derived), nil
}

// VerifyPassword recomputes the hash with identical parameters and compares
// in constant time. The error return is reserved for input problems; a wrong
// password yields (false, nil).
func VerifyPassword(storedHash, password, salt string) (bool, error) {
	computed, err := HashPassword(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(computed)) == 1, nil
}
