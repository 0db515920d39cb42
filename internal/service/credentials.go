package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword checks a plaintext password against a stored credential.
//
// Two stored formats are supported: a raw SHA-256 hex digest (the legacy
// scheme, 64 hex characters) and a bcrypt hash. The raw-hex check runs
// first; this order is what lets credentials issued under the old scheme
// keep working while new ones are bcrypt. An empty stored credential always
// fails, as does any bcrypt error.
func VerifyPassword(stored, provided string) bool {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return false
	}

	if isHexDigest(stored) {
		sum := sha256.Sum256([]byte(provided))
		return strings.EqualFold(hex.EncodeToString(sum[:]), stored)
	}

	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
}

// IsLegacyDigest reports whether a stored credential uses the unsalted
// SHA-256 format. Verified legacy credentials are rehashed to bcrypt on
// login.
func IsLegacyDigest(stored string) bool {
	return isHexDigest(strings.TrimSpace(stored))
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
