package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen     = 16
	keyLen      = 32
	argonTime   = 1
	argonMemory = 64 * 1024
	argonLanes  = 2
	separator   = "$"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword derives an Argon2id digest under a fresh random salt and encodes
// the result as "salt$digest".
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonLanes, keyLen)
	return base64.RawStdEncoding.EncodeToString(salt) + separator + base64.RawStdEncoding.EncodeToString(digest), nil
}

// CheckPassword reports whether candidate matches the stored "salt$digest".
// Malformed stored values never match.
func CheckPassword(stored, candidate string) bool {
	encSalt, encDigest, ok := strings.Cut(stored, separator)
	if !ok || encSalt == "" || encDigest == "" || strings.Contains(encDigest, separator) {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(encSalt)
	if err != nil {
		return false
	}
	digest, err := base64.RawStdEncoding.DecodeString(encDigest)
	if err != nil || len(digest) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(candidate), salt, argonTime, argonMemory, argonLanes, uint32(len(digest)))
	return subtle.ConstantTimeCompare(digest, computed) == 1
}
