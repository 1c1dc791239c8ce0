// Package auth provides password hashing and HMAC-signed session tokens.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations matches the derivation parameters already used for
	// stored credentials. Changing it invalidates every existing hash.
	pbkdf2Iterations = 1000
	// keyLen is the derived key length in bytes.
	keyLen = 64
	// saltLen is the random salt length in bytes before hex encoding.
	saltLen = 16
)

// HashPassword derives a hex-encoded PBKDF2-SHA512 hash from the password
// and a fresh random salt, returning both.
func HashPassword(password string) (hash, salt string, err error) {
	raw := make([]byte, saltLen)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("auth: generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return derive(password, salt), salt, nil
}

// VerifyPassword reports whether the password matches the stored hash and
// salt. Comparison is constant-time.
func VerifyPassword(password, hash, salt string) bool {
	candidate := derive(password, salt)
	return hmac.Equal([]byte(candidate), []byte(hash))
}

func derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, keyLen, sha512.New)
	return hex.EncodeToString(key)
}
