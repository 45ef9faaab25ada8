package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex SHA-256 of script source. Equal sources have equal
// digests, so clients can tell stored scripts apart without their code.
func Digest(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first 12 characters of a digest for display.
func ShortDigest(digest string) string {
	if len(digest) < 12 {
		return digest
	}
	return digest[:12]
}
