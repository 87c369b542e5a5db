package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashEqual compares two hex digests in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
