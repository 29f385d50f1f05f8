package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a credential in logs without revealing it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:12]
}
