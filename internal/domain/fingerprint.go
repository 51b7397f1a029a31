package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short, non-reversible tag for an invite code so it
// can appear in logs and traces without leaking the code itself.
func Fingerprint(code string) string {
	sum := blake2b.Sum256([]byte(code))
	return hex.EncodeToString(sum[:6])
}
