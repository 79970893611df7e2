// Package idgen mints the public identifiers that appear in URLs and wire
// payloads: conv_..., msg_..., prov_....
package idgen

import (
	"crypto/rand"
	"fmt"
)

// Lowercase alphanumerics only, so ids stay URL and copy-paste safe.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSecureID returns "<prefix>_<id>" where the id part is length
// characters drawn from crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	id := make([]byte, length)
	for i, b := range raw {
		id[i] = alphabet[int(b)%len(alphabet)]
	}
	return prefix + "_" + string(id), nil
}
