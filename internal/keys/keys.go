package keys

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// CharacterKey produces a canonical cache key for a character request:
// the normalized name joined with a short hash of the normalized
// description, so sheets regenerate when the description changes.
func CharacterKey(name, description string) string {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	d := strings.ToLower(strings.Join(strings.Fields(description), " "))
	sum := sha1.Sum([]byte(d))
	return n + "_" + hex.EncodeToString(sum[:])[:12]
}
