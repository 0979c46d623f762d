// Package fingerprint derives deterministic request fingerprints so that
// identical sourcing requests short-circuit to cached results.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// prefix namespaces fingerprints in shared keyspaces.
const prefix = "src:"

// Key returns the fingerprint for a sourcing request. It is a pure function
// of the three request parameters; the same inputs always yield the same key.
func Key(description, method string, limit int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d", description, method, limit)
	return prefix + hex.EncodeToString(h.Sum(nil))
}
