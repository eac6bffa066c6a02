// Package footprint computes content hashes used to detect changed code units.
package footprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Of returns the hex SHA-256 of code. The text is hashed as-is: whitespace
// and comment edits produce a different footprint.
func Of(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal reports whether code still matches a previously recorded footprint.
func Equal(code, fp string) bool {
	return fp != "" && Of(code) == fp
}
