// Package checksum tracks article content digests so unchanged files are not republished.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Ledger maps file names to the digest of their last published content.
// It lives only for one process and is not safe for concurrent use.
type Ledger map[string]string

// Changed reports whether data differs from what was last recorded for name.
func (l Ledger) Changed(name string, data []byte) bool {
	prev, ok := l[name]
	return !ok || prev != Sum(data)
}

// Record stores the digest of data for name.
func (l Ledger) Record(name string, data []byte) {
	l[name] = Sum(data)
}
