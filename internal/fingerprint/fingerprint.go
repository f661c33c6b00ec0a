// Package fingerprint computes content-addressed identities for media
// blobs. The fingerprint is the identity used for kill-switch matching
// across uploads, independent of owner or storage location.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 digest of data. Identical bytes
// always produce the same fingerprint.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
