package validation

import (
	"fmt"
)

// fingerprintLen is the hex length of a SHA-256 digest.
const fingerprintLen = 64

// ValidateFingerprint checks that s is a 64-character lowercase hex string.
// The public killed-fingerprint endpoint accepts nothing else.
func ValidateFingerprint(s string) error {
	if len(s) != fingerprintLen {
		return fmt.Errorf("fingerprint must be %d hex characters", fingerprintLen)
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("fingerprint must be lowercase hex")
		}
	}
	return nil
}
