// Package digest computes blake2b-256 content digests for asset blobs.
// The store source verifies them on every read; the sync tool uses them to
// skip unchanged files.
package digest

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = blake2b.Size256

// ErrMismatch means stored bytes no longer hash to their recorded digest.
var ErrMismatch = errors.New("digest: mismatch")

// Sum returns the blake2b-256 digest of data.
func Sum(data []byte) []byte {
	d := blake2b.Sum256(data)
	return d[:]
}

// Hex returns the digest of data as a lowercase hex string.
func Hex(data []byte) string {
	return hex.EncodeToString(Sum(data))
}

// Equal compares two digests in constant time. A nil or truncated digest
// never matches.
func Equal(a, b []byte) bool {
	if len(a) != Size || len(b) != Size {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Verify checks that data still hashes to want.
func Verify(data []byte, want []byte) error {
	got := Sum(data)
	if !Equal(got, want) {
		return fmt.Errorf("%w: want %s, got %s",
			ErrMismatch, hex.EncodeToString(want), hex.EncodeToString(got))
	}
	return nil
}
