// Package hasher computes content fingerprints: lowercase hex SHA-256 digests
// used as blob keys and as the on-chain content reference.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrijs2005/hashdrive/internal/common"
)

// Size is the length of a fingerprint string.
const Size = sha256.Size * 2

// Fingerprint is the hex-encoded SHA-256 digest of a byte payload.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Shard returns the two-character prefix used to fan blobs out over directories.
func (f Fingerprint) Shard() string { return string(f[:2]) }

// Sum fingerprints data.
func Sum(data []byte) Fingerprint {
	h := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(h[:]))
}

// SumReader fingerprints everything read from r and reports the byte count.
func SumReader(r io.Reader) (Fingerprint, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), n, nil
}

// Parse validates s as a fingerprint. Only lowercase hex of the right
// length is accepted so that one digest has exactly one spelling.
func Parse(s string) (Fingerprint, error) {
	if len(s) != Size {
		return "", fmt.Errorf("%w: want %d hex chars, got %d", common.ErrInvalidFingerprint, Size, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: unexpected character %q", common.ErrInvalidFingerprint, c)
		}
	}
	return Fingerprint(s), nil
}

// Verify reports whether data still hashes to want.
func Verify(data []byte, want Fingerprint) bool {
	return Sum(data) == want
}
