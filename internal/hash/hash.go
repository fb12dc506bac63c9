// Package hash computes content digests for deduplication.
//
// The digest covers the exact byte content of an upload — never filename,
// MIME type, or timestamps — so identical bytes always produce identical
// digests and identity survives re-uploads under different names.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digest streams r through SHA-256 and returns the lowercase hex digest.
// The reader is consumed incrementally; arbitrarily large inputs are fine.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile computes the content digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return Digest(f)
}
