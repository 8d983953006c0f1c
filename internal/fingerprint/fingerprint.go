// Package fingerprint computes content digests used to decide whether
// two files hold the same bytes. Digests depend on content only, never
// on timestamps or permissions. Equality of digests is a probabilistic
// content-equality test; it is not meant to resist an adversary who
// controls file content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize bounds the read buffer so memory use stays constant
// regardless of file size.
const chunkSize = 64 * 1024

// File returns the hex-encoded SHA-256 digest of the file's content.
// The file is streamed in fixed-size chunks and the handle is released
// on all paths, including read errors.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
