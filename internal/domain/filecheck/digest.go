package filecheck

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DigestBlockSize is the read size used while hashing.
const DigestBlockSize = 4096

// Digest streams the file and returns its hex SHA-256.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, DigestBlockSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("%w: read %s: %w", ErrIO, path, rerr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
