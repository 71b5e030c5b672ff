package utils

import (
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

const digestSize = 16

// HashText fingerprints cache-key inputs and canonical paths.
func HashText(value string) string {
	hasher, _ := blake2b.New(digestSize, nil)
	hasher.Write([]byte(value))
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashFile is the content hash used for change detection - it never sees
// mtime or permissions, only bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher, _ := blake2b.New(digestSize, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
