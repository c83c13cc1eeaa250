package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GetFileChecksum fingerprints a source file's full content. The run
// registry keys processed files by this value.
func GetFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to copy file content to hasher for file %s: %w", filePath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Combine folds an ordered list of per-file checksums into a single run
// fingerprint. Order matters: the same files in a different intake order are
// a different input set.
func Combine(checksums []string) string {
	digest := xxhash.New()
	digest.WriteString(strings.Join(checksums, ";"))

	return hex.EncodeToString(digest.Sum(nil))
}
