// Package hashutil provides the content hashing and path validation
// primitives shared by the import tooling and the comparison engine.
package hashutil

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sha256File returns the hex SHA-256 digest of a file's bytes
func Sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PatchBodyHash returns the hex SHA-256 digest of a patch body with the
// "---" header lines left out entirely and "+++" header lines contributing
// only their content after the marker. Timestamps and checkout prefixes in
// the "---" headers would otherwise make identical patches hash differently.
func PatchBodyHash(r io.Reader) (string, error) {
	h := sha256.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "--- ") {
			continue
		}
		if strings.HasPrefix(line, "+++ ") {
			line = line[4:]
		}
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read patch body: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PatchFileHash hashes the patch at path with PatchBodyHash rules
func PatchFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return PatchBodyHash(f)
}

// CheckRelPath rejects path components that could escape a root directory.
// Used on every path built from user-influenced input (archive entries,
// layer local paths, package names).
func CheckRelPath(path string) error {
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute path not allowed: %s", path)
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return fmt.Errorf("parent directory reference not allowed: %s", path)
		}
	}
	return nil
}
