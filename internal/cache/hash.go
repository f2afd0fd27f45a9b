package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Query identifies a resolve request across runs
type Query struct {
	File          string
	Platform      string
	Configuration string
	Exclude       string
	Overrides     map[string]string
}

// HashSource creates a unique hash for a source file and the request made for it
// The hash is based on:
// - Source file path (descriptors hold absolute paths derived from it)
// - Source file content
// - Platform and configuration
// - Exclusion pattern
// - Variable overrides (sorted for consistency)
func HashSource(q Query) (string, error) {
	h := sha256.New()

	// Hash source file content
	f, err := os.Open(q.File)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash source file: %w", err)
	}

	for _, s := range []string{q.File, q.Platform, q.Configuration, q.Exclude} {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}

	// Hash overrides (sorted for consistency)
	overrides := make([]string, 0, len(q.Overrides))
	for name, value := range q.Overrides {
		overrides = append(overrides, name+"="+value)
	}
	sort.Strings(overrides)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(overrides, "|")))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile creates a hash of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
