package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMismatch is returned when the computed digest differs from the expected one.
var ErrMismatch = errors.New("checksum mismatch")

// Verification is the outcome of a successful Verify call.
type Verification struct {
	// Expected is the digest as supplied; empty when verification was skipped.
	Expected string
	// Computed is the lowercase hex SHA-256 of the artifact.
	Computed string
	// Skipped is true when no expected digest was configured.
	Skipped bool
}

// Valid reports whether s is a lowercase SHA-256 hex digest, the only form Verify can match.
func Valid(s string) bool {
	if len(s) != sha256.Size*2 || strings.ToLower(s) != s {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}

// Reader streams r through SHA-256 and returns the lowercase hex digest.
func Reader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// File returns the lowercase hex SHA-256 of the file at path.
func File(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Reader(file)
}

// Verify hashes the file at path and compares the digest with expected as
// exact strings. Only an empty expected value skips the comparison; any other
// value that differs, including case or surrounding whitespace, returns ErrMismatch.
func Verify(path, expected string) (*Verification, error) {
	computed, err := File(path)
	if err != nil {
		return nil, err
	}

	v := &Verification{
		Expected: expected,
		Computed: computed,
	}

	if v.Expected == "" {
		v.Skipped = true
		return v, nil
	}

	if v.Expected != v.Computed {
		return v, fmt.Errorf("expected %q, got %q: %w", v.Expected, v.Computed, ErrMismatch)
	}

	return v, nil
}
