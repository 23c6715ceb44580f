package cmd

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dmg-installer/internal/checksum"
	"github.com/oshokin/dmg-installer/internal/config"
	"github.com/oshokin/dmg-installer/internal/service/installer"
)

// TestChecksumCommand prints the digest and fails on mismatch.
func TestChecksumCommand(t *testing.T) {
	t.Parallel()

	body := []byte("image")
	path := filepath.Join(t.TempDir(), "JamfConnect.dmg")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])

	var out bytes.Buffer

	command := newChecksumCommand()
	command.SetOut(&out)
	command.SetArgs([]string{path})
	require.NoError(t, command.Execute())
	require.Equal(t, digest+"\n", out.String())

	out.Reset()

	command = newChecksumCommand()
	command.SetOut(&out)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{path, "--expect", strings.Repeat("0", 64)})

	err := command.Execute()
	require.ErrorIs(t, err, checksum.ErrMismatch)
	require.Equal(t, installer.ExitVerificationFailed, installer.ExitCode(err))
	require.Equal(t, digest+"\n", out.String())
	require.NotContains(t, out.String(), "Usage:")

	// A differently cased digest is not accepted.
	out.Reset()

	command = newChecksumCommand()
	command.SetOut(&out)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{path, "--expect", strings.ToUpper(digest)})
	require.ErrorIs(t, command.Execute(), checksum.ErrMismatch)
	require.Equal(t, digest+"\n", out.String())
}

// TestLatestCommand resolves the URL and reads the version header.
//
//nolint:paralleltest // Uses the package-level config path flag.
func TestLatestCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Amz-Meta-Version", "2.40.0")
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.BaseURL = server.URL

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, cfg))

	configPath = path

	t.Cleanup(func() {
		configPath = ""
	})

	var out bytes.Buffer

	command := newLatestCommand()
	command.SetOut(&out)
	command.SetArgs([]string{"--target-version", "2.39.0"})
	require.NoError(t, command.Execute())

	require.Contains(t, out.String(), "download url: "+server.URL+"/JamfConnect-2.39.0.dmg")
	require.Contains(t, out.String(), "latest version: 2.40.0")
}
