package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dmg-installer/internal/domain/release"
)

const sampleChecksum = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// Missing base URL.
	cfg := Default()
	cfg.BaseURL = ""
	require.ErrorIs(t, Validate(cfg), errBaseURLRequired)

	// Bad base URL.
	cfg = Default()
	cfg.BaseURL = "not a url"
	require.Error(t, Validate(cfg))

	// Missing package name.
	cfg = Default()
	cfg.PackageName = " "
	require.ErrorIs(t, Validate(cfg), errFilenameRequired)

	// Pattern without placeholder.
	cfg = Default()
	cfg.VersionedArtifact = "JamfConnect.dmg"
	require.ErrorIs(t, Validate(cfg), release.ErrPatternWithoutPlaceholder)

	// Checksum and version are kept verbatim for the verifier and the resolver.
	cfg = Default()
	cfg.ExpectedChecksum = " ABC "
	cfg.TargetVersion = " 2.39.0"
	require.NoError(t, Validate(cfg))
	require.Equal(t, " ABC ", cfg.ExpectedChecksum)
	require.Equal(t, " 2.39.0", cfg.TargetVersion)

	// Optional fields are defaulted.
	cfg = Default()
	cfg.Timeout = 0
	cfg.TempRoot = ""
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.NotEmpty(t, cfg.TempRoot)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := Default()
	cfg.TargetVersion = "2.39.0"
	cfg.ExpectedChecksum = sampleChecksum
	cfg.CommandTimeout = 5 * time.Minute

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadPartialFile keeps defaults for keys absent from the file.
func TestLoadPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_version: 2.40.1\ntimeout: 5s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "2.40.1", cfg.TargetVersion)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, DefaultPackageName, cfg.PackageName)
}

// TestLoadMissingExplicitFile fails when a named file does not exist.
func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestSaveNil rejects a nil configuration.
func TestSaveNil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}

// TestWithOverrides verifies precedence: flag checksum, configured checksum, policy checksum.
func TestWithOverrides(t *testing.T) {
	t.Parallel()

	base := *Default()

	// Policy checksum fills an empty value.
	cfg, err := base.WithOverrides(Overrides{PolicyChecksum: sampleChecksum, TargetVersion: "2.39.0"})
	require.NoError(t, err)
	require.Equal(t, sampleChecksum, cfg.ExpectedChecksum)
	require.Equal(t, "2.39.0", cfg.TargetVersion)

	// A whitespace-only policy checksum is a value, not an absent one.
	cfg, err = base.WithOverrides(Overrides{PolicyChecksum: " "})
	require.NoError(t, err)
	require.Equal(t, " ", cfg.ExpectedChecksum)

	// Receiver stays untouched.
	require.Empty(t, base.ExpectedChecksum)
	require.Empty(t, base.TargetVersion)

	// Configured checksum wins over the policy parameter.
	configured := base
	configured.ExpectedChecksum = sampleChecksum

	cfg, err = configured.WithOverrides(Overrides{PolicyChecksum: strings.Repeat("0", 64)})
	require.NoError(t, err)
	require.Equal(t, sampleChecksum, cfg.ExpectedChecksum)

	// Explicit checksum wins over the configured one.
	explicit := strings.Repeat("a", 64)

	cfg, err = configured.WithOverrides(Overrides{ExpectedChecksum: explicit})
	require.NoError(t, err)
	require.Equal(t, explicit, cfg.ExpectedChecksum)

	// Invalid settings are rejected.
	broken := base
	broken.BaseURL = ""

	_, err = broken.WithOverrides(Overrides{})
	require.ErrorIs(t, err, errBaseURLRequired)
}
