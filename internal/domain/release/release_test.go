package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func jamfSource() Source {
	return Source{
		BaseURL:           "https://files.jamfconnect.com",
		LatestArtifact:    "JamfConnect.dmg",
		VersionedArtifact: "JamfConnect-{version}.dmg",
	}
}

// TestDownloadURL covers latest and pinned resolution.
func TestDownloadURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":        "https://files.jamfconnect.com/JamfConnect.dmg",
		"2.39.0":  "https://files.jamfconnect.com/JamfConnect-2.39.0.dmg",
		"2.4.0b1": "https://files.jamfconnect.com/JamfConnect-2.4.0b1.dmg",
	}

	for version, want := range cases {
		got, err := jamfSource().DownloadURL(version)
		require.NoError(t, err)
		require.Equal(t, want, got, "version %q", version)
	}
}

// TestDownloadURLVerbatimVersion substitutes the version without trimming or path cleaning.
func TestDownloadURLVerbatimVersion(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" ":         "https://files.jamfconnect.com/JamfConnect-%20.dmg",
		"../2.39.0": "https://files.jamfconnect.com/JamfConnect-../2.39.0.dmg",
		"2.39/0":    "https://files.jamfconnect.com/JamfConnect-2.39/0.dmg",
	}

	for version, want := range cases {
		got, err := jamfSource().DownloadURL(version)
		require.NoError(t, err)
		require.Equal(t, want, got, "version %q", version)
	}
}

// TestDownloadURLTrailingSlash drops the trailing separator of the base URL.
func TestDownloadURLTrailingSlash(t *testing.T) {
	t.Parallel()

	src := jamfSource()
	src.BaseURL = "https://cdn.example.com/mirror/"

	got, err := src.DownloadURL("1.0")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/mirror/JamfConnect-1.0.dmg", got)
}

// TestDownloadURLErrors checks pattern and name validation.
func TestDownloadURLErrors(t *testing.T) {
	t.Parallel()

	src := jamfSource()
	src.VersionedArtifact = "JamfConnect.dmg"

	_, err := src.DownloadURL("2.39.0")
	require.ErrorIs(t, err, ErrPatternWithoutPlaceholder)

	// Latest resolution does not need the pattern.
	_, err = src.DownloadURL("")
	require.NoError(t, err)

	src.LatestArtifact = ""
	_, err = src.DownloadURL("")
	require.ErrorIs(t, err, errEmptyArtifact)
}

// TestIsLatest treats only the empty version as latest.
func TestIsLatest(t *testing.T) {
	t.Parallel()

	require.True(t, IsLatest(""))
	require.False(t, IsLatest(" \t"))
	require.False(t, IsLatest("2.39.0"))
}
