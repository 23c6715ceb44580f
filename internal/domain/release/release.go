package release

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// VersionPlaceholder is replaced with the target version in versioned file names.
const VersionPlaceholder = "{version}"

var (
	// ErrPatternWithoutPlaceholder is returned when a versioned file name lacks VersionPlaceholder.
	ErrPatternWithoutPlaceholder = errors.New("versioned artifact pattern has no " + VersionPlaceholder + " placeholder")
	// errEmptyArtifact is returned when the resolved remote file name is empty.
	errEmptyArtifact = errors.New("artifact name is empty")
)

// Source describes where releases are published.
type Source struct {
	// BaseURL is the folder holding the disk images.
	BaseURL string
	// LatestArtifact is the file name that always serves the newest release.
	LatestArtifact string
	// VersionedArtifact is the file name pattern for a pinned release.
	VersionedArtifact string
}

// IsLatest reports whether the target version asks for the newest release.
func IsLatest(targetVersion string) bool {
	return targetVersion == ""
}

// LatestURL returns the URL that always serves the newest release.
func (s Source) LatestURL() (string, error) {
	return join(s.BaseURL, s.LatestArtifact)
}

// DownloadURL returns the latest URL for an empty target version and the
// versioned URL, with the version substituted verbatim, otherwise.
func (s Source) DownloadURL(targetVersion string) (string, error) {
	if IsLatest(targetVersion) {
		return s.LatestURL()
	}

	if !strings.Contains(s.VersionedArtifact, VersionPlaceholder) {
		return "", ErrPatternWithoutPlaceholder
	}

	name := strings.ReplaceAll(s.VersionedArtifact, VersionPlaceholder, targetVersion)

	return join(s.BaseURL, name)
}

// join appends name to the path of base. Trailing slashes of the base path
// are dropped; name is appended as is, without path cleaning.
func join(base, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errEmptyArtifact
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + name
	u.RawPath = ""

	return u.String(), nil
}
