package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/dmg-installer/internal/domain/release"
)

// Config holds everything a single installer run needs.
type Config struct {
	// ProductName is used for log file names and messages.
	ProductName string `yaml:"product_name"`
	// BaseURL is the folder on the distribution server that holds the disk images.
	BaseURL string `yaml:"base_url"`
	// LatestArtifact is the remote file name that always points to the newest release.
	LatestArtifact string `yaml:"latest_artifact"`
	// VersionedArtifact is the remote file name pattern with a {version} placeholder.
	VersionedArtifact string `yaml:"versioned_artifact"`
	// TargetVersion pins a release; empty means latest.
	TargetVersion string `yaml:"target_version"`
	// ExpectedChecksum is the SHA-256 of the disk image; empty skips verification.
	ExpectedChecksum string `yaml:"expected_checksum"`
	// ArtifactFilename is the local name of the downloaded disk image.
	ArtifactFilename string `yaml:"artifact_filename"`
	// PackageName is the installer package located at the mounted volume root.
	PackageName string `yaml:"package_name"`
	// VersionHeader is the response header carrying the latest version number.
	VersionHeader string `yaml:"version_header"`
	// InstallTarget is the volume passed to the platform installer.
	InstallTarget string `yaml:"install_target"`
	// TempRoot is where the per-run temporary directory and the run lock live.
	TempRoot string `yaml:"temp_root"`
	// LogDirectory holds the dated log files.
	LogDirectory string `yaml:"log_directory"`
	// LogLevel is the minimum level written to console and file.
	LogLevel string `yaml:"log_level"`
	// Timeout bounds the latest version query.
	Timeout time.Duration `yaml:"timeout"`
	// CommandTimeout bounds each external tool invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for installer settings.
	DefaultConfigFilename = "dmg-installer.yaml"

	// DefaultProductName names the default product.
	DefaultProductName = "JamfConnect"

	// DefaultBaseURL is the distribution folder of the default product.
	DefaultBaseURL = "https://files.jamfconnect.com"

	// DefaultLatestArtifact always resolves to the newest release.
	DefaultLatestArtifact = "JamfConnect.dmg"

	// DefaultVersionedArtifact is the per-release file name pattern.
	DefaultVersionedArtifact = "JamfConnect-" + release.VersionPlaceholder + ".dmg"

	// DefaultArtifactFilename is the local name of the downloaded image.
	DefaultArtifactFilename = "JamfConnect.dmg"

	// DefaultPackageName is the package inside the mounted image.
	DefaultPackageName = "JamfConnect.pkg"

	// DefaultVersionHeader is the header the CDN uses to publish the release number.
	DefaultVersionHeader = "x-amz-meta-version"

	// DefaultInstallTarget installs onto the running system volume.
	DefaultInstallTarget = "/"

	// DefaultLogDirectory is the system log folder on macOS.
	DefaultLogDirectory = "/Library/Logs"

	// DefaultLogLevel is used when none is configured.
	DefaultLogLevel = "info"

	// DefaultTimeout is the default duration for the latest version query.
	DefaultTimeout = 30 * time.Second

	// DefaultCommandTimeout bounds hdiutil and installer.
	DefaultCommandTimeout = 30 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBaseURLRequired is returned when the distribution folder is missing.
	errBaseURLRequired = errors.New("base url must be provided")
	// errFilenameRequired is returned when a required file name is empty.
	errFilenameRequired = errors.New("file name must be provided")
)

// Default returns settings for the default product.
func Default() *Config {
	return &Config{
		ProductName:       DefaultProductName,
		BaseURL:           DefaultBaseURL,
		LatestArtifact:    DefaultLatestArtifact,
		VersionedArtifact: DefaultVersionedArtifact,
		ArtifactFilename:  DefaultArtifactFilename,
		PackageName:       DefaultPackageName,
		VersionHeader:     DefaultVersionHeader,
		InstallTarget:     DefaultInstallTarget,
		TempRoot:          os.TempDir(),
		LogDirectory:      DefaultLogDirectory,
		LogLevel:          DefaultLogLevel,
		Timeout:           DefaultTimeout,
		CommandTimeout:    DefaultCommandTimeout,
	}
}

// Load reads configuration from the provided path on top of Default and validates it.
// A missing file at the default path is not an error: the defaults are used as is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting
// and fills in defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BaseURL == "" {
		return errBaseURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}

	required := map[string]string{
		"latest_artifact":    cfg.LatestArtifact,
		"versioned_artifact": cfg.VersionedArtifact,
		"artifact_filename":  cfg.ArtifactFilename,
		"package_name":       cfg.PackageName,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", key, errFilenameRequired)
		}
	}

	if !strings.Contains(cfg.VersionedArtifact, release.VersionPlaceholder) {
		return fmt.Errorf("versioned_artifact %q: %w", cfg.VersionedArtifact, release.ErrPatternWithoutPlaceholder)
	}

	applyDefaults(cfg)

	return nil
}

// applyDefaults fills optional fields that were left empty.
func applyDefaults(cfg *Config) {
	if cfg.ProductName == "" {
		cfg.ProductName = DefaultProductName
	}

	if cfg.VersionHeader == "" {
		cfg.VersionHeader = DefaultVersionHeader
	}

	if cfg.InstallTarget == "" {
		cfg.InstallTarget = DefaultInstallTarget
	}

	if cfg.TempRoot == "" {
		cfg.TempRoot = os.TempDir()
	}

	if cfg.LogDirectory == "" {
		cfg.LogDirectory = DefaultLogDirectory
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
}

// Overrides are values supplied on the command line or by a management policy.
type Overrides struct {
	// TargetVersion replaces the configured version when not empty.
	TargetVersion string
	// ExpectedChecksum replaces the configured checksum when not empty.
	ExpectedChecksum string
	// PolicyChecksum is used only when no checksum is configured or passed explicitly.
	PolicyChecksum string
	// LogDirectory replaces the configured log directory when not empty.
	LogDirectory string
	// LogLevel replaces the configured log level when not empty.
	LogLevel string
}

// WithOverrides returns a validated copy of cfg with the overrides applied.
// The receiver is left untouched.
func (c Config) WithOverrides(o Overrides) (Config, error) {
	// Versions and checksums are used verbatim; only an empty value counts as unset.
	if o.TargetVersion != "" {
		c.TargetVersion = o.TargetVersion
	}

	if o.ExpectedChecksum != "" {
		c.ExpectedChecksum = o.ExpectedChecksum
	}

	if c.ExpectedChecksum == "" {
		c.ExpectedChecksum = o.PolicyChecksum
	}

	if o.LogDirectory != "" {
		c.LogDirectory = o.LogDirectory
	}

	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}

	if err := Validate(&c); err != nil {
		return Config{}, err
	}

	return c, nil
}
