package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/dmg-installer/internal/checksum"
	"github.com/oshokin/dmg-installer/internal/config"
	"github.com/oshokin/dmg-installer/internal/diskimage"
	"github.com/oshokin/dmg-installer/internal/domain/release"
	"github.com/oshokin/dmg-installer/internal/logger"
	"github.com/oshokin/dmg-installer/internal/pkginstall"
	"github.com/oshokin/dmg-installer/internal/remote"
	"github.com/oshokin/dmg-installer/internal/system"
)

var errNilOptions = errors.New("options are not set")

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// TargetVersion pins a release and overrides the configured one.
	TargetVersion string
	// ExpectedChecksum overrides the configured SHA-256.
	ExpectedChecksum string
	// PolicyArgs are positional arguments passed by a management policy; the
	// fourth one is used as the checksum when none is configured.
	PolicyArgs []string
	// LogDirectory overrides where the dated log file is written.
	LogDirectory string
	// LogLevel overrides the configured log level.
	LogLevel string
	// DryRun stops after verification: nothing is mounted or installed.
	DryRun bool
	// Commander runs hdiutil and installer; nil means os/exec.
	Commander system.Commander
	// HTTPClient performs requests; nil means http.DefaultClient.
	HTTPClient remote.HTTPClient
	// SkipPlatformCheck allows running the pipeline outside macOS with a fake Commander.
	SkipPlatformCheck bool
}

// runner holds the collaborators and progress of a single run.
// It is unexported: call Run(ctx, Options) from callers.
type runner struct {
	cfg     config.Config         // Immutable settings built once per run.
	opts    *Options              // Caller inputs.
	client  *remote.Client        // Version query and download.
	mounter *diskimage.Mounter    // hdiutil attach/detach.
	pkg     *pkginstall.Installer // installer -pkg.
	result  *Result               // Filled in as stages complete.
}

// Run executes the pipeline and is the public entry point for the CLI.
// The returned Result is never nil once the configuration has been built.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts == nil {
		return nil, stageErr(StageConfig, errNilOptions)
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Invalid configuration", "error", err)
		return nil, stageErr(StageConfig, err)
	}

	ctx, closeLog := setupLogging(ctx, cfg)
	defer closeLog()

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "dmg-installer")

	r := newRunner(cfg, opts)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Installer run failed", "stage", FailedStage(err), "error", err)
		return r.result, err
	}

	logger.Info(ctx, "Installer completed")

	return r.result, nil
}

// buildConfig loads the settings file and applies caller overrides once.
func buildConfig(opts *Options) (config.Config, error) {
	loaded, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	var policyChecksum string
	if len(opts.PolicyArgs) > policyChecksumIndex {
		policyChecksum = opts.PolicyArgs[policyChecksumIndex]
	}

	return loaded.WithOverrides(config.Overrides{
		TargetVersion:    opts.TargetVersion,
		ExpectedChecksum: opts.ExpectedChecksum,
		PolicyChecksum:   policyChecksum,
		LogDirectory:     opts.LogDirectory,
		LogLevel:         opts.LogLevel,
	})
}

// setupLogging tees the context logger into the dated log file.
// When the file cannot be opened the run continues with console output only.
func setupLogging(ctx context.Context, cfg config.Config) (context.Context, func()) {
	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, using info", "level", cfg.LogLevel)
	}

	logger.SetLevel(level)

	fileLogger, closeFile, err := logger.NewWithFile(logger.AtomicLevel(), cfg.LogDirectory, logFilePrefix, time.Now())
	if err != nil {
		logger.WarnKV(ctx, "Logging to console only", "directory", cfg.LogDirectory, "error", err)

		return logger.ToContext(ctx, logger.New(logger.AtomicLevel())), func() {}
	}

	return logger.ToContext(ctx, fileLogger), func() {
		_ = closeFile()
	}
}

// newRunner wires the collaborators from the configuration.
func newRunner(cfg config.Config, opts *Options) *runner {
	commander := opts.Commander
	if commander == nil {
		commander = system.ExecCommander{Timeout: cfg.CommandTimeout}
	}

	return &runner{
		cfg:  cfg,
		opts: opts,
		client: remote.NewClient(
			remote.WithHTTPClient(opts.HTTPClient),
			remote.WithTimeout(cfg.Timeout),
		),
		mounter: diskimage.NewMounter(commander),
		pkg:     pkginstall.New(commander, cfg.InstallTarget),
		result:  new(Result),
	}
}

// run executes the stages in order:
// 1) Check platform and take the run lock.
// 2) Resolve the download URL and query the latest version.
// 3) Download into a fresh temporary directory.
// 4) Verify the checksum.
// 5) Mount, install and unmount.
// 6) Remove the temporary directory.
func (r *runner) run(ctx context.Context) (err error) {
	if !r.opts.DryRun && !r.opts.SkipPlatformCheck {
		if err = system.EnsureDarwin(); err != nil {
			return stageErr(StagePlatform, err)
		}
	}

	r.logActor(ctx)

	lock, err := acquireLock(ctx, r.cfg.TempRoot)
	if err != nil {
		return stageErr(StageLock, err)
	}

	defer lock.release(context.WithoutCancel(ctx))

	if err = r.resolve(ctx); err != nil {
		return err
	}

	workDir, err := os.MkdirTemp(r.cfg.TempRoot, workDirPattern)
	if err != nil {
		return stageErr(StagePrepare, fmt.Errorf("create temporary directory: %w", err))
	}

	r.result.WorkDir = workDir

	defer func() {
		if cleanupErr := r.cleanup(context.WithoutCancel(ctx), workDir); cleanupErr != nil && err == nil {
			err = cleanupErr
		}
	}()

	if err = r.fetch(ctx, workDir); err != nil {
		return err
	}

	if err = r.verify(ctx); err != nil {
		return err
	}

	if r.opts.DryRun {
		logger.Info(ctx, "Dry run requested, skipping mount and installation")
		return nil
	}

	return r.installFromImage(ctx)
}

// logActor records who started the run; failures here are not fatal.
func (r *runner) logActor(ctx context.Context) {
	actor, err := system.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
		return
	}

	logger.InfoKV(ctx, "Starting installation",
		"product", r.cfg.ProductName,
		"host", actor.Hostname,
		"user", actor.Username,
	)
}

// resolve determines the download URL and logs the newest published version.
func (r *runner) resolve(ctx context.Context) error {
	source := release.Source{
		BaseURL:           r.cfg.BaseURL,
		LatestArtifact:    r.cfg.LatestArtifact,
		VersionedArtifact: r.cfg.VersionedArtifact,
	}

	downloadURL, err := source.DownloadURL(r.cfg.TargetVersion)
	if err != nil {
		return stageErr(StageResolve, err)
	}

	r.result.DownloadURL = downloadURL

	if release.IsLatest(r.cfg.TargetVersion) {
		logger.InfoKV(ctx, "No target version set, using latest", "url", downloadURL)
	} else {
		logger.InfoKV(ctx, "Target version set", "version", r.cfg.TargetVersion, "url", downloadURL)
	}

	latestURL, err := source.LatestURL()
	if err != nil {
		return stageErr(StageResolve, err)
	}

	latest, err := r.client.LatestVersion(ctx, latestURL, r.cfg.VersionHeader)
	if err != nil {
		logger.WarnKV(ctx, "Unable to query latest version", "url", latestURL, "error", err)
	}

	r.result.LatestVersion = latest
	logger.InfoKV(ctx, "Latest available version", "version", latest)

	if latest != "" && !release.IsLatest(r.cfg.TargetVersion) && latest != r.cfg.TargetVersion {
		logger.InfoKV(ctx, "Target version differs from latest",
			"target", r.cfg.TargetVersion, "latest", latest)
	}

	return nil
}

// fetch downloads the artifact into workDir.
func (r *runner) fetch(ctx context.Context, workDir string) error {
	artifact := filepath.Join(workDir, r.cfg.ArtifactFilename)

	logger.InfoKV(ctx, "Downloading disk image", "url", r.result.DownloadURL, "path", artifact)

	written, err := r.client.Download(ctx, r.result.DownloadURL, artifact)
	if err != nil {
		logger.ErrorKV(ctx, "Download failed", "url", r.result.DownloadURL, "error", err)
		return stageErr(StageFetch, err)
	}

	r.result.ArtifactPath = artifact

	//nolint:gosec // io.Copy never reports a negative count.
	logger.InfoKV(ctx, "Download complete", "path", artifact, "size", humanize.IBytes(uint64(written)))

	return nil
}

// verify gates installation on the checksum.
func (r *runner) verify(ctx context.Context) error {
	if r.cfg.ExpectedChecksum != "" && !checksum.Valid(r.cfg.ExpectedChecksum) {
		logger.WarnKV(ctx, "Expected checksum is not a SHA-256 digest", "expected", r.cfg.ExpectedChecksum)
	}

	verification, err := checksum.Verify(r.result.ArtifactPath, r.cfg.ExpectedChecksum)
	r.result.Verification = verification

	if err != nil {
		logger.ErrorKV(ctx, "Checksum verification failed, aborting installation", "error", err)
		return stageErr(StageVerify, err)
	}

	if verification.Skipped {
		logger.InfoKV(ctx, "No expected checksum configured, skipping verification",
			"sha256", verification.Computed)

		return nil
	}

	logger.InfoKV(ctx, "Checksum verified", "sha256", verification.Computed)

	return nil
}

// installFromImage mounts the artifact, installs the package and always unmounts.
func (r *runner) installFromImage(ctx context.Context) (err error) {
	logger.InfoKV(ctx, "Mounting disk image", "path", r.result.ArtifactPath)

	volume, err := r.mounter.Attach(ctx, r.result.ArtifactPath)
	if err != nil {
		logger.ErrorKV(ctx, "Mount failed", "error", err)
		return stageErr(StageMount, err)
	}

	r.result.Volume = volume
	logger.InfoKV(ctx, "Disk image mounted", "volume", volume.Name, "mount_point", volume.MountPoint)

	defer func() {
		if detachErr := r.mounter.Detach(context.WithoutCancel(ctx), volume); detachErr != nil {
			logger.ErrorKV(ctx, "Unmount failed", "volume", volume.Name, "error", detachErr)

			if err == nil {
				err = stageErr(StageUnmount, detachErr)
			}

			return
		}

		logger.InfoKV(ctx, "Disk image unmounted", "volume", volume.Name)
	}()

	logger.InfoKV(ctx, "Installing package", "package", pkginstall.PackagePath(volume, r.cfg.PackageName),
		"target", r.cfg.InstallTarget)

	if err = r.pkg.Install(ctx, volume, r.cfg.PackageName); err != nil {
		logger.ErrorKV(ctx, "Installation failed", "product", r.cfg.ProductName, "error", err)
		return stageErr(StageInstall, err)
	}

	r.result.Installed = true
	logger.InfoKV(ctx, "Installation succeeded", "product", r.cfg.ProductName)

	return nil
}

// cleanup removes the temporary directory and everything in it.
func (r *runner) cleanup(ctx context.Context, workDir string) error {
	if err := os.RemoveAll(workDir); err != nil {
		logger.ErrorKV(ctx, "Unable to remove temporary directory", "path", workDir, "error", err)
		return stageErr(StageCleanup, err)
	}

	logger.InfoKV(ctx, "Temporary directory removed", "path", workDir)

	return nil
}
