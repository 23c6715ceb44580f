package installer

import (
	"errors"
	"fmt"

	"github.com/oshokin/dmg-installer/internal/checksum"
	"github.com/oshokin/dmg-installer/internal/diskimage"
)

// Stage names a pipeline step for logs and typed errors.
type Stage string

// Pipeline stages in execution order.
const (
	StageConfig   Stage = "config"
	StagePlatform Stage = "platform"
	StageLock     Stage = "lock"
	StageResolve  Stage = "resolve"
	StagePrepare  Stage = "prepare"
	StageFetch    Stage = "fetch"
	StageVerify   Stage = "verify"
	StageMount    Stage = "mount"
	StageInstall  Stage = "install"
	StageUnmount  Stage = "unmount"
	StageCleanup  Stage = "cleanup"
)

// Process exit codes.
const (
	// ExitOK is returned when the run completed.
	ExitOK = 0
	// ExitVerificationFailed is returned when the checksum gate rejected the artifact.
	ExitVerificationFailed = 1
	// ExitFailure is returned for every other failed stage.
	ExitFailure = 2
)

const (
	// logFilePrefix is the stem of the dated log file name.
	logFilePrefix = "dmg-installer"
	// workDirPattern is the os.MkdirTemp pattern of the per-run directory.
	workDirPattern = "dmg-installer-"
	// policyChecksumIndex is the zero-based position of the checksum among policy
	// arguments; management tools pass mount point, computer name and user first.
	policyChecksumIndex = 3
)

// StageError reports which stage failed and why.
type StageError struct {
	// Stage is the step that failed.
	Stage Stage
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage recorded in err, or "" when there is none.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}

	return ""
}

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, checksum.ErrMismatch):
		return ExitVerificationFailed
	default:
		return ExitFailure
	}
}

// Result describes what a run did, including on failure.
type Result struct {
	// DownloadURL is the resolved artifact URL.
	DownloadURL string
	// LatestVersion is the newest published version; empty if unknown.
	LatestVersion string
	// WorkDir is the per-run temporary directory; it no longer exists when Run returns.
	WorkDir string
	// ArtifactPath is where the disk image was downloaded inside WorkDir.
	ArtifactPath string
	// Verification is the checksum outcome once the artifact was hashed.
	Verification *checksum.Verification
	// Volume is the mounted image, if it was mounted.
	Volume *diskimage.Volume
	// Installed is true when the platform installer succeeded.
	Installed bool
}
