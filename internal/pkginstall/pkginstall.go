package pkginstall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/dmg-installer/internal/diskimage"
	"github.com/oshokin/dmg-installer/internal/logger"
	"github.com/oshokin/dmg-installer/internal/system"
)

const (
	// installerTool is the macOS package installer.
	installerTool = "installer"
	// DefaultTarget installs onto the running system volume.
	DefaultTarget = "/"
)

var (
	// ErrPackageNotFound is returned when the volume does not contain the package.
	ErrPackageNotFound = errors.New("package not found on volume")
	// errNoVolume is returned when Install is called without a mounted volume.
	errNoVolume = errors.New("volume is not mounted")
)

// Installer invokes `installer -pkg <pkg> -target <target>`.
type Installer struct {
	cmd    system.Commander
	target string
}

// New creates an Installer. An empty target means DefaultTarget.
func New(cmd system.Commander, target string) *Installer {
	if target == "" {
		target = DefaultTarget
	}

	return &Installer{
		cmd:    cmd,
		target: target,
	}
}

// PackagePath returns where packageName is expected on volume.
func PackagePath(volume *diskimage.Volume, packageName string) string {
	return filepath.Join(volume.MountPoint, packageName)
}

// Install checks that the package exists on the volume and installs it.
func (i *Installer) Install(ctx context.Context, volume *diskimage.Volume, packageName string) error {
	if volume == nil {
		return errNoVolume
	}

	pkgPath := PackagePath(volume, packageName)

	info, err := os.Stat(pkgPath)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", pkgPath, ErrPackageNotFound)
	case err != nil:
		return fmt.Errorf("stat %s: %w", pkgPath, err)
	case info.Size() == 0 && !info.IsDir():
		// Flat packages are files, bundle packages are directories; an empty file is neither.
		return fmt.Errorf("%s is empty: %w", pkgPath, ErrPackageNotFound)
	}

	out, err := i.cmd.Run(ctx, system.Command{
		Name: installerTool,
		Args: []string{"-pkg", pkgPath, "-target", i.target},
	})

	for line := range strings.Lines(string(out)) {
		if line = strings.TrimSpace(line); line != "" {
			logger.DebugKV(ctx, "installer output", "line", line)
		}
	}

	if err != nil {
		return fmt.Errorf("install %s: %w", pkgPath, err)
	}

	return nil
}
