package diskimage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/dmg-installer/internal/system"
)

const (
	// hdiutil is the macOS disk image tool.
	hdiutil = "hdiutil"
	// licenseAnswers is how many "Y" lines are offered to a license prompt.
	licenseAnswers = 8
)

// ErrNoVolume is returned when hdiutil output names no mounted volume.
var ErrNoVolume = errors.New("no mounted volume in hdiutil output")

// Volume is an attached disk image.
type Volume struct {
	// Device is the /dev node of the mounted partition.
	Device string
	// MountPoint is the absolute path under /Volumes.
	MountPoint string
	// Name is the volume name, i.e. the last element of MountPoint.
	Name string
}

// Mounter attaches and detaches disk images.
type Mounter struct {
	cmd system.Commander
}

// NewMounter creates a Mounter running hdiutil through cmd.
func NewMounter(cmd system.Commander) *Mounter {
	return &Mounter{cmd: cmd}
}

// Attach mounts imagePath without showing it in Finder and returns the volume.
func (m *Mounter) Attach(ctx context.Context, imagePath string) (*Volume, error) {
	out, err := m.cmd.Run(ctx, system.Command{
		Name:  hdiutil,
		Args:  []string{"attach", "-nobrowse", "-noverify", "-noautoopen", imagePath},
		Stdin: strings.NewReader(strings.Repeat("Y\n", licenseAnswers)),
	})
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", imagePath, err)
	}

	return ParseAttachOutput(out)
}

// Detach force-unmounts the volume.
func (m *Mounter) Detach(ctx context.Context, volume *Volume) error {
	if volume == nil {
		return nil
	}

	if _, err := m.cmd.Run(ctx, system.Command{
		Name: hdiutil,
		Args: []string{"detach", volume.MountPoint, "-force"},
	}); err != nil {
		return fmt.Errorf("detach %s: %w", volume.MountPoint, err)
	}

	return nil
}

// ParseAttachOutput finds the mounted volume in `hdiutil attach` output.
// Lines look like "/dev/disk4s1<TAB>Apple_HFS<TAB>/Volumes/JamfConnect": the
// first absolute path after the device column is the mount point. License
// text echoed before the table is ignored.
func ParseAttachOutput(out []byte) (*Volume, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))

	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}

		for _, field := range fields[1:] {
			mountPoint := strings.TrimSpace(field)
			if !filepath.IsAbs(mountPoint) {
				continue
			}

			return &Volume{
				Device:     strings.TrimSpace(fields[0]),
				MountPoint: mountPoint,
				Name:       filepath.Base(mountPoint),
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hdiutil output: %w", err)
	}

	return nil, ErrNoVolume
}
