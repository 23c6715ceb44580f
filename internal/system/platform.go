package system

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedOS indicates the current OS cannot mount disk images or run
// the macOS package installer.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// EnsureDarwin returns ErrUnsupportedOS anywhere but macOS.
func EnsureDarwin() error {
	return ensureOS(runtime.GOOS)
}

func ensureOS(goos string) error {
	if strings.Contains(strings.ToLower(goos), "darwin") {
		return nil
	}

	return fmt.Errorf("%s: %w", goos, ErrUnsupportedOS)
}
