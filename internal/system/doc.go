// Package system wraps the host facilities the installer depends on:
// running external tools, checking the platform and identifying who runs
// the installer.
package system
