// Package pkginstall runs the macOS package installer against a package
// found at the root of a mounted volume.
package pkginstall
