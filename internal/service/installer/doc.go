// Package installer runs the download, verify, mount, install and cleanup
// pipeline for a vendor disk image.
//
// Every stage returns an explicit error which Run wraps in a StageError; the
// temporary directory, the mounted volume and the run lock are released by
// deferred calls on every exit path.
package installer
