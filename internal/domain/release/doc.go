// Package release turns an optional target version into the download URL of
// a disk image. It performs no I/O so the URL is known before any request.
package release
