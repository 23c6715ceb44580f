// Package version exposes build metadata for dmg-installer.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Short is also used as the User-Agent suffix of outgoing requests.
package version
