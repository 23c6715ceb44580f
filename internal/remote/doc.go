// Package remote talks to the distribution server: a header-only request
// reports the newest published version and a GET streams a disk image to
// disk. Redirects are followed in both cases.
package remote
