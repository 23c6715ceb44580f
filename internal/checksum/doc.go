// Package checksum computes SHA-256 digests of downloaded artifacts and
// compares them with an expected value. An empty expected value skips the
// comparison but the digest is still computed so it can be logged.
package checksum
