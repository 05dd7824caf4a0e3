// Package util provides the helpers shared by the wfs commands: image
// backups, content digests, seed bucketing and mount configuration.
package util

import "errors"

// Sentinel errors for package util.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Backup errors
	ErrNotBackup      = errors.New("not a wfs image backup")
	ErrBackupMismatch = errors.New("backup contents do not match its header")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Seed errors
	ErrInvalidFanout = errors.New("fanout must be between 1 and 1000")
)
