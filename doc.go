// Package main provides the wfs command-line interface.
//
// wfs stores a complete filesystem as an append-only log inside one
// fixed-size image file and serves it over FUSE.
//
// The main binary supports multiple subcommands:
//   - mkfs: Format a new image
//   - mount: Mount an image at a mountpoint
//   - compact: Reclaim space from superseded and deleted records
//   - fsck: Check an image for consistency
//   - inspect: Dump the records of an image
//   - seed: Generate test files inside an image
//   - restore: Unpack an image backup
package main
