// Package wfs is the filesystem engine over a log-structured image.
//
// All state lives in the log kept by package disk. The current version of
// an id is the last record for it below head, so every mutation is an
// append followed by one superblock write that moves head past it.
// Lookups scan the log; there is no index. Compact rewrites the log to
// keep only the newest live record of each id.
//
// An FS is safe for concurrent use. Mutations are serialized and readers
// never observe a record head does not yet cover.
package wfs
