// Package gofusefs exposes a wfs engine as a FUSE filesystem using
// github.com/hanwen/go-fuse/v2.
//
// It is an alternative to package fusefs. Nodes hold no state of their
// own: the engine path of a node is its position in go-fuse's inode tree.
package gofusefs
