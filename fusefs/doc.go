// Package fusefs exposes a wfs engine as a FUSE filesystem using
// bazil.org/fuse.
//
// Nodes carry their path rather than an id. Each kernel request resolves
// the path again in the engine, so a node never holds stale state; the
// log is the only source of truth.
package fusefs
