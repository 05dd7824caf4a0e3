// Package disk defines the on-disk format of a wfs image and the byte
// region that holds it.
//
// An image is a single fixed-capacity file:
//
//	offset 0    SuperBlock{Magic, Head}                 8 bytes
//	offset 8    Inode + payload, Inode + payload, ...   the log
//	offset Head free space up to the end of the file
//
// Every record starts with an Inode of eleven little-endian uint32 fields
// followed by Inode.Size payload bytes. Directory payloads are packed
// arrays of 40-byte entries (32-byte zero-padded name, uint64 id); regular
// file payloads are the file content.
//
// Head is the only commit point: bytes at or past Head are never part of
// the log, so a record becomes visible only once Head moves past its end.
package disk
