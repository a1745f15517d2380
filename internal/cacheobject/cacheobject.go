// Package cacheobject defines the value types shared by CacheBlob and
// CacheBlock: the (uid, location, size, capacity) record naming bytes
// inside a blob, the (uid, blobID, objectID) locator handle, the
// defragmentation copy-command, and the per-blob stats snapshot.
//
// Grounded on the original engine's Runtime/Asset/CacheTypes.h.
//
// © 2025 arena-cache authors. MIT License.
package cacheobject

import "math"

// Invalid is the sentinel UID/blob-id/object-id value meaning "unset" or,
// for CacheObject.UID, "tombstone".
const Invalid uint32 = math.MaxUint32

// Object is one record for a live or dead slot within a CacheBlob.
type Object struct {
	UID      uint32 // Invalid denotes a tombstone
	Location uint32 // byte offset from the start of the blob
	Size     uint32 // currently-used bytes (<= Capacity)
	Capacity uint32 // reserved bytes; does not shrink on in-place updates
}

// IsTombstone reports whether this object slot has been destroyed but
// still reserves its capacity to keep successor offsets stable.
func (o Object) IsTombstone() bool { return o.UID == Invalid }

// Index is the locator triple (uid, blobID, objectID). It is "valid" iff
// all three fields are set (none equal to Invalid).
type Index struct {
	UID      uint32
	BlobID   uint32
	ObjectID uint32
}

// Valid reports whether every field of the index is set.
func (i Index) Valid() bool {
	return i.UID != Invalid && i.BlobID != Invalid && i.ObjectID != Invalid
}

// DefragStep is one copy command produced by a defragmentation plan:
// relocate UID's Size bytes from (SrcBlob, SrcObject) to
// (DestBlob, DestObject) in a fresh replica block.
type DefragStep struct {
	UID         uint32
	Size        uint32
	SrcBlobID   uint32
	SrcObjectID uint32
	DestBlobID  uint32
	DestObjectID uint32
}

// BlobStats is a point-in-time snapshot of one blob's accounting, used for
// metrics export and the CLI inspector.
type BlobStats struct {
	BytesUsed             uint64
	BytesReserved         uint64
	BytesFragmented       uint64
	Capacity              uint64
	NumObjects            int
	NumObjectsFragmented  int
	Block                 string
	BlobID                int
}
