// Package cacheblob implements CacheBlob: a fixed-capacity byte arena that
// tracks a sequence of CacheObject slots (uid, offset, size, capacity)
// within one file-sized region.
//
// The blob does not read or write any bytes itself — it only tracks what an
// object is (uid), where it is (location, relative to the blob), and how
// big it is (size, capacity). Capacity can exceed size so an object can be
// updated in place up to its reserved capacity without moving; beyond that
// the object must be destroyed and re-reserved (by the owning CacheBlock),
// which fragments the blob until a defragmentation pass compacts it.
//
// Grounded line-for-line on the original engine's
// Runtime/Asset/CacheBlob.cpp.
//
// © 2025 arena-cache authors. MIT License.
package cacheblob

import (
	"github.com/Voskan/assetcache/internal/bugreport"
	"github.com/Voskan/assetcache/internal/cacheobject"
)

// Stable, testable bug-report messages (spec §6).
const (
	ErrBlobInitialized    = "CacheBlob is already initialized!"
	ErrBlobNotInitialized = "CacheBlob is not initialized!"
	ErrInvalidCapacity    = "Invalid argument 'capacity'"
	ErrInvalidAssetID     = "Invalid argument 'assetID'"
	ErrInvalidSize        = "Invalid argument 'size'"
	ErrInvalidObjectID    = "Invalid argument 'objectID'"
	ErrObjectIDNotAssoc   = "Invalid operation, 'objectID' is not associated with this CacheBlob"
	ErrObjectNull         = "Invalid operation, the cache object associated with 'objectID' is null."
)

const invalid32 = cacheobject.Invalid

// ObjectID indexes a CacheObject within a blob's object vector.
type ObjectID = uint32

// Blob is a contiguous region plus its object vector. It is not safe for
// concurrent use; callers (CacheBlock) serialize access with a lock.
type Blob struct {
	objects  []cacheobject.Object
	used     uint32
	reserved uint32
	capacity uint32
}

// New constructs an uninitialized blob. Call Initialize before use.
func New() *Blob { return &Blob{} }

// Initialize sets the blob's capacity and seeds it with a (possibly empty)
// list of objects carried over from a previous load. It is a bug to call
// Initialize twice, or with a zero capacity.
func (b *Blob) Initialize(objects []cacheobject.Object, capacity uint32) {
	if capacity == 0 {
		bugreport.Report(ErrInvalidCapacity)
		return
	}
	if b.used != 0 || b.reserved != 0 || b.capacity != 0 {
		bugreport.Report(ErrBlobInitialized)
		return
	}
	b.objects = append([]cacheobject.Object(nil), objects...)
	b.capacity = capacity
	b.recalculate()
}

// Release clears the blob back to its zero state.
func (b *Blob) Release() {
	b.objects = nil
	b.used = 0
	b.reserved = 0
	b.capacity = 0
}

func (b *Blob) recalculate() {
	var used, reserved uint32
	for _, o := range b.objects {
		used += o.Size
		reserved += o.Capacity
	}
	b.used = used
	b.reserved = reserved
}

// Reserve attempts to allocate space for uid of the given size, following
// spec §4.1's algorithm:
//  1. reject invalid uid/size/uninitialized blob as bugs
//  2. reject if size can't possibly fit in capacity-used (global check)
//  3. first-fit over tombstones (capacity >= size, reinstated in place)
//  4. else append to the trailing free region if capacity-reserved >= size
//  5. else fail (not a bug — a routine capacity outcome)
func (b *Blob) Reserve(uid uint32, size uint32) (ObjectID, bool) {
	if uid == invalid32 {
		bugreport.Report(ErrInvalidAssetID)
		return invalid32, false
	}
	if size == 0 {
		bugreport.Report(ErrInvalidSize)
		return invalid32, false
	}
	if b.capacity == 0 {
		bugreport.Report(ErrBlobNotInitialized)
		return invalid32, false
	}

	if size > b.capacity-b.used {
		return invalid32, false
	}

	for i := range b.objects {
		if b.objects[i].IsTombstone() && b.objects[i].Capacity >= size {
			b.objects[i].UID = uid
			b.objects[i].Size = size
			b.used += size
			return uint32(i), true
		}
	}

	freeBytes := b.capacity - b.reserved
	if freeBytes >= size {
		var location uint32
		id := uint32(len(b.objects))
		if id > 0 {
			last := b.objects[id-1]
			location = last.Location + last.Capacity
		}
		b.objects = append(b.objects, cacheobject.Object{
			UID:      uid,
			Location: location,
			Size:     size,
			Capacity: size,
		})
		b.used += size
		b.reserved += size
		return id, true
	}

	return invalid32, false
}

// Update resizes the object at objectID in place. It fails (without being a
// bug) when the requested size exceeds the slot's reserved capacity.
func (b *Blob) Update(objectID ObjectID, size uint32) bool {
	if objectID == invalid32 {
		bugreport.Report(ErrInvalidObjectID)
		return false
	}
	if b.capacity == 0 {
		bugreport.Report(ErrBlobNotInitialized)
		return false
	}
	if objectID >= uint32(len(b.objects)) {
		bugreport.Report(ErrObjectIDNotAssoc)
		return false
	}
	obj := &b.objects[objectID]
	if obj.IsTombstone() {
		bugreport.Report(ErrObjectNull)
		return false
	}
	if obj.Capacity < size {
		return false
	}
	b.used -= obj.Size
	obj.Size = size
	b.used += size
	return true
}

// Destroy tombstones the object at objectID: its uid is cleared but its
// capacity is retained so later slots keep their offsets.
func (b *Blob) Destroy(objectID ObjectID) bool {
	if objectID == invalid32 {
		bugreport.Report(ErrInvalidObjectID)
		return false
	}
	if b.capacity == 0 {
		bugreport.Report(ErrBlobNotInitialized)
		return false
	}
	if objectID >= uint32(len(b.objects)) {
		bugreport.Report(ErrObjectIDNotAssoc)
		return false
	}
	obj := &b.objects[objectID]
	if obj.IsTombstone() {
		bugreport.Report(ErrObjectNull)
		return false
	}
	b.used -= obj.Size
	obj.UID = invalid32
	obj.Size = 0
	return true
}

// GetObject returns a copy of the object at objectID.
func (b *Blob) GetObject(objectID ObjectID) (cacheobject.Object, bool) {
	if objectID == invalid32 {
		bugreport.Report(ErrInvalidObjectID)
		return cacheobject.Object{}, false
	}
	if b.capacity == 0 {
		bugreport.Report(ErrBlobNotInitialized)
		return cacheobject.Object{}, false
	}
	if objectID >= uint32(len(b.objects)) {
		bugreport.Report(ErrObjectIDNotAssoc)
		return cacheobject.Object{}, false
	}
	return b.objects[objectID], true
}

// Size returns the number of object slots (live + tombstone) in the blob.
func (b *Blob) Size() int { return len(b.objects) }

// BytesUsed returns the sum of Size across non-tombstone objects.
func (b *Blob) BytesUsed() uint32 { return b.used }

// BytesReserved returns the sum of Capacity across all objects.
func (b *Blob) BytesReserved() uint32 { return b.reserved }

// Capacity returns the blob's total configured capacity.
func (b *Blob) Capacity() uint32 { return b.capacity }

// FragmentedBytes returns the sum of Capacity across tombstone objects.
func (b *Blob) FragmentedBytes() uint32 {
	var total uint32
	for _, o := range b.objects {
		if o.IsTombstone() {
			total += o.Capacity
		}
	}
	return total
}

// FragmentedObjects counts tombstone slots.
func (b *Blob) FragmentedObjects() int {
	var total int
	for _, o := range b.objects {
		if o.IsTombstone() {
			total++
		}
	}
	return total
}

// Objects returns a read-only snapshot of the object vector, in placement
// order. Used by CacheBlock for persistence and defrag planning.
func (b *Blob) Objects() []cacheobject.Object {
	out := make([]cacheobject.Object, len(b.objects))
	copy(out, b.objects)
	return out
}
