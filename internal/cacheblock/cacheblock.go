// Package cacheblock implements CacheBlock: a named collection of
// CacheBlobs plus a uid -> (blobID, objectID) index, backed by an
// internal/rwspinlock so lookups never block behind an in-flight mutation
// for longer than a memory copy.
//
// A block owns the placement policy across its blobs: Create tries each
// existing blob in turn before appending a new one, Update tries an
// in-place resize before falling back to destroy-then-reserve (possibly in
// a different blob), and GetDefragSteps produces a compaction plan without
// mutating the block itself.
//
// Grounded on the original engine's Runtime/Asset/CacheBlock.cpp.
//
// © 2025 arena-cache authors. MIT License.
package cacheblock

import (
	"sort"

	"github.com/Voskan/assetcache/internal/bugreport"
	"github.com/Voskan/assetcache/internal/cacheblob"
	"github.com/Voskan/assetcache/internal/cacheobject"
	"github.com/Voskan/assetcache/internal/rwspinlock"
)

// Stable, testable bug-report messages (spec §6).
const (
	ErrInitialized          = "CacheBlock is already initialized!"
	ErrInitializationNeeded = "CacheBlock requires initialization!"
	ErrObjectExists         = "Invalid operation, an object with this 'uid' already exists!"
	ErrInvalidSize          = "Invalid argument 'size'"
	ErrInvalidName          = "Invalid argument 'name'"
	ErrInvalidDefaultCap    = "Invalid argument 'defaultCapacity'"
	ErrInvalidUID           = "Invalid argument 'uid'"
	ErrInvalidIndex         = "Invalid argument 'index'"
)

const invalid32 = cacheobject.Invalid

// Block is a named collection of blobs with a live uid index. The zero
// value is not usable; construct with New.
type Block struct {
	lock            rwspinlock.RWSpinLock
	name            string
	defaultCapacity uint32
	blobs           []*cacheblob.Blob
	indices         map[uint32]cacheobject.Index
	initialized     bool
}

// New constructs an uninitialized block.
func New() *Block {
	return &Block{indices: make(map[uint32]cacheobject.Index)}
}

// Initialize names the block and sets the capacity used for any blob it
// appends on demand. It is a bug to call twice, or with a zero
// defaultCapacity or empty name.
func (c *Block) Initialize(name string, defaultCapacity uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if name == "" {
		bugreport.Report(ErrInvalidName)
		return
	}
	if defaultCapacity == 0 {
		bugreport.Report(ErrInvalidDefaultCap)
		return
	}
	if c.initialized {
		bugreport.Report(ErrInitialized)
		return
	}
	c.name = name
	c.defaultCapacity = defaultCapacity
	c.initialized = true
}

// Release clears the block back to its zero state.
func (c *Block) Release() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.name = ""
	c.defaultCapacity = 0
	c.blobs = nil
	c.indices = make(map[uint32]cacheobject.Index)
	c.initialized = false
}

// Name returns the block's configured name.
func (c *Block) Name() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.name
}

// Snapshot captures the block's persistent state: its name, default
// capacity, the live index table, and every blob's object vector in
// placement order. Used by pkg/assetcache to serialize a .lfindex file.
type Snapshot struct {
	Name            string
	DefaultCapacity uint32
	Indices         []cacheobject.Index
	Blobs           [][]cacheobject.Object
}

// Snapshot returns a point-in-time copy of the block's persistent state.
func (c *Block) Snapshot() Snapshot {
	c.lock.RLock()
	defer c.lock.RUnlock()

	indices := make([]cacheobject.Index, 0, len(c.indices))
	for _, idx := range c.indices {
		indices = append(indices, idx)
	}
	blobs := make([][]cacheobject.Object, len(c.blobs))
	for i, blob := range c.blobs {
		blobs[i] = blob.Objects()
	}
	return Snapshot{
		Name:            c.name,
		DefaultCapacity: c.defaultCapacity,
		Indices:         indices,
		Blobs:           blobs,
	}
}

// Restore replaces the block's contents with a previously captured
// Snapshot. It is a bug to call Restore on an already-initialized block.
func (c *Block) Restore(snap Snapshot) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.initialized {
		bugreport.Report(ErrInitialized)
		return
	}

	c.name = snap.Name
	c.defaultCapacity = snap.DefaultCapacity
	c.blobs = make([]*cacheblob.Blob, len(snap.Blobs))
	for i, objs := range snap.Blobs {
		blob := cacheblob.New()
		blob.Initialize(objs, snap.DefaultCapacity)
		c.blobs[i] = blob
	}
	c.indices = make(map[uint32]cacheobject.Index, len(snap.Indices))
	for _, idx := range snap.Indices {
		c.indices[idx.UID] = idx
	}
	c.initialized = true
}

// Create reserves size bytes for uid, trying each existing blob in
// placement order before appending a new blob of defaultCapacity. It is a
// bug to create a uid that already exists, pass an invalid uid/size, or
// call before Initialize.
func (c *Block) Create(uid uint32, size uint32) (cacheobject.Index, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.initialized {
		bugreport.Report(ErrInitializationNeeded)
		return cacheobject.Index{}, false
	}
	if uid == invalid32 {
		bugreport.Report(ErrInvalidUID)
		return cacheobject.Index{}, false
	}
	if size == 0 {
		bugreport.Report(ErrInvalidSize)
		return cacheobject.Index{}, false
	}
	if _, exists := c.indices[uid]; exists {
		bugreport.Report(ErrObjectExists)
		return cacheobject.Index{}, false
	}

	for blobID, blob := range c.blobs {
		if objID, ok := blob.Reserve(uid, size); ok {
			idx := cacheobject.Index{UID: uid, BlobID: uint32(blobID), ObjectID: objID}
			c.indices[uid] = idx
			return idx, true
		}
	}

	blob := cacheblob.New()
	blob.Initialize(nil, c.defaultCapacity)
	objID, ok := blob.Reserve(uid, size)
	if !ok {
		// A brand-new blob of defaultCapacity could not hold size: the
		// caller asked for an object larger than the block's blob size.
		return cacheobject.Index{}, false
	}
	blobID := uint32(len(c.blobs))
	c.blobs = append(c.blobs, blob)
	idx := cacheobject.Index{UID: uid, BlobID: blobID, ObjectID: objID}
	c.indices[uid] = idx
	return idx, true
}

// Update resizes uid's object, trying an in-place resize in its current
// blob first, then destroy-and-reserve in the same blob, then Create-style
// placement across the remaining blobs (and finally a new blob).
func (c *Block) Update(uid uint32, size uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.initialized {
		bugreport.Report(ErrInitializationNeeded)
		return false
	}
	if size == 0 {
		bugreport.Report(ErrInvalidSize)
		return false
	}
	idx, exists := c.indices[uid]
	if !exists {
		bugreport.Report(ErrInvalidUID)
		return false
	}

	blob := c.blobs[idx.BlobID]
	if blob.Update(idx.ObjectID, size) {
		return true
	}

	blob.Destroy(idx.ObjectID)
	if objID, ok := blob.Reserve(uid, size); ok {
		c.indices[uid] = cacheobject.Index{UID: uid, BlobID: idx.BlobID, ObjectID: objID}
		return true
	}

	for blobID, other := range c.blobs {
		if uint32(blobID) == idx.BlobID {
			continue
		}
		if objID, ok := other.Reserve(uid, size); ok {
			c.indices[uid] = cacheobject.Index{UID: uid, BlobID: uint32(blobID), ObjectID: objID}
			return true
		}
	}

	fresh := cacheblob.New()
	fresh.Initialize(nil, c.defaultCapacity)
	objID, ok := fresh.Reserve(uid, size)
	if !ok {
		delete(c.indices, uid)
		return false
	}
	blobID := uint32(len(c.blobs))
	c.blobs = append(c.blobs, fresh)
	c.indices[uid] = cacheobject.Index{UID: uid, BlobID: blobID, ObjectID: objID}
	return true
}

// Destroy removes uid's index entry and tombstones its backing object.
func (c *Block) Destroy(uid uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	idx, exists := c.indices[uid]
	if !exists {
		bugreport.Report(ErrInvalidUID)
		return false
	}
	c.blobs[idx.BlobID].Destroy(idx.ObjectID)
	delete(c.indices, uid)
	return true
}

// DestroyObject destroys by direct (blobID, objectID) address, bypassing
// the uid index. Used when the caller already holds the locator triple
// (e.g. during a defrag replay) and the uid may have been reused.
func (c *Block) DestroyObject(blobID, objectID uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if blobID >= uint32(len(c.blobs)) {
		bugreport.Report(ErrInvalidIndex)
		return false
	}
	obj, ok := c.blobs[blobID].GetObject(objectID)
	if !ok {
		return false
	}
	if obj.UID != invalid32 {
		delete(c.indices, obj.UID)
	}
	return c.blobs[blobID].Destroy(objectID)
}

// DestroyIndex removes the index entry for uid without touching its
// backing blob object (used when a blob has already been released wholesale,
// e.g. during domain teardown).
func (c *Block) DestroyIndex(uid uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, exists := c.indices[uid]; !exists {
		return false
	}
	delete(c.indices, uid)
	return true
}

// Find returns the locator triple for uid.
func (c *Block) Find(uid uint32) (cacheobject.Index, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	idx, ok := c.indices[uid]
	return idx, ok
}

// FindObject resolves uid to its underlying CacheObject via the index,
// falling back to a linear scan across blobs if the index entry is
// missing (spec's defensive fallback, see AssetCacheController::FindObject).
func (c *Block) FindObject(uid uint32) (cacheobject.Object, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if idx, ok := c.indices[uid]; ok {
		return c.blobs[idx.BlobID].GetObject(idx.ObjectID)
	}
	for _, blob := range c.blobs {
		for _, obj := range blob.Objects() {
			if obj.UID == uid {
				return obj, true
			}
		}
	}
	return cacheobject.Object{}, false
}

// GetObject resolves a raw (blobID, objectID) locator.
func (c *Block) GetObject(blobID, objectID uint32) (cacheobject.Object, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if blobID >= uint32(len(c.blobs)) {
		bugreport.Report(ErrInvalidIndex)
		return cacheobject.Object{}, false
	}
	return c.blobs[blobID].GetObject(objectID)
}

// GetBlobStat snapshots one blob's accounting.
func (c *Block) GetBlobStat(blobID uint32) (cacheobject.BlobStats, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if blobID >= uint32(len(c.blobs)) {
		return cacheobject.BlobStats{}, false
	}
	blob := c.blobs[blobID]
	return cacheobject.BlobStats{
		BytesUsed:            uint64(blob.BytesUsed()),
		BytesReserved:        uint64(blob.BytesReserved()),
		BytesFragmented:      uint64(blob.FragmentedBytes()),
		Capacity:             uint64(blob.Capacity()),
		NumObjects:           blob.Size(),
		NumObjectsFragmented: blob.FragmentedObjects(),
		Block:                c.name,
		BlobID:               int(blobID),
	}, true
}

// NumBlobs returns the number of blobs currently owned by the block.
func (c *Block) NumBlobs() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.blobs)
}

// liveObject pairs a uid with its current size, used internally while
// planning a defragmentation pass.
type liveObject struct {
	uid  uint32
	size uint32
}

// GetDefragSteps simulates compacting every live object into a fresh
// sequence of blobs of defaultCapacity, largest objects first, and returns
// the resulting copy plan sorted by (destination blob, size ascending).
// The receiver is not mutated; the caller replays the steps and then
// swaps the replica in.
func (c *Block) GetDefragSteps() []cacheobject.DefragStep {
	c.lock.RLock()

	var live []liveObject
	srcLocation := make(map[uint32]struct{ blobID, objectID uint32 })
	for blobID, blob := range c.blobs {
		for objID, obj := range blob.Objects() {
			if obj.IsTombstone() {
				continue
			}
			live = append(live, liveObject{uid: obj.UID, size: obj.Size})
			srcLocation[obj.UID] = struct{ blobID, objectID uint32 }{uint32(blobID), uint32(objID)}
		}
	}
	defaultCapacity := c.defaultCapacity
	c.lock.RUnlock()

	sort.SliceStable(live, func(i, j int) bool { return live[i].size > live[j].size })

	replica := New()
	replica.Initialize("__defrag__", defaultCapacity)

	steps := make([]cacheobject.DefragStep, 0, len(live))
	for _, lo := range live {
		idx, ok := replica.Create(lo.uid, lo.size)
		if !ok {
			// Should not happen: defaultCapacity is the same as the
			// original block's, so anything that fit before fits again.
			bugreport.Report(ErrInvalidSize)
			continue
		}
		src := srcLocation[lo.uid]
		steps = append(steps, cacheobject.DefragStep{
			UID:          lo.uid,
			Size:         lo.size,
			SrcBlobID:    src.blobID,
			SrcObjectID:  src.objectID,
			DestBlobID:   idx.BlobID,
			DestObjectID: idx.ObjectID,
		})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].DestBlobID != steps[j].DestBlobID {
			return steps[i].DestBlobID < steps[j].DestBlobID
		}
		return steps[i].Size < steps[j].Size
	})
	return steps
}
