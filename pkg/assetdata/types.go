package assetdata

import (
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/Voskan/assetcache/internal/cacheobject"
	"github.com/Voskan/assetcache/internal/rwspinlock"
	"github.com/Voskan/assetcache/pkg/assetpath"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

// Handle is the shared object associated with a TypeInfo: the canonical
// deserialized prototype plus its reference counts. Grounded on spec §3's
// AssetHandle ("prototype | null, strongRefs, weakRefs, back-pointer").
type Handle struct {
	owner      *TypeInfo
	prototype  atomic.Pointer[any]
	strongRefs atomic.Uint32
	weakRefs   atomic.Uint32
}

// Prototype returns the current prototype object, or nil if none exists.
func (h *Handle) Prototype() any {
	p := h.prototype.Load()
	if p == nil {
		return nil
	}
	return *p
}

// StrongRefs and WeakRefs expose the atomic counters for metrics and tests.
func (h *Handle) StrongRefs() uint32 { return h.strongRefs.Load() }
func (h *Handle) WeakRefs() uint32   { return h.weakRefs.Load() }

// Type returns the owning TypeInfo.
func (h *Handle) Type() *TypeInfo { return h.owner }

// Instance is a cloned, owned copy of a prototype (spec's GLOSSARY entry).
// Instances are tracked by the owning type through a weak reference so the
// registry never keeps an instance alive past its caller's use of it.
type Instance struct {
	Type  *TypeInfo
	Value any
}

// instanceList is the per-type weak-reference list described in spec §5
// ("AssetTypeInfo instance list: spin mutex; only touched under the type's
// read lock"). rwspinlock.RWSpinLock is reused as a plain spinning mutex
// (Lock/Unlock only) rather than adding a second spinlock primitive for a
// single caller.
type instanceList struct {
	spin rwspinlock.RWSpinLock
	refs []weak.Pointer[Instance]
}

func (l *instanceList) add(ptr weak.Pointer[Instance]) {
	l.spin.Lock()
	defer l.spin.Unlock()
	l.refs = append(l.refs, ptr)
}

// liveCount resolves every weak reference, reporting how many are still
// alive. Used by UnloadPrototype's precondition check.
func (l *instanceList) liveCount() int {
	l.spin.Lock()
	defer l.spin.Unlock()
	n := 0
	for _, r := range l.refs {
		if r.Value() != nil {
			n++
		}
	}
	return n
}

// sweep is the garbage collection pass spec §4.4 describes for
// Controller.Update(): swap-erase dead weak references. Returns the
// number removed.
func (l *instanceList) sweep() int {
	l.spin.Lock()
	defer l.spin.Unlock()
	live := l.refs[:0]
	removed := 0
	for _, r := range l.refs {
		if r.Value() != nil {
			live = append(live, r)
		} else {
			removed++
		}
	}
	l.refs = live
	return removed
}

// live returns every currently-resolvable instance, used by UpdateInstances.
func (l *instanceList) live() []*Instance {
	l.spin.Lock()
	defer l.spin.Unlock()
	out := make([]*Instance, 0, len(l.refs))
	for _, r := range l.refs {
		if v := r.Value(); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// TypeInfo is the per-asset record, one per registered path. Grounded on
// spec §3's AssetTypeInfo attribute list. The per-record lock is a plain
// sync.RWMutex (spec §5: "per-record RW (non-spin); may block;
// serialization round-trips occur under read").
type TypeInfo struct {
	mu sync.RWMutex

	path         assetpath.Path
	domain       string
	blockType    cacheblocktype.Type
	uid          uint32
	concreteType string
	parent       *TypeInfo

	cacheIndex cacheobject.Index
	hasIndex   bool

	loadState atomic.Int32
	opState   atomic.Int32

	modifyHash uint64
	modifyDate time.Time

	handle    *Handle
	instances instanceList

	depMu      rwspinlock.RWSpinLock
	dependsOn  []dependency
	dependedBy []dependency
}

type dependency struct {
	target *TypeInfo
	weak   bool
}

// Domain, BlockType, and UID implement pkg/assetcache.AssetRef so a
// *TypeInfo can be passed directly to the AssetCacheController's
// Write/Read/Delete/FindIndex/FindObject.
func (t *TypeInfo) Domain() string                   { return t.domain }
func (t *TypeInfo) BlockType() cacheblocktype.Type    { return t.blockType }
func (t *TypeInfo) UID() uint32                       { return t.uid }

// Path returns the parsed AssetPath this record was registered under.
func (t *TypeInfo) Path() assetpath.Path { return t.path }

// ConcreteType returns the reflected type name backing this record.
func (t *TypeInfo) ConcreteType() string { return t.concreteType }

// Parent returns the type this record inherits fallback lookup from, or
// nil for a root (engine concrete-type) record.
func (t *TypeInfo) Parent() *TypeInfo { return t.parent }

// Handle returns the record's AssetHandle (created lazily by
// Controller.CreatePrototype).
func (t *TypeInfo) Handle() *Handle { return t.handle }

// LoadState returns the current lifecycle stage.
func (t *TypeInfo) LoadState() LoadState { return LoadState(t.loadState.Load()) }

// OpState returns the current in-flight-operation slot value.
func (t *TypeInfo) OpState() OpState { return OpState(t.opState.Load()) }

// CacheIndex returns the record's last known (uid, blobID, objectID)
// locator and whether one has ever been assigned.
func (t *TypeInfo) CacheIndex() (cacheobject.Index, bool) { return t.cacheIndex, t.hasIndex }

// Lock/Unlock/RLock/RUnlock expose the per-record lock directly: spec
// §4.4 documents CreatePrototype/UnloadPrototype as requiring "the caller
// holds the type's write lock" rather than acquiring it internally, so
// callers (typically an AssetOp) must bracket those calls explicitly.
func (t *TypeInfo) Lock()    { t.mu.Lock() }
func (t *TypeInfo) Unlock()  { t.mu.Unlock() }
func (t *TypeInfo) RLock()   { t.mu.RLock() }
func (t *TypeInfo) RUnlock() { t.mu.RUnlock() }

// Dependencies returns the targets this type depends on.
func (t *TypeInfo) Dependencies() []*TypeInfo {
	t.depMu.RLock()
	defer t.depMu.RUnlock()
	out := make([]*TypeInfo, len(t.dependsOn))
	for i, d := range t.dependsOn {
		out[i] = d.target
	}
	return out
}

// Dependents returns the types that declared a dependency on t.
func (t *TypeInfo) Dependents() []*TypeInfo {
	t.depMu.RLock()
	defer t.depMu.RUnlock()
	out := make([]*TypeInfo, len(t.dependedBy))
	for i, d := range t.dependedBy {
		out[i] = d.target
	}
	return out
}
