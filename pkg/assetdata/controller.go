package assetdata

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"weak"

	"go.uber.org/zap"

	"github.com/Voskan/assetcache/internal/cacheobject"
	"github.com/Voskan/assetcache/internal/rwspinlock"
	"github.com/Voskan/assetcache/pkg/assetcache"
	"github.com/Voskan/assetcache/pkg/assetpath"
	"github.com/Voskan/assetcache/pkg/assetprocessor"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

// maxUIDGenerationAttempts bounds GenerateUID's collision-retry loop,
// resolving spec §9's open question: the source draws from a secure RNG
// in an unbounded loop; this caps attempts and reports a hard error
// instead.
const maxUIDGenerationAttempts = 64

// domainState tracks one registered domain's membership, mirroring the
// original's near-empty DomainContext (spec's domain contexts exist
// mainly to gate duplicate registration and scope type enumeration).
type domainState struct {
	name string
}

// Controller is AssetDataController: the in-memory registry of
// AssetTypeInfo records, grouped by domain, keyed by path/uid/alias.
// Grounded on
// original_source/Code/Runtime/Asset/Controllers/AssetDataController.h.
type Controller struct {
	domainLock rwspinlock.RWSpinLock
	domains    map[string]*domainState

	tableLock  rwspinlock.RWSpinLock
	table      map[string]*TypeInfo // DynamicTable: path -> record
	idTable    map[uint32]*TypeInfo // DynamicIDTable: uid -> record
	aliasTable map[string]*TypeInfo // DynamicAliasTable: alias -> record

	processors assetprocessor.Registry
	cache      *assetcache.Controller
	reflector  Reflector
	logger     *zap.Logger

	loaders loaderGroup
}

// New constructs an empty Controller backed by cache for byte storage and
// processors for prototype instantiation/selection.
func New(cache *assetcache.Controller, processors assetprocessor.Registry, opts ...Option) *Controller {
	cfg := defaultConfig()
	applyOptions(cfg, opts)
	return &Controller{
		domains:    make(map[string]*domainState),
		table:      make(map[string]*TypeInfo),
		idTable:    make(map[uint32]*TypeInfo),
		aliasTable: make(map[string]*TypeInfo),
		processors: processors,
		cache:      cache,
		reflector:  cfg.reflector,
		logger:     cfg.logger,
		loaders:    loaderGroup{seed: maphash.MakeSeed()},
	}
}

/* -------------------------------------------------------------------------
   Domain lifecycle
   ------------------------------------------------------------------------- */

// LoadDomain registers domain and backs it with a CacheBlock set rooted
// at root (spec §4.3's per-domain CacheBlocks), rejecting a domain that
// already has a context per spec §4.4 step 1. Once the domain context
// exists, it runs the registration pass (step 1, already done; steps
// 2-5 via RegisterDomain) against whatever `.typemap` file already sits
// at root, so a reload of a previously-saved domain comes back with its
// full type graph wired, not just its cache blocks.
func (c *Controller) LoadDomain(domain, root string, defaultBlobCapacity uint32) bool {
	c.domainLock.Lock()
	if _, exists := c.domains[domain]; exists {
		c.domainLock.Unlock()
		return false
	}
	if !c.cache.AddDomain(domain, root, defaultBlobCapacity) {
		c.domainLock.Unlock()
		return false
	}
	c.domains[domain] = &domainState{name: domain}
	c.domainLock.Unlock()

	c.logger.Info("assetdata: domain loaded", zap.String("domain", domain))

	if err := c.RegisterDomain(domain, root); err != nil {
		c.logger.Warn("assetdata: domain registration incomplete",
			zap.String("domain", domain), zap.Error(err))
	}
	return true
}

// RegisterDomain runs spec §4.4's loadDomain steps 2-5 against domain:
// engine concrete-type enumeration and bare-name aliasing (2), type
// emplacement from the `.typemap` file at root if one exists (3), a
// second pass linking each entry's parent pointer to its declared
// parent or, failing that, to its concrete-type alias (4), and handle
// back-fill from the persisted reference counts (5). Safe to call again
// later (e.g. after WriteDomain updates the file) — entries already
// registered under their path are left untouched. Grounded on
// original_source/Code/Runtime/Asset/Controllers/AssetDataController.h's
// LoadDomain.
func (c *Controller) RegisterDomain(domain, root string) error {
	if !c.HasDomain(domain) {
		return fmt.Errorf("assetdata: domain %q is not loaded", domain)
	}

	if domain == "engine" && c.reflector != nil {
		for _, concreteType := range c.reflector.EngineTypes() {
			c.registerEngineType(concreteType)
		}
	}

	typeMap, err := c.ReadDomainTypeMap(domain, root)
	if err != nil {
		return fmt.Errorf("assetdata: read type map for %q: %w", domain, err)
	}
	if len(typeMap) == 0 {
		return nil
	}

	parentKeys := make(map[string]string, len(typeMap))
	created := make(map[string]*TypeInfo, len(typeMap))
	for _, m := range typeMap {
		t, ok := c.emplaceFromMapping(domain, m)
		if !ok {
			continue
		}
		created[m.Path] = t
		parentKeys[m.Path] = m.Parent
	}

	for path, t := range created {
		var parent *TypeInfo
		if parentKey := parentKeys[path]; parentKey != "" {
			parent, _ = c.Find(parentKey)
		}
		if parent == nil {
			parent, _ = c.Find(t.concreteType)
		}
		if parent == nil || parent == t {
			continue
		}
		t.Lock()
		t.parent = parent
		t.Unlock()
	}
	return nil
}

// registerEngineType emplaces one engine-domain concrete type under the
// synthetic path `/engine/Types/<concreteType>`, with an INVALID uid
// (spec §4.4 step 2: "concrete types are addressable only by name"), and
// aliases it under its bare name.
func (c *Controller) registerEngineType(concreteType string) {
	if _, exists := c.Find(concreteType); exists {
		return
	}
	path, err := assetpath.Parse("/engine/Types/" + concreteType)
	if err != nil {
		c.logger.Warn("assetdata: skipping invalid engine type name",
			zap.String("concreteType", concreteType), zap.Error(err))
		return
	}
	t, ok := c.CreateType("engine", path, cacheblocktype.Object, cacheobject.Invalid, concreteType, nil)
	if !ok {
		return
	}
	c.RegisterConcreteTypeAlias(concreteType, t)
}

// emplaceFromMapping is step 3 of RegisterDomain for one persisted
// entry: it is idempotent against an entry already registered under the
// same path (typically an engine concrete type step 2 already registered).
func (c *Controller) emplaceFromMapping(domain string, m TypeMapping) (*TypeInfo, bool) {
	if existing, ok := c.Find(m.Path); ok {
		return existing, true
	}
	path, err := assetpath.Parse(m.Path)
	if err != nil {
		c.logger.Warn("assetdata: skipping malformed type map entry",
			zap.String("path", m.Path), zap.Error(err))
		return nil, false
	}
	t, ok := c.CreateType(domain, path, m.BlockType, m.CacheUID, m.ConcreteType, nil)
	if !ok {
		if existing, ok := c.FindByUID(m.CacheUID); ok {
			return existing, true
		}
		return nil, false
	}
	if m.HasCacheIndex() {
		t.cacheIndex = cacheobject.Index{UID: m.CacheUID, BlobID: m.CacheBlobID, ObjectID: m.CacheObjectID}
		t.hasIndex = true
	}
	if m.WeakReferences > 0 || m.StrongReferences > 0 {
		t.handle = &Handle{owner: t}
		t.handle.weakRefs.Store(m.WeakReferences)
		t.handle.strongRefs.Store(m.StrongReferences)
	}
	return t, true
}

// UnloadDomain saves and closes domain's cache blocks and removes every
// type record registered under it.
func (c *Controller) UnloadDomain(domain string) bool {
	c.domainLock.Lock()
	if _, exists := c.domains[domain]; !exists {
		c.domainLock.Unlock()
		return false
	}
	delete(c.domains, domain)
	c.domainLock.Unlock()

	c.cache.RemoveDomain(domain)

	c.tableLock.Lock()
	defer c.tableLock.Unlock()
	for key, t := range c.table {
		if t.domain != domain {
			continue
		}
		delete(c.table, key)
		delete(c.aliasTable, key)
		if t.uid != cacheobject.Invalid {
			delete(c.idTable, t.uid)
		}
	}
	for name, t := range c.aliasTable {
		if t.domain == domain {
			delete(c.aliasTable, name)
		}
	}
	return true
}

// HasDomain reports whether domain currently has a registered context.
func (c *Controller) HasDomain(domain string) bool {
	c.domainLock.RLock()
	defer c.domainLock.RUnlock()
	_, ok := c.domains[domain]
	return ok
}

// Domains returns every currently registered domain name.
func (c *Controller) Domains() []string {
	c.domainLock.RLock()
	defer c.domainLock.RUnlock()
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	return out
}

/* -------------------------------------------------------------------------
   Type registration and lookup
   ------------------------------------------------------------------------- */

// CreateType registers a new AssetTypeInfo for path, keyed by its string
// form, aliased under the same key, and additionally indexed by uid when
// uid is not cacheobject.Invalid. Grounded on
// AssetDataController::CreateType(assetName, concreteType, parent).
func (c *Controller) CreateType(domain string, path assetpath.Path, blockType cacheblocktype.Type, uid uint32, concreteType string, parent *TypeInfo) (*TypeInfo, bool) {
	key := path.String()

	c.tableLock.Lock()
	defer c.tableLock.Unlock()

	if _, exists := c.table[key]; exists {
		return nil, false
	}
	if uid != cacheobject.Invalid {
		if _, exists := c.idTable[uid]; exists {
			return nil, false
		}
	}

	t := &TypeInfo{
		path:         path,
		domain:       domain,
		blockType:    blockType,
		uid:          uid,
		concreteType: concreteType,
		parent:       parent,
	}
	c.table[key] = t
	c.aliasTable[key] = t
	if uid != cacheobject.Invalid {
		c.idTable[uid] = t
	}
	return t, true
}

// RegisterConcreteTypeAlias aliases name (the bare reflected type name)
// to t, matching spec §4.4 step 2's "also alias it under the bare type
// name" for engine concrete types.
func (c *Controller) RegisterConcreteTypeAlias(name string, t *TypeInfo) bool {
	c.tableLock.Lock()
	defer c.tableLock.Unlock()
	if _, exists := c.aliasTable[name]; exists {
		return false
	}
	c.aliasTable[name] = t
	return true
}

// Find resolves a registered type by its path string or alias.
func (c *Controller) Find(pathOrAlias string) (*TypeInfo, bool) {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()
	t, ok := c.aliasTable[pathOrAlias]
	return t, ok
}

// FindByUID resolves a registered type by its cache UID.
func (c *Controller) FindByUID(uid uint32) (*TypeInfo, bool) {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()
	t, ok := c.idTable[uid]
	return t, ok
}

// GetTypes returns every type record registered under domain.
func (c *Controller) GetTypes(domain string) []*TypeInfo {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()
	var out []*TypeInfo
	for _, t := range c.table {
		if t.domain == domain {
			out = append(out, t)
		}
	}
	return out
}

// DeleteType marks t's load state DELETED and removes it from the
// lookup tables, but keeps the record reachable through any pointer a
// caller already holds (DELETED is terminal until an explicit
// undo-delete per spec §4.4's state diagram).
func (c *Controller) DeleteType(t *TypeInfo) bool {
	t.Lock()
	t.loadState.Store(int32(Deleted))
	t.Unlock()

	c.tableLock.Lock()
	defer c.tableLock.Unlock()
	key := t.path.String()
	delete(c.table, key)
	for name, aliased := range c.aliasTable {
		if aliased == t {
			delete(c.aliasTable, name)
		}
	}
	if t.uid != cacheobject.Invalid {
		delete(c.idTable, t.uid)
	}
	return true
}

/* -------------------------------------------------------------------------
   UID generation
   ------------------------------------------------------------------------- */

// GenerateUID draws a random, non-INVALID, currently-unused uid, capped
// at maxUIDGenerationAttempts tries (spec §9 open question: detect
// collisions, don't assume them away, and never loop unbounded).
func (c *Controller) GenerateUID() (uint32, error) {
	var buf [4]byte
	for attempt := 0; attempt < maxUIDGenerationAttempts; attempt++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("assetdata: generate uid: %w", err)
		}
		candidate := binary.BigEndian.Uint32(buf[:])
		if candidate == cacheobject.Invalid {
			continue
		}
		c.tableLock.RLock()
		_, taken := c.idTable[candidate]
		c.tableLock.RUnlock()
		if !taken {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("assetdata: failed to generate a unique uid after %d attempts", maxUIDGenerationAttempts)
}

/* -------------------------------------------------------------------------
   opState / loadState
   ------------------------------------------------------------------------- */

// SetOp attempts to claim t's single in-flight-operation slot, succeeding
// only as a compare-and-swap from OpIdle (spec §4.4, resolving §9's
// double-lock open question with one CAS).
func (c *Controller) SetOp(t *TypeInfo, value OpState) bool {
	return t.opState.CompareAndSwap(int32(OpIdle), int32(value))
}

// ClearOp resets t's op slot to Idle unconditionally; idempotent from any
// non-idle value.
func (c *Controller) ClearOp(t *TypeInfo) {
	t.opState.Store(int32(OpIdle))
}

// SetLoadState transitions t to value, validating against spec §4.4's
// state diagram. The caller must hold t's write lock.
func (c *Controller) SetLoadState(t *TypeInfo, value LoadState) bool {
	if !validTransition(t.LoadState(), value) {
		return false
	}
	t.loadState.Store(int32(value))
	return true
}

/* -------------------------------------------------------------------------
   Prototype / instance lifecycle
   ------------------------------------------------------------------------- */

// CreatePrototype instantiates t's prototype via the processor selected
// for its concrete type, if one does not already exist. The caller must
// hold t's write lock (spec §4.4).
func (c *Controller) CreatePrototype(t *TypeInfo) (*Handle, bool) {
	if t == nil {
		return nil, false
	}
	if t.handle != nil && t.handle.Prototype() != nil {
		return t.handle, true
	}
	if c.reflector == nil {
		return nil, false
	}

	proc, ok := c.processors.ByConcreteType(t.concreteType)
	if !ok {
		return nil, false
	}
	prototypeType, ok := proc.GetPrototypeType(t.concreteType)
	if !ok || prototypeType == "" {
		return nil, false
	}
	obj, err := c.reflector.Instantiate(prototypeType)
	if err != nil {
		c.logger.Warn("assetdata: prototype instantiation failed",
			zap.String("path", t.path.String()), zap.Error(err))
		return nil, false
	}

	if t.handle == nil {
		t.handle = &Handle{owner: t}
	}
	t.handle.prototype.Store(&obj)
	t.handle.weakRefs.Store(1)
	proc.OnCreatePrototype(obj)
	t.loadState.Store(int32(Loaded))
	return t.handle, true
}

// UnloadPrototype tears down t's prototype, refusing while any strong
// reference or live instance remains. The caller must hold t's write
// lock (spec §4.4).
func (c *Controller) UnloadPrototype(t *TypeInfo) bool {
	if t == nil || t.handle == nil {
		return false
	}
	proto := t.handle.Prototype()
	if proto == nil {
		return false
	}
	if t.handle.StrongRefs() > 0 {
		return false
	}
	if t.instances.liveCount() > 0 {
		return false
	}

	if proc, ok := c.processors.ByConcreteType(t.concreteType); ok {
		proc.OnDestroyPrototype(proto)
	}
	t.handle.prototype.Store(nil)
	t.loadState.Store(int32(Unloaded))
	return true
}

// CreateInstance clones t's prototype into a new, caller-owned Instance,
// requiring t be LOADED. Acquires t's read lock internally (spec §4.4).
func (c *Controller) CreateInstance(t *TypeInfo) (*Instance, bool) {
	if t.LoadState() != Loaded {
		return nil, false
	}
	t.RLock()
	defer t.RUnlock()

	if t.handle == nil {
		return nil, false
	}
	proto := t.handle.Prototype()
	if proto == nil {
		return nil, false
	}
	inst := &Instance{Type: t, Value: cloneValue(proto)}
	t.instances.add(weak.Make(inst))
	t.handle.strongRefs.Add(1)
	return inst, true
}

// UpdateInstances clones source into every live instance tracked against
// t, preserving each instance's identity (spec §4.4).
func (c *Controller) UpdateInstances(t *TypeInfo, source any) {
	t.RLock()
	defer t.RUnlock()
	for _, inst := range t.instances.live() {
		inst.Value = cloneValue(source)
	}
}

// Update runs the garbage-collection sweep spec §4.4 describes: every
// type's instance list is swept for dead weak references.
func (c *Controller) Update() {
	c.tableLock.RLock()
	types := make([]*TypeInfo, 0, len(c.table))
	for _, t := range c.table {
		types = append(types, t)
	}
	c.tableLock.RUnlock()

	for _, t := range types {
		removed := t.instances.sweep()
		if removed == 0 {
			continue
		}
		// Each swept instance held one strong reference (CreateInstance).
		t.RLock()
		if t.handle != nil {
			t.handle.strongRefs.Add(^uint32(removed - 1))
		}
		t.RUnlock()
	}
}

/* -------------------------------------------------------------------------
   Dependencies
   ------------------------------------------------------------------------- */

// AddDependency records that t depends on dependant, optionally weakly.
func (c *Controller) AddDependency(t, dependant *TypeInfo, weakDependency bool) bool {
	if t == nil || dependant == nil {
		return false
	}
	t.depMu.Lock()
	t.dependsOn = append(t.dependsOn, dependency{target: dependant, weak: weakDependency})
	t.depMu.Unlock()

	dependant.depMu.Lock()
	dependant.dependedBy = append(dependant.dependedBy, dependency{target: t, weak: weakDependency})
	dependant.depMu.Unlock()
	return true
}

// RemoveDependency removes a previously recorded dependency edge.
func (c *Controller) RemoveDependency(t, dependant *TypeInfo, weakDependency bool) bool {
	if t == nil || dependant == nil {
		return false
	}
	removed := false
	t.depMu.Lock()
	t.dependsOn, removed = removeDependency(t.dependsOn, dependant, weakDependency)
	t.depMu.Unlock()

	dependant.depMu.Lock()
	dependant.dependedBy, _ = removeDependency(dependant.dependedBy, t, weakDependency)
	dependant.depMu.Unlock()
	return removed
}

func removeDependency(list []dependency, target *TypeInfo, weakDependency bool) ([]dependency, bool) {
	for i, d := range list {
		if d.target == target && d.weak == weakDependency {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

/* -------------------------------------------------------------------------
   Processor selection (spec §4.4's four GetProcessor overloads, split
   into distinctly named methods since Go has no overloading)
   ------------------------------------------------------------------------- */

// GetProcessorForType selects a processor by t's concrete type.
func (c *Controller) GetProcessorForType(t *TypeInfo) (assetprocessor.Processor, bool) {
	return c.processors.ByConcreteType(t.concreteType)
}

// GetProcessorForConcreteType selects a processor by a bare concrete type name.
func (c *Controller) GetProcessorForConcreteType(concreteType string) (assetprocessor.Processor, bool) {
	return c.processors.ByConcreteType(concreteType)
}

// GetProcessorForPath selects a processor by an asset path's extension.
func (c *Controller) GetProcessorForPath(path assetpath.Path) (assetprocessor.Processor, bool) {
	return c.processors.ByPath(path)
}

// GetProcessorForBlockType selects a processor by cache block type.
func (c *Controller) GetProcessorForBlockType(blockType cacheblocktype.Type) (assetprocessor.Processor, bool) {
	return c.processors.ByBlockType(blockType)
}

/* -------------------------------------------------------------------------
   Cache I/O passthrough (spec §2's data-flow diagram: CreateType feeds a
   subsequent AssetCacheController.Write/Read keyed by the type record)
   ------------------------------------------------------------------------- */

// WriteBytes persists data for t through the backing AssetCacheController
// and records the resulting locator on t.
func (c *Controller) WriteBytes(t *TypeInfo, data []byte) error {
	if err := c.cache.Write(context.Background(), t, data); err != nil {
		return err
	}
	idx, ok := c.cache.FindIndex(t)
	if ok {
		t.cacheIndex = idx
		t.hasIndex = true
	}
	return nil
}

// ReadBytes loads t's current bytes into buf through the backing
// AssetCacheController.
func (c *Controller) ReadBytes(t *TypeInfo, buf []byte) (int, error) {
	return c.cache.Read(context.Background(), t, buf)
}

// QuerySize reports t's current byte size through the backing
// AssetCacheController, so a caller can size a ReadBytes buffer without
// reaching around this package into pkg/assetcache directly.
func (c *Controller) QuerySize(t *TypeInfo) (uint32, bool) {
	return c.cache.QuerySize(t)
}
