// Package assetcache implements AssetCacheController: it groups
// CacheBlocks by domain (engine + mods), maps an AssetRef to the
// CacheBlockType-specific block that owns it, and persists/loads each
// block's index alongside its data file.
//
// Grounded on original_source/Code/Runtime/Asset/Controllers/AssetCacheController.cpp
// (AddDomain/RemoveDomain/SaveDomain, Write/Read algorithms, FindIndex,
// FindObject's index-then-linear-scan fallback). Options/metrics follow
// the teacher pkg/config.go and pkg/metrics.go pattern.
//
// © 2025 arena-cache authors. MIT License.
package assetcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Voskan/assetcache/internal/cacheblock"
	"github.com/Voskan/assetcache/internal/cacheobject"
	"github.com/Voskan/assetcache/internal/rwspinlock"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
	"github.com/Voskan/assetcache/pkg/cachefile"
)

// AssetRef is the minimal view of an asset the controller needs: which
// domain and block it belongs to, and its UID within that block. A
// AssetTypeInfo (owned by pkg/assetdata) implements this without
// assetcache needing to import that package.
type AssetRef interface {
	Domain() string
	BlockType() cacheblocktype.Type
	UID() uint32
}

// domainContext holds one domain's per-block-type CacheBlocks and their
// backing stores, indexed by cacheblocktype.Type.
type domainContext struct {
	root   string
	blocks []*cacheblock.Block
	stores []cachefile.Store
}

func newDomainContext(root string) *domainContext {
	return &domainContext{
		root:   root,
		blocks: make([]*cacheblock.Block, cacheblocktype.Count()),
		stores: make([]cachefile.Store, cacheblocktype.Count()),
	}
}

// Controller groups CacheBlocks by domain and exposes the read/write/
// delete surface AssetDataController drives.
type Controller struct {
	lock         rwspinlock.RWSpinLock
	domains      map[string]*domainContext
	log          *zap.Logger
	metrics      metricsSink
	storeFactory StoreFactory
}

// New constructs an empty Controller with no domains registered.
func New(opts ...Option) *Controller {
	cfg := defaultConfig()
	applyOptions(cfg, opts)
	storeFactory := cfg.storeFactory
	if storeFactory == nil {
		storeFactory = func(root string, bt cacheblocktype.Type) (cachefile.Store, error) {
			return cachefile.OpenFileStore(domainFile(root, bt))
		}
	}
	return &Controller{
		domains:      make(map[string]*domainContext),
		log:          cfg.logger,
		metrics:      newMetricsSink(cfg.registry),
		storeFactory: storeFactory,
	}
}

// domainFile returns the on-disk data file name for one block type within
// a domain root, e.g. "<root>/Texture.cache".
func domainFile(root string, bt cacheblocktype.Type) string {
	return filepath.Join(root, bt.String()+".cache")
}

func indexFile(dataFile string) string { return dataFile + ".lfindex" }

// AddDomain registers domain rooted at root, with one CacheBlock per
// CacheBlockType. It attempts to load each block's sibling .lfindex file;
// blocks with no existing index start empty. Returns false if domain is
// already registered.
func (c *Controller) AddDomain(domain, root string, defaultCapacity uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, exists := c.domains[strings.ToLower(domain)]; exists {
		return false
	}

	ctx := newDomainContext(root)
	for _, bt := range cacheblocktype.All() {
		block := cacheblock.New()
		dataPath := domainFile(root, bt)
		idxPath := indexFile(dataPath)

		if snap, err := loadSnapshot(idxPath); err == nil {
			block.Restore(snap)
		} else {
			block.Initialize(bt.String(), defaultCapacity)
		}
		ctx.blocks[bt] = block

		store, err := c.storeFactory(root, bt)
		if err != nil {
			c.log.Warn("assetcache: failed to open block store",
				zap.String("domain", domain), zap.String("path", dataPath), zap.Error(err))
			continue
		}
		ctx.stores[bt] = store
	}

	c.domains[strings.ToLower(domain)] = ctx
	c.log.Info("assetcache: domain added", zap.String("domain", domain), zap.String("root", root))
	return true
}

// RemoveDomain saves domain's indices, closes its stores, and forgets it.
func (c *Controller) RemoveDomain(domain string) bool {
	c.lock.Lock()
	ctx, ok := c.domains[strings.ToLower(domain)]
	if ok {
		delete(c.domains, strings.ToLower(domain))
	}
	c.lock.Unlock()
	if !ok {
		return false
	}

	c.saveDomainContext(domain, ctx)
	for _, s := range ctx.stores {
		if s != nil {
			_ = s.Close()
		}
	}
	return true
}

// SaveDomain writes every block's .lfindex file for domain without
// removing it.
func (c *Controller) SaveDomain(domain string) bool {
	c.lock.RLock()
	ctx, ok := c.domains[strings.ToLower(domain)]
	c.lock.RUnlock()
	if !ok {
		return false
	}
	c.saveDomainContext(domain, ctx)
	return true
}

func (c *Controller) saveDomainContext(domain string, ctx *domainContext) {
	for _, bt := range cacheblocktype.All() {
		block := ctx.blocks[bt]
		if block == nil {
			continue
		}
		snap := block.Snapshot()
		idxPath := indexFile(domainFile(ctx.root, bt))
		if err := saveSnapshot(idxPath, snap); err != nil {
			c.log.Warn("assetcache: failed to save block index",
				zap.String("domain", domain), zap.String("path", idxPath), zap.Error(err))
		}
	}
}

func (c *Controller) getDomain(domain string) (*domainContext, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	ctx, ok := c.domains[strings.ToLower(domain)]
	return ctx, ok
}

// Write persists bytes for ref, creating a new index entry on first write
// and recreating the backing slot if the object has grown beyond its
// reserved capacity.
func (c *Controller) Write(ctx context.Context, ref AssetRef, data []byte) error {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		c.metrics.incWriteError(ref.Domain())
		return fmt.Errorf("assetcache: unknown domain %q", ref.Domain())
	}
	block := domainCtx.blocks[ref.BlockType()]
	store := domainCtx.stores[ref.BlockType()]
	size := uint32(len(data))

	idx, found := block.Find(ref.UID())
	if !found {
		var ok bool
		idx, ok = block.Create(ref.UID(), size)
		if !ok {
			c.metrics.incWriteError(ref.Domain())
			return fmt.Errorf("assetcache: failed to reserve %d bytes for uid %d", size, ref.UID())
		}
	} else {
		obj, _ := block.GetObject(idx.BlobID, idx.ObjectID)
		if obj.Capacity < size {
			block.Destroy(ref.UID())
			var ok bool
			idx, ok = block.Create(ref.UID(), size)
			if !ok {
				c.metrics.incWriteError(ref.Domain())
				return fmt.Errorf("assetcache: failed to re-reserve %d bytes for uid %d", size, ref.UID())
			}
		}
	}

	if store != nil {
		obj, _ := block.GetObject(idx.BlobID, idx.ObjectID)
		if err := store.WriteAt(ctx, data, int64(obj.Location), int64(obj.Capacity)); err != nil {
			c.metrics.incWriteError(ref.Domain())
			return fmt.Errorf("assetcache: write uid %d: %w", ref.UID(), err)
		}
	}

	block.Update(ref.UID(), size)
	c.metrics.incWrite(ref.Domain())
	c.metrics.setDomainBlobBytes(ref.Domain(), domainReservedBytes(domainCtx))
	return nil
}

// domainReservedBytes sums BytesReserved across every blob in every
// block the domain owns, for the domain_blob_bytes gauge.
func domainReservedBytes(ctx *domainContext) uint64 {
	var total uint64
	for _, block := range ctx.blocks {
		for blobID := 0; blobID < block.NumBlobs(); blobID++ {
			stat, ok := block.GetBlobStat(uint32(blobID))
			if !ok {
				continue
			}
			total += stat.BytesReserved
		}
	}
	return total
}

// Read copies the bytes stored for ref into buf, which must be at least
// the object's size.
func (c *Controller) Read(ctx context.Context, ref AssetRef, buf []byte) (int, error) {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: unknown domain %q", ref.Domain())
	}
	block := domainCtx.blocks[ref.BlockType()]
	store := domainCtx.stores[ref.BlockType()]

	idx, ok := block.Find(ref.UID())
	if !ok {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: no index for uid %d", ref.UID())
	}
	obj, ok := block.GetObject(idx.BlobID, idx.ObjectID)
	if !ok {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: dangling index for uid %d", ref.UID())
	}
	if int(obj.Size) > len(buf) {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: buffer of %d bytes too small for %d-byte object", len(buf), obj.Size)
	}
	if store == nil {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: no backing store for domain %q", ref.Domain())
	}
	if err := store.ReadAt(ctx, buf[:obj.Size], int64(obj.Location)); err != nil {
		c.metrics.incReadError(ref.Domain())
		return 0, fmt.Errorf("assetcache: read uid %d: %w", ref.UID(), err)
	}
	c.metrics.incRead(ref.Domain())
	return int(obj.Size), nil
}

// Delete destroys ref's slot and zero-fills its storage.
func (c *Controller) Delete(ctx context.Context, ref AssetRef) bool {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		return false
	}
	block := domainCtx.blocks[ref.BlockType()]
	store := domainCtx.stores[ref.BlockType()]

	idx, ok := block.Find(ref.UID())
	if !ok {
		return false
	}
	obj, _ := block.GetObject(idx.BlobID, idx.ObjectID)
	if !block.Destroy(ref.UID()) {
		return false
	}
	if store != nil {
		_ = store.ZeroFill(ctx, int64(obj.Location), int64(obj.Capacity))
	}
	c.metrics.incDelete(ref.Domain())
	return true
}

// QuerySize returns the current byte size of the object stored for ref.
func (c *Controller) QuerySize(ref AssetRef) (uint32, bool) {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		return 0, false
	}
	block := domainCtx.blocks[ref.BlockType()]
	idx, ok := block.Find(ref.UID())
	if !ok {
		return 0, false
	}
	obj, ok := block.GetObject(idx.BlobID, idx.ObjectID)
	return obj.Size, ok
}

// FindIndex resolves ref to its CacheIndex locator.
func (c *Controller) FindIndex(ref AssetRef) (cacheobject.Index, bool) {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		return cacheobject.Index{}, false
	}
	return domainCtx.blocks[ref.BlockType()].Find(ref.UID())
}

// FindObject resolves ref to its underlying CacheObject, using the
// block's index-then-linear-scan fallback.
func (c *Controller) FindObject(ref AssetRef) (cacheobject.Object, bool) {
	domainCtx, ok := c.getDomain(ref.Domain())
	if !ok {
		return cacheobject.Object{}, false
	}
	return domainCtx.blocks[ref.BlockType()].FindObject(ref.UID())
}

// HasDomain reports whether domain is currently registered.
func (c *Controller) HasDomain(domain string) bool {
	_, ok := c.getDomain(domain)
	return ok
}

// Domains returns the currently registered domain names.
func (c *Controller) Domains() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	return out
}

/* -------------------------------------------------------------------------
   .lfindex persistence
   ------------------------------------------------------------------------- */

// lfindexFile is the on-disk shape of a block's index file: two arrays as
// described in spec §6 ("indices": CacheIndex structs; "blobs": arrays of
// CacheObject structs in placement order).
type lfindexFile struct {
	Name            string                  `json:"name"`
	DefaultCapacity uint32                  `json:"defaultCapacity"`
	Indices         []cacheobject.Index     `json:"indices"`
	Blobs           [][]cacheobject.Object  `json:"blobs"`
}

func saveSnapshot(path string, snap cacheblock.Snapshot) error {
	doc := lfindexFile{
		Name:            snap.Name,
		DefaultCapacity: snap.DefaultCapacity,
		Indices:         snap.Indices,
		Blobs:           snap.Blobs,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadSnapshot(path string) (cacheblock.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheblock.Snapshot{}, err
	}
	var doc lfindexFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return cacheblock.Snapshot{}, fmt.Errorf("assetcache: parse %q: %w", path, err)
	}
	return cacheblock.Snapshot{
		Name:            doc.Name,
		DefaultCapacity: doc.DefaultCapacity,
		Indices:         doc.Indices,
		Blobs:           doc.Blobs,
	}, nil
}
