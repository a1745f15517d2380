package assetdata

// typemap.go persists a domain's AssetTypeInfo records to a sibling
// `.typemap` JSON file, so a domain's type registrations survive a
// process restart the same way pkg/assetcache's `.lfindex` files let its
// block indices survive one.
//
// Grounded on original_source/Code/Runtime/Asset/AssetTypeMap.h/.cpp's
// AssetTypeMapping{mPath, mParent, mConcreteType, mCacheUID, mCacheBlobID,
// mCacheObjectID, mWeakReferences, mStrongReferences} and its Read/Write
// DataType::JSON variant (the BINARY variant has no equivalent here;
// JSON is this repo's only on-disk format, matching pkg/assetcache's
// .lfindex files).
//
// © 2025 arena-cache authors. MIT License.

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Voskan/assetcache/internal/cacheobject"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

// typeMapping is the JSON projection of one AssetTypeInfo record,
// field-for-field matching AssetTypeMapping, plus BlockType: the original
// addressed every object through a single unified cache, but this repo
// splits storage by cacheblocktype.Type (spec §6), so a persisted mapping
// must carry it to let RegisterDomain replay CreateType faithfully.
type typeMapping struct {
	Path             string              `json:"path"`
	Parent           string              `json:"parent,omitempty"`
	ConcreteType     string              `json:"concreteType"`
	BlockType        cacheblocktype.Type `json:"blockType"`
	CacheUID         uint32              `json:"cacheUID"`
	CacheBlobID      uint32              `json:"cacheBlobID"`
	CacheObjectID    uint32              `json:"cacheObjectID"`
	WeakReferences   uint32              `json:"weakReferences"`
	StrongReferences uint32              `json:"strongReferences"`
}

// typeMapFile mirrors AssetTypeMap::GetTypes(): a flat list of mappings.
type typeMapFile struct {
	Types []typeMapping `json:"types"`
}

// typeMapPath is the sibling file WriteDomain/LoadDomain use, named after
// the domain the way pkg/assetcache names its block files after the
// block type.
func typeMapPath(root, domain string) string {
	return filepath.Join(root, domain+".typemap")
}

func toTypeMapping(t *TypeInfo) typeMapping {
	t.RLock()
	defer t.RUnlock()

	m := typeMapping{
		Path:          t.path.String(),
		ConcreteType:  t.concreteType,
		BlockType:     t.blockType,
		CacheUID:      t.uid,
		CacheBlobID:   cacheobject.Invalid,
		CacheObjectID: cacheobject.Invalid,
	}
	if t.parent != nil {
		m.Parent = t.parent.path.String()
	}
	if idx, ok := t.cacheIndex, t.hasIndex; ok {
		m.CacheBlobID = idx.BlobID
		m.CacheObjectID = idx.ObjectID
	}
	if t.handle != nil {
		m.WeakReferences = t.handle.WeakRefs()
		m.StrongReferences = t.handle.StrongRefs()
	}
	return m
}

// WriteDomain serializes every type record registered under domain to its
// `.typemap` file at root, mirroring AssetTypeMap::Write(JSON, path).
func (c *Controller) WriteDomain(domain, root string) error {
	types := c.GetTypes(domain)

	doc := typeMapFile{Types: make([]typeMapping, 0, len(types))}
	for _, t := range types {
		doc.Types = append(doc.Types, toTypeMapping(t))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(typeMapPath(root, domain), data, 0o644)
}

// ReadDomainTypeMap loads domain's `.typemap` file at root, returning the
// raw mapping rows for a caller (typically domain bootstrap) to
// reconstruct AssetTypeInfo records via CreateType, mirroring
// AssetTypeMap::Read(JSON, path) + GetTypes(). It returns (nil, nil) if
// no `.typemap` file exists yet for domain.
func (c *Controller) ReadDomainTypeMap(domain, root string) ([]TypeMapping, error) {
	data, err := os.ReadFile(typeMapPath(root, domain))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc typeMapFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make([]TypeMapping, 0, len(doc.Types))
	for _, m := range doc.Types {
		out = append(out, TypeMapping{
			Path:             m.Path,
			Parent:           m.Parent,
			ConcreteType:     m.ConcreteType,
			BlockType:        m.BlockType,
			CacheUID:         m.CacheUID,
			CacheBlobID:      m.CacheBlobID,
			CacheObjectID:    m.CacheObjectID,
			WeakReferences:   m.WeakReferences,
			StrongReferences: m.StrongReferences,
		})
	}
	return out, nil
}

// TypeMapping is the exported, stable-field view of one persisted type
// record handed back by ReadDomainTypeMap. CacheBlobID/CacheObjectID are
// cacheobject.Invalid when the record was never written to the cache.
type TypeMapping struct {
	Path             string
	Parent           string
	ConcreteType     string
	BlockType        cacheblocktype.Type
	CacheUID         uint32
	CacheBlobID      uint32
	CacheObjectID    uint32
	WeakReferences   uint32
	StrongReferences uint32
}

// HasCacheIndex reports whether this mapping names a real cache locator.
func (m TypeMapping) HasCacheIndex() bool {
	return m.CacheBlobID != cacheobject.Invalid && m.CacheObjectID != cacheobject.Invalid
}
