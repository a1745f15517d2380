package assetdata

// load.go deduplicates concurrent load requests for the same type so a
// thundering herd of callers asking for an unloaded asset at once
// triggers exactly one CreatePrototype. Adapted from the teacher's
// pkg/loader.go loaderGroup, retargeted from a generic K/V loader onto
// *TypeInfo keyed by its path.
//
// © 2025 arena-cache authors. MIT License.

import (
	"context"
	"hash/maphash"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/Voskan/assetcache/internal/unsafehelpers"
)

// loaderGroup wraps x/sync/singleflight so EnsureLoaded collapses
// concurrent loads of the same type into a single CreatePrototype call.
// seed mirrors the teacher's pkg/cache.go shard: one maphash.Seed per
// group turns a path into a 64-bit maphash singleflight key instead of
// keying singleflight on the path string itself.
type loaderGroup struct {
	g    singleflight.Group
	seed maphash.Seed
}

// loadKey hashes a type's path into the singleflight key, grounded on the
// teacher's pkg/cache.go shard.hash (maphash.Hash over a shard-local seed)
// combined with pkg/loader.go's strconv.FormatUint(keyHash, 16) encoding.
// The path is read through unsafehelpers.StringToBytes's zero-copy view
// since maphash.Hash.Write never retains or mutates its argument.
func (g *loaderGroup) loadKey(path string) string {
	var h maphash.Hash
	h.SetSeed(g.seed)
	h.Write(unsafehelpers.StringToBytes(path))
	return strconv.FormatUint(h.Sum64(), 16)
}

// EnsureLoaded transitions t through UNLOADED -> LOADING -> {LOADED,
// CORRUPTED}, deduplicating concurrent callers for the same t. loadFn
// does the actual work of producing the prototype (typically reading
// bytes via ReadBytes and handing them to a Processor, then calling
// CreatePrototype). Concurrent callers for distinct types never block
// each other.
func (c *Controller) EnsureLoaded(ctx context.Context, t *TypeInfo, loadFn func(context.Context, *TypeInfo) (*Handle, error)) (*Handle, error) {
	if t.LoadState() == Loaded {
		return t.handle, nil
	}

	key := c.loaders.loadKey(t.path.String())
	v, err, _ := c.loaders.g.Do(key, func() (any, error) {
		t.Lock()
		defer t.Unlock()

		if t.LoadState() == Loaded {
			return t.handle, nil
		}
		if !c.SetLoadState(t, Loading) {
			return nil, errNotUnloaded
		}

		h, loadErr := loadFn(ctx, t)
		if loadErr != nil {
			c.SetLoadState(t, Corrupted)
			return nil, loadErr
		}
		c.SetLoadState(t, Loaded)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

var errNotUnloaded = loadStateError("assetdata: type is not in UNLOADED state")

type loadStateError string

func (e loadStateError) Error() string { return string(e) }
