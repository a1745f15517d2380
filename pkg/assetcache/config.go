// config.go defines AssetCacheController's functional options, following
// the teacher cache package's Option[K,V] pattern. The controller itself
// is not generic, so Option here is a plain function type.
//
// © 2025 arena-cache authors. MIT License.
package assetcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/assetcache/pkg/cacheblocktype"
	"github.com/Voskan/assetcache/pkg/cachefile"
)

// Option configures a Controller constructed with New.
type Option func(*config)

// StoreFactory opens the backing cachefile.Store for one CacheBlock
// within a domain, given the domain's root and the block's type. The
// default factory opens one cachefile.FileStore per block
// (domainFile/cachefile.OpenFileStore); WithStoreFactory lets a caller
// substitute cachefile.BadgerStore, or any other Store, without
// AssetCacheController needing to know which backend is in play.
type StoreFactory func(root string, bt cacheblocktype.Type) (cachefile.Store, error)

type config struct {
	logger       *zap.Logger
	registry     *prometheus.Registry
	storeFactory StoreFactory
}

func defaultConfig() *config {
	return &config{logger: zap.NewNop()}
}

// WithLogger plugs an external zap.Logger. The controller logs domain
// lifecycle events (a domain added, a block store that fails to open, an
// index that fails to save); write/read failures are returned as errors
// and counted in metrics, not logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithStoreFactory overrides how AddDomain opens each block's backing
// Store, e.g. to mirror a domain into cachefile.BadgerStore instead of
// one file per block type.
func WithStoreFactory(f StoreFactory) Option {
	return func(c *config) {
		c.storeFactory = f
	}
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		opt(cfg)
	}
}
