package assetdata

import "go.uber.org/zap"

// Reflector stands in for the spec's "external service that can look up
// concrete types by name and instantiate them by name" (spec §1 places
// the reflection system out of scope; §4.4's CreatePrototype still needs
// to call into it).
type Reflector interface {
	Instantiate(concreteType string) (any, error)

	// EngineTypes lists every concrete AssetObject-descended type the
	// reflection system knows about, for the "engine" domain's §4.4 step
	// 2 enumeration pass. A Reflector with no engine-domain concrete
	// types to contribute may return nil.
	EngineTypes() []string
}

// Cloner lets a prototype or instance value produce an independent deep
// copy, standing in for the source's serialize-then-deserialize round
// trip (spec §4.4's CreateInstance/UpdateInstances contract, §8's
// round-trip law). Values that do not implement Cloner are copied as-is
// (shared by reference) — acceptable for value-like prototypes, but
// Processor authors dealing with mutable state should implement it.
type Cloner interface {
	Clone() any
}

func cloneValue(v any) any {
	if c, ok := v.(Cloner); ok {
		return c.Clone()
	}
	return v
}

// Option configures a Controller constructed with New.
type Option func(*config)

type config struct {
	logger    *zap.Logger
	reflector Reflector
}

func defaultConfig() *config {
	return &config{logger: zap.NewNop()}
}

// WithLogger plugs an external zap.Logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReflector installs the type-instantiation service CreatePrototype
// calls into and RegisterDomain enumerates engine types from.
// CreateInstance does not use it; it clones the loaded prototype.
func WithReflector(r Reflector) Option {
	return func(c *config) { c.reflector = r }
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		opt(cfg)
	}
}
