// Package assetprocessor defines the contract asset-category plugins
// implement. Processor bodies themselves — texture decoders, mesh
// importers, script compilers — are out of scope (spec §1); only the
// interface the core consumes is described here, mirrored from the
// original engine's DefaultAssetProcessor.
//
// Grounded on original_source/Code/Runtime/Asset/DefaultAssetProcessor.cpp's
// public surface.
//
// © 2025 arena-cache authors. MIT License.
package assetprocessor

import (
	"github.com/Voskan/assetcache/pkg/assetpath"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

// Processor is an external collaborator that knows how to instantiate,
// tear down, and select itself for one or more concrete asset types.
type Processor interface {
	// Name identifies the processor for logging and the CLI inspector.
	Name() string

	// GetPrototypeType returns the concrete type to instantiate as a
	// prototype for the given declared concrete type name, or ("", false)
	// if this processor does not handle that type.
	GetPrototypeType(concreteType string) (prototypeType string, ok bool)

	// OnCreatePrototype is invoked immediately after a prototype object
	// has been instantiated and linked to its AssetTypeInfo, so the
	// processor can run post-construction setup.
	OnCreatePrototype(prototype any)

	// OnDestroyPrototype is invoked immediately before a prototype is
	// torn down, mirroring OnCreatePrototype.
	OnDestroyPrototype(prototype any)

	// AcceptsExtension reports whether this processor handles assets
	// with the given extension (without a leading dot), used for
	// by-path processor selection.
	AcceptsExtension(extension string) bool

	// Score returns this processor's preference for handling blockType;
	// lower is better. A negative score means "cannot handle".
	Score(blockType cacheblocktype.Type) int

	// DistanceTo returns how many reflection steps separate this
	// processor's natural target type from concreteType; a negative
	// result means "cannot handle", used by by-concrete-type selection
	// to pick the processor with the shortest non-negative distance.
	DistanceTo(concreteType string) int
}

// Registry resolves a Processor for an asset by one of three selection
// modes (spec §4.4's "processor selection"): by concrete type, by path
// extension, or by cache block type.
type Registry interface {
	// ByConcreteType walks registered processors and returns the one
	// with the shortest non-negative DistanceTo(concreteType).
	ByConcreteType(concreteType string) (Processor, bool)
	// ByPath returns the first registered processor whose
	// AcceptsExtension matches path's extension.
	ByPath(path assetpath.Path) (Processor, bool)
	// ByBlockType returns the registered processor with the lowest
	// non-negative Score for blockType.
	ByBlockType(blockType cacheblocktype.Type) (Processor, bool)
	// Register adds p to the registry.
	Register(p Processor)
}

// registry is the default in-memory Registry implementation: a flat
// slice scanned linearly, matching the original's small, static
// processor population (no domain expects more than a handful).
type registry struct {
	processors []Processor
}

// NewRegistry constructs an empty processor registry.
func NewRegistry() Registry {
	return &registry{}
}

func (r *registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

func (r *registry) ByConcreteType(concreteType string) (Processor, bool) {
	var best Processor
	bestDist := -1
	for _, p := range r.processors {
		d := p.DistanceTo(concreteType)
		if d < 0 {
			continue
		}
		if bestDist == -1 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, best != nil
}

func (r *registry) ByPath(path assetpath.Path) (Processor, bool) {
	for _, p := range r.processors {
		if p.AcceptsExtension(path.Extension()) {
			return p, true
		}
	}
	return nil, false
}

func (r *registry) ByBlockType(blockType cacheblocktype.Type) (Processor, bool) {
	var best Processor
	bestScore := -1
	for _, p := range r.processors {
		s := p.Score(blockType)
		if s < 0 {
			continue
		}
		if bestScore == -1 || s < bestScore {
			best, bestScore = p, s
		}
	}
	return best, best != nil
}
