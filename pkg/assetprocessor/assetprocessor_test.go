package assetprocessor

import (
	"testing"

	"github.com/Voskan/assetcache/pkg/assetpath"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

type stubProcessor struct {
	name      string
	ext       string
	blockType cacheblocktype.Type
	score     int
	distance  int
}

func (s *stubProcessor) Name() string { return s.name }
func (s *stubProcessor) GetPrototypeType(concreteType string) (string, bool) {
	return concreteType + "Prototype", true
}
func (s *stubProcessor) OnCreatePrototype(any)  {}
func (s *stubProcessor) OnDestroyPrototype(any) {}
func (s *stubProcessor) AcceptsExtension(ext string) bool {
	return ext == s.ext
}
func (s *stubProcessor) Score(bt cacheblocktype.Type) int {
	if bt != s.blockType {
		return -1
	}
	return s.score
}
func (s *stubProcessor) DistanceTo(string) int { return s.distance }

func TestByPathPicksFirstMatchingExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProcessor{name: "lua", ext: "lua"})
	r.Register(&stubProcessor{name: "tex", ext: "tex"})

	p, ok := r.ByPath(mustParse(t, "/engine/scripts/main.lua"))
	if !ok || p.Name() != "lua" {
		t.Fatalf("ByPath = (%v, %v), want (lua, true)", p, ok)
	}
}

func TestByBlockTypePicksLowestScore(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProcessor{name: "slow", blockType: cacheblocktype.Texture, score: 10})
	r.Register(&stubProcessor{name: "fast", blockType: cacheblocktype.Texture, score: 1})
	r.Register(&stubProcessor{name: "other", blockType: cacheblocktype.Mesh, score: 0})

	p, ok := r.ByBlockType(cacheblocktype.Texture)
	if !ok || p.Name() != "fast" {
		t.Fatalf("ByBlockType = (%v, %v), want (fast, true)", p, ok)
	}
}

func TestByConcreteTypePicksShortestDistance(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProcessor{name: "far", distance: 5})
	r.Register(&stubProcessor{name: "near", distance: 1})
	r.Register(&stubProcessor{name: "none", distance: -1})

	p, ok := r.ByConcreteType("StubAssetHunter")
	if !ok || p.Name() != "near" {
		t.Fatalf("ByConcreteType = (%v, %v), want (near, true)", p, ok)
	}
}

func mustParse(t *testing.T, raw string) assetpath.Path {
	t.Helper()
	p, err := assetpath.Parse(raw)
	if err != nil {
		t.Fatalf("assetpath.Parse(%q): %v", raw, err)
	}
	return p
}
