// Package bench provides reproducible micro-benchmarks for assetcache
// and assetdata. Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks intentionally use a single asset shape so results are
// comparable across versions:
//   - Path  — /engine/objects/<n>.obj, one per dataset entry
//   - Value — 64-byte payload
//
// We measure:
//  1. Write        — write-only workload against AssetCacheController
//  2. Read         — read-only workload (after warm-up)
//  3. ReadParallel — highly concurrent reads (b.RunParallel)
//  4. EnsureLoaded — prototype load-dedup cost under concurrency
//
// Results are printed in ns/op + alloc/op so CI can diff via benchstat.
//
// Retargeted from the teacher's bench/bench_test.go (same Put/Get/
// GetParallel/GetOrLoad shape), generalized from a generic uint64-keyed
// cache to path-addressed assets.
//
// © 2025 arena-cache authors. MIT License.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Voskan/assetcache/pkg/assetcache"
	"github.com/Voskan/assetcache/pkg/assetdata"
	"github.com/Voskan/assetcache/pkg/assetpath"
	"github.com/Voskan/assetcache/pkg/assetprocessor"
	"github.com/Voskan/assetcache/pkg/cacheblocktype"
)

const (
	capBytes = 64 << 20 // 64 MiB default block capacity
	keys     = 1 << 16  // 64K paths for dataset
)

type benchError string

func (e benchError) Error() string { return string(e) }

const errPrototypeFailed benchError = "CreatePrototype failed"

type payload64 struct {
	_ [64]byte
}

func (payload64) Clone() any { return &payload64{} }

type benchProcessor struct{}

func (benchProcessor) Name() string                            { return "bench" }
func (benchProcessor) GetPrototypeType(string) (string, bool)  { return "Payload", true }
func (benchProcessor) OnCreatePrototype(any)                   {}
func (benchProcessor) OnDestroyPrototype(any)                  {}
func (benchProcessor) AcceptsExtension(ext string) bool        { return ext == "obj" }
func (benchProcessor) Score(cacheblocktype.Type) int           { return 0 }
func (benchProcessor) DistanceTo(concreteType string) int {
	if concreteType == "Payload" {
		return 0
	}
	return -1
}

type benchReflector struct{}

func (benchReflector) Instantiate(string) (any, error) { return &payload64{}, nil }

func (benchReflector) EngineTypes() []string { return nil }

// paths is the shared dataset of asset paths reused across benchmarks to
// avoid reallocating large slices.
var paths = func() []assetpath.Path {
	arr := make([]assetpath.Path, keys)
	for i := range arr {
		p, err := assetpath.Parse(fmt.Sprintf("/engine/objects/%d.obj", i))
		if err != nil {
			panic(err)
		}
		arr[i] = p
	}
	return arr
}()

func newBenchCache(tb testing.TB) *assetcache.Controller {
	c := assetcache.New()
	if !c.AddDomain("engine", tb.TempDir(), capBytes) {
		tb.Fatal("AddDomain failed")
	}
	return c
}

func newBenchData(tb testing.TB) (*assetdata.Controller, *assetcache.Controller) {
	cache := assetcache.New()
	processors := assetprocessor.NewRegistry()
	processors.Register(benchProcessor{})
	data := assetdata.New(cache, processors, assetdata.WithReflector(benchReflector{}))
	if !data.LoadDomain("engine", tb.TempDir(), capBytes) {
		tb.Fatal("LoadDomain failed")
	}
	return data, cache
}

func populate(tb testing.TB, data *assetdata.Controller) []*assetdata.TypeInfo {
	types := make([]*assetdata.TypeInfo, keys)
	for i, p := range paths {
		typ, ok := data.CreateType(p.Domain(), p, cacheblocktype.Object, uint32(i+1), "Payload", nil)
		if !ok {
			tb.Fatalf("CreateType(%d) failed", i)
		}
		types[i] = typ
	}
	return types
}

func BenchmarkWrite(b *testing.B) {
	data, _ := newBenchData(b)
	types := populate(b, data)
	val := make([]byte, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		typ := types[i&(keys-1)]
		if err := data.WriteBytes(typ, val); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRead(b *testing.B) {
	data, _ := newBenchData(b)
	types := populate(b, data)
	val := make([]byte, 64)
	for _, typ := range types {
		if err := data.WriteBytes(typ, val); err != nil {
			b.Fatal(err)
		}
	}
	buf := make([]byte, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		typ := types[i&(keys-1)]
		if _, err := data.ReadBytes(typ, buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadParallel(b *testing.B) {
	data, _ := newBenchData(b)
	types := populate(b, data)
	val := make([]byte, 64)
	for _, typ := range types {
		if err := data.WriteBytes(typ, val); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		buf := make([]byte, 64)
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			if _, err := data.ReadBytes(types[idx], buf); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkEnsureLoaded measures prototype-load dedup cost: every
// concurrent caller asking for the same TypeInfo must collapse onto one
// in-flight load via loaderGroup.
func BenchmarkEnsureLoaded(b *testing.B) {
	data, _ := newBenchData(b)
	types := populate(b, data)
	ctx := context.Background()

	loadFn := func(ctx context.Context, t *assetdata.TypeInfo) (*assetdata.Handle, error) {
		h, ok := data.CreatePrototype(t)
		if !ok {
			return nil, errPrototypeFailed
		}
		return h, nil
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		idx := rand.Intn(keys)
		for pb.Next() {
			idx = (idx + 1) & (keys - 1)
			if _, err := data.EnsureLoaded(ctx, types[idx], loadFn); err != nil {
				b.Fatal(err)
			}
		}
	})
}
