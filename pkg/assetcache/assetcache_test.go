package assetcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Voskan/assetcache/pkg/cacheblocktype"
	"github.com/Voskan/assetcache/pkg/cachefile"
)

type fakeRef struct {
	domain string
	bt     cacheblocktype.Type
	uid    uint32
}

func (r fakeRef) Domain() string                   { return r.domain }
func (r fakeRef) BlockType() cacheblocktype.Type    { return r.bt }
func (r fakeRef) UID() uint32                       { return r.uid }

func newTestController(t *testing.T) (*Controller, string) {
	t.Helper()
	dir := t.TempDir()
	c := New()
	if !c.AddDomain("engine", dir, 8*1024) {
		t.Fatal("AddDomain failed")
	}
	return c, dir
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	c, _ := newTestController(t)
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Texture, uid: 1}
	payload := []byte("hello cache")

	if err := c.Write(context.Background(), ref, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	buf := make([]byte, len(payload))
	n, err := c.Read(context.Background(), ref, buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Fatalf("Read returned %q (%d bytes), want %q", buf[:n], n, payload)
	}
}

func TestWriteGrowsPastInitialCapacity(t *testing.T) {
	c, _ := newTestController(t)
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Mesh, uid: 2}

	small := []byte("short")
	if err := c.Write(context.Background(), ref, small); err != nil {
		t.Fatalf("initial write failed: %v", err)
	}

	big := make([]byte, 200)
	for i := range big {
		big[i] = byte(i)
	}
	if err := c.Write(context.Background(), ref, big); err != nil {
		t.Fatalf("grown write failed: %v", err)
	}

	buf := make([]byte, len(big))
	n, err := c.Read(context.Background(), ref, buf)
	if err != nil {
		t.Fatalf("Read after growth failed: %v", err)
	}
	if n != len(big) {
		t.Fatalf("Read returned %d bytes, want %d", n, len(big))
	}
	for i := range big {
		if buf[i] != big[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, buf[i], big[i])
		}
	}
}

func TestReadBufferTooSmallFails(t *testing.T) {
	c, _ := newTestController(t)
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Audio, uid: 3}
	if err := c.Write(context.Background(), ref, []byte("0123456789")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := c.Read(context.Background(), ref, buf); err == nil {
		t.Fatal("Read with too-small buffer should fail")
	}
}

func TestDeleteRemovesIndexAndZeroFills(t *testing.T) {
	c, _ := newTestController(t)
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Font, uid: 4}
	if err := c.Write(context.Background(), ref, []byte("payload")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !c.Delete(context.Background(), ref) {
		t.Fatal("Delete should succeed")
	}
	if _, ok := c.FindIndex(ref); ok {
		t.Fatal("index should be gone after Delete")
	}
	if c.Delete(context.Background(), ref) {
		t.Fatal("second Delete should report false")
	}
}

func TestQuerySizeReflectsLatestWrite(t *testing.T) {
	c, _ := newTestController(t)
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Shader, uid: 5}
	if err := c.Write(context.Background(), ref, make([]byte, 64)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	size, ok := c.QuerySize(ref)
	if !ok || size != 64 {
		t.Fatalf("QuerySize = (%d, %v), want (64, true)", size, ok)
	}
}

func TestUnknownDomainFailsWriteReadDelete(t *testing.T) {
	c := New()
	ref := fakeRef{domain: "missing", bt: cacheblocktype.Object, uid: 1}
	if err := c.Write(context.Background(), ref, []byte("x")); err == nil {
		t.Fatal("Write against unknown domain should fail")
	}
	if _, err := c.Read(context.Background(), ref, make([]byte, 1)); err == nil {
		t.Fatal("Read against unknown domain should fail")
	}
	if c.Delete(context.Background(), ref) {
		t.Fatal("Delete against unknown domain should report false")
	}
}

func TestAddDomainTwiceFails(t *testing.T) {
	dir := t.TempDir()
	c := New()
	if !c.AddDomain("engine", dir, 1024) {
		t.Fatal("first AddDomain should succeed")
	}
	if c.AddDomain("ENGINE", dir, 1024) {
		t.Fatal("AddDomain should be case-insensitively idempotent-rejecting")
	}
}

func TestSaveDomainPersistsIndexAcrossReload(t *testing.T) {
	dir := t.TempDir()
	c := New()
	if !c.AddDomain("engine", dir, 8*1024) {
		t.Fatal("AddDomain failed")
	}
	ref := fakeRef{domain: "engine", bt: cacheblocktype.Level, uid: 7}
	if err := c.Write(context.Background(), ref, []byte("level-bytes")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !c.SaveDomain("engine") {
		t.Fatal("SaveDomain failed")
	}

	idxPath := filepath.Join(dir, "Level.cache.lfindex")
	if _, err := os.Stat(idxPath); err != nil {
		t.Fatalf("expected index file at %s: %v", idxPath, err)
	}

	reopened := New()
	if !reopened.AddDomain("engine", dir, 8*1024) {
		t.Fatal("reopen AddDomain failed")
	}
	buf := make([]byte, len("level-bytes"))
	n, err := reopened.Read(context.Background(), ref, buf)
	if err != nil {
		t.Fatalf("Read after reload failed: %v", err)
	}
	if string(buf[:n]) != "level-bytes" {
		t.Fatalf("Read after reload = %q, want %q", buf[:n], "level-bytes")
	}
}

func TestRemoveDomainClosesAndForgets(t *testing.T) {
	c, _ := newTestController(t)
	if !c.RemoveDomain("engine") {
		t.Fatal("RemoveDomain should succeed")
	}
	if c.HasDomain("engine") {
		t.Fatal("domain should be forgotten after RemoveDomain")
	}
	if c.RemoveDomain("engine") {
		t.Fatal("second RemoveDomain should report false")
	}
}

// memStore is an in-memory cachefile.Store standing in for a real backend,
// used to prove WithStoreFactory's closure is actually consulted instead
// of AddDomain's default cachefile.OpenFileStore.
type memStore struct {
	mu   sync.Mutex
	data map[int64][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[int64][]byte)} }

func (s *memStore) WriteAt(_ context.Context, data []byte, off int64, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), data...)
	s.data[off] = cp
	return nil
}

func (s *memStore) ReadAt(_ context.Context, buf []byte, off int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(buf, s.data[off])
	return nil
}

func (s *memStore) ZeroFill(_ context.Context, off, length int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[off] = make([]byte, length)
	return nil
}

func (s *memStore) Close() error { return nil }

func TestWithStoreFactorySubstitutesBackingStore(t *testing.T) {
	var calls int
	stores := make(map[cacheblocktype.Type]*memStore)
	factory := func(root string, bt cacheblocktype.Type) (cachefile.Store, error) {
		calls++
		s := newMemStore()
		stores[bt] = s
		return s, nil
	}

	c := New(WithStoreFactory(factory))
	dir := t.TempDir()
	if !c.AddDomain("engine", dir, 8*1024) {
		t.Fatal("AddDomain failed")
	}
	if calls != cacheblocktype.Count() {
		t.Fatalf("storeFactory called %d times, want %d", calls, cacheblocktype.Count())
	}

	ref := fakeRef{domain: "engine", bt: cacheblocktype.Object, uid: 1}
	want := []byte("hello")
	if err := c.Write(context.Background(), ref, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Nothing should have reached disk: the substituted store is
	// in-memory and AddDomain never opened a cachefile.OpenFileStore.
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written under %s, found %d", dir, len(entries))
	}

	got := make([]byte, len(want))
	if _, err := c.Read(context.Background(), ref, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
	if len(stores[cacheblocktype.Object].data) == 0 {
		t.Fatal("expected the substituted store for Object to have received a write")
	}
}
