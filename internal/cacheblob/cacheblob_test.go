package cacheblob

import (
	"testing"

	"github.com/Voskan/assetcache/internal/bugreport"
	"github.com/Voskan/assetcache/internal/cacheobject"
)

func captureBugs(t *testing.T) *[]string {
	t.Helper()
	var msgs []string
	bugreport.SetSink(func(msg string) { msgs = append(msgs, msg) })
	t.Cleanup(func() { bugreport.SetSink(nil) })
	return &msgs
}

func TestReserveAppendsThenFirstFits(t *testing.T) {
	b := New()
	b.Initialize(nil, 100)

	id1, ok := b.Reserve(1, 30)
	if !ok || id1 != 0 {
		t.Fatalf("first reserve = (%d, %v), want (0, true)", id1, ok)
	}
	id2, ok := b.Reserve(2, 30)
	if !ok || id2 != 1 {
		t.Fatalf("second reserve = (%d, %v), want (1, true)", id2, ok)
	}

	if !b.Destroy(id1) {
		t.Fatal("Destroy(id1) failed")
	}

	// A same-or-smaller request should reuse the tombstone before appending.
	id3, ok := b.Reserve(3, 20)
	if !ok || id3 != id1 {
		t.Fatalf("Reserve after destroy = (%d, %v), want (%d, true)", id3, ok, id1)
	}
	obj, _ := b.GetObject(id3)
	if obj.Capacity != 30 || obj.Size != 20 {
		t.Fatalf("reused tombstone object = %+v, want capacity=30 size=20", obj)
	}
}

func TestReserveFailsWhenCapacityExhausted(t *testing.T) {
	b := New()
	b.Initialize(nil, 50)
	if _, ok := b.Reserve(1, 40); !ok {
		t.Fatal("expected first reserve to succeed")
	}
	if id, ok := b.Reserve(2, 20); ok {
		t.Fatalf("expected capacity-exhausted reserve to fail, got id=%d", id)
	}
}

func TestReserveInvalidArgumentsAreBugs(t *testing.T) {
	msgs := captureBugs(t)
	b := New()
	b.Initialize(nil, 10)

	if _, ok := b.Reserve(cacheobject.Invalid, 1); ok {
		t.Fatal("expected reserve with invalid uid to fail")
	}
	if _, ok := b.Reserve(1, 0); ok {
		t.Fatal("expected reserve with zero size to fail")
	}
	if len(*msgs) != 2 {
		t.Fatalf("expected 2 bug reports, got %v", *msgs)
	}
	if (*msgs)[0] != ErrInvalidAssetID || (*msgs)[1] != ErrInvalidSize {
		t.Fatalf("unexpected bug messages: %v", *msgs)
	}
}

func TestReserveOnUninitializedBlobIsBug(t *testing.T) {
	msgs := captureBugs(t)
	b := New()
	if _, ok := b.Reserve(1, 10); ok {
		t.Fatal("expected reserve on uninitialized blob to fail")
	}
	if len(*msgs) != 1 || (*msgs)[0] != ErrBlobNotInitialized {
		t.Fatalf("unexpected bug messages: %v", *msgs)
	}
}

func TestUpdateInPlaceWithinCapacity(t *testing.T) {
	b := New()
	b.Initialize(nil, 100)
	id, _ := b.Reserve(1, 50)
	b.Destroy(id)
	id2, ok := b.Reserve(1, 10)
	if !ok || id2 != id {
		t.Fatalf("expected tombstone reuse at %d, got %d ok=%v", id, id2, ok)
	}
	if !b.Update(id2, 50) {
		t.Fatal("expected update within original capacity to succeed")
	}
	if obj, _ := b.GetObject(id2); obj.Size != 50 {
		t.Fatalf("object size = %d, want 50", obj.Size)
	}
}

func TestUpdateBeyondCapacityFailsWithoutBug(t *testing.T) {
	msgs := captureBugs(t)
	b := New()
	b.Initialize(nil, 100)
	id, _ := b.Reserve(1, 10)
	if b.Update(id, 11) {
		t.Fatal("expected update beyond capacity to fail")
	}
	if len(*msgs) != 0 {
		t.Fatalf("update-beyond-capacity must not be reported as a bug, got %v", *msgs)
	}
}

func TestDestroyTwiceIsBug(t *testing.T) {
	msgs := captureBugs(t)
	b := New()
	b.Initialize(nil, 100)
	id, _ := b.Reserve(1, 10)
	if !b.Destroy(id) {
		t.Fatal("first destroy should succeed")
	}
	if b.Destroy(id) {
		t.Fatal("second destroy should fail")
	}
	if len(*msgs) != 1 || (*msgs)[0] != ErrObjectNull {
		t.Fatalf("unexpected bug messages: %v", *msgs)
	}
}

func TestFragmentationAccounting(t *testing.T) {
	b := New()
	b.Initialize(nil, 100)
	id1, _ := b.Reserve(1, 20)
	_, _ = b.Reserve(2, 20)
	b.Destroy(id1)

	if got := b.FragmentedObjects(); got != 1 {
		t.Fatalf("FragmentedObjects() = %d, want 1", got)
	}
	if got := b.FragmentedBytes(); got != 20 {
		t.Fatalf("FragmentedBytes() = %d, want 20", got)
	}
	if got := b.BytesUsed(); got != 20 {
		t.Fatalf("BytesUsed() = %d, want 20", got)
	}
}
