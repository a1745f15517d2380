package diskstore

import (
	"context"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Put(ctx, "engine", 3, 42, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, ok, err := s.Get(ctx, "engine", 3, 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(data) != "payload" {
		t.Fatalf("Get = (%q, %v), want (\"payload\", true)", data, ok)
	}

	if err := s.Delete(ctx, "engine", 3, 42); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, "engine", 3, 42); err != nil || ok {
		t.Fatalf("Get after delete = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestGetMissingKeyReportsFalse(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	data, ok, err := s.Get(context.Background(), "mods.foo", 0, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || data != nil {
		t.Fatalf("Get(missing) = (%v, %v), want (nil, false)", data, ok)
	}
}

func TestCountDomainIsScopedByPrefix(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.Put(ctx, "engine", 0, 1, []byte("a"))
	_ = s.Put(ctx, "engine", 1, 2, []byte("b"))
	_ = s.Put(ctx, "mods.foo", 0, 1, []byte("c"))

	n, err := s.CountDomain("engine")
	if err != nil {
		t.Fatalf("CountDomain: %v", err)
	}
	if n != 2 {
		t.Fatalf("CountDomain(engine) = %d, want 2", n)
	}
}
