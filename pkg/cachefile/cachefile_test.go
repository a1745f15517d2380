package cachefile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Voskan/assetcache/internal/diskstore"
)

func TestFileStoreWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.dat")
	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	payload := []byte("hello cache object")
	if err := s.WriteAt(ctx, payload, 128, 256); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	buf := make([]byte, len(payload))
	if err := s.ReadAt(ctx, buf, 128); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("ReadAt = %q, want %q", buf, payload)
	}
}

func TestFileStoreZeroFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.dat")
	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.WriteAt(ctx, []byte("xxxx"), 0, 4)
	if err := s.ZeroFill(ctx, 0, 4); err != nil {
		t.Fatalf("ZeroFill: %v", err)
	}

	buf := make([]byte, 4)
	if err := s.ReadAt(ctx, buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("ZeroFill left non-zero byte: %v", buf)
		}
	}
}

func TestBadgerStoreWriteReadRoundTrip(t *testing.T) {
	disk, err := diskstore.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("diskstore.Open: %v", err)
	}
	defer disk.Close()

	s := NewBadgerStore(disk, "engine", 0)
	ctx := context.Background()
	payload := []byte("badger payload")
	if err := s.WriteAt(ctx, payload, 42, int64(len(payload))); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	buf := make([]byte, len(payload))
	if err := s.ReadAt(ctx, buf, 42); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("ReadAt = %q, want %q", buf, payload)
	}
}

func TestBadgerStoreReadMismatchedLengthFails(t *testing.T) {
	disk, err := diskstore.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("diskstore.Open: %v", err)
	}
	defer disk.Close()

	s := NewBadgerStore(disk, "engine", 0)
	ctx := context.Background()
	_ = s.WriteAt(ctx, []byte("12345"), 7, 5)

	buf := make([]byte, 3)
	if err := s.ReadAt(ctx, buf, 7); err == nil {
		t.Fatal("expected ReadAt to fail on a length mismatch")
	}
}
