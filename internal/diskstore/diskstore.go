// Package diskstore mirrors cache payloads into an embedded BadgerDB
// instance, addressed by (domain, blockType, slot) instead of an
// arbitrary string key, where slot is whatever uint32 the caller uses to
// identify a write — pkg/cachefile's BadgerStore passes the CacheBlock's
// byte Location for that slot, matching the offset FileStore would use.
// It backs pkg/cachefile's BadgerStore, an alternative to direct file I/O
// for deployments that want a single on-disk LSM store instead of one
// data file per CacheBlock.
//
// Adapted from the teacher's examples/disk_eject, which mirrors evicted
// cache entries into Badger via an EjectCallback; here the mirror is a
// first-class write-through store rather than an eviction side effect.
//
// © 2025 arena-cache authors. MIT License.
package diskstore

import (
	"context"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Store wraps a BadgerDB instance keyed by (domain, blockType, slot).
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (creating if necessary) a Badger instance rooted at dir.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("diskstore: open %q: %w", dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying Badger instance.
func (s *Store) Close() error {
	return s.db.Close()
}

// key builds the Badger key for one slot: domain/blockType/slot,
// binary-encoded so lexical iteration order groups by domain then block
// type then slot. The parameter named uid carries the caller's slot.
func key(domain string, blockType uint8, uid uint32) []byte {
	b := make([]byte, len(domain)+1+1+4)
	n := copy(b, domain)
	b[n] = '/'
	n++
	b[n] = blockType
	n++
	binary.BigEndian.PutUint32(b[n:], uid)
	return b
}

// Put writes data for (domain, blockType, uid), overwriting any existing
// value.
func (s *Store) Put(ctx context.Context, domain string, blockType uint8, uid uint32, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(domain, blockType, uid), data)
	})
	if err != nil {
		s.log.Warn("diskstore put failed", zap.String("domain", domain), zap.Uint32("uid", uid), zap.Error(err))
	}
	return err
}

// Get reads the bytes stored for (domain, blockType, uid). It reports
// (nil, false, nil) when no entry exists.
func (s *Store) Get(ctx context.Context, domain string, blockType uint8, uid uint32) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(domain, blockType, uid))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Delete removes the entry for (domain, blockType, uid), if present.
func (s *Store) Delete(ctx context.Context, domain string, blockType uint8, uid uint32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(domain, blockType, uid))
	})
}

// CountDomain returns the number of keys stored for domain, used by
// AssetCacheController's stats reporting and the CLI inspector.
func (s *Store) CountDomain(domain string) (uint64, error) {
	prefix := append([]byte(domain), '/')
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
