package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var productsBucket = []byte("published_products")

var errBucketMissing = errors.New("published products bucket missing")

// A record holds the publish time followed by the expiry time, both as
// big-endian unix seconds.
const recordLen = 16

type boltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	sweepEvery time.Duration
	sweepMu    sync.Mutex
	nextSweep  time.Time
}

func openBolt(cfg Config) (Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(productsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	s := &boltStore{
		db:         db,
		ttl:        cfg.ProductTTL,
		now:        time.Now,
		sweepEvery: cfg.CleanupInterval,
	}
	s.nextSweep = s.now().Add(s.sweepEvery)
	return s, nil
}

func (s *boltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Published reports whether productID has an unexpired publish record.
// Expired records are left for the next sweep.
func (s *boltStore) Published(productID string) (bool, error) {
	var live bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(productsBucket)
		if b == nil {
			return errBucketMissing
		}
		_, expires, ok := decodeRecord(b.Get([]byte(productID)))
		live = ok && expires.After(s.now())
		return nil
	})
	return live, err
}

// MarkPublished stores a publish record for productID valid for the store TTL.
// Expired records are swept in the same transaction once per cleanup interval.
func (s *boltStore) MarkPublished(productID string) error {
	now := s.now()
	sweep := s.sweepDue(now)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productsBucket)
		if b == nil {
			return errBucketMissing
		}
		if sweep {
			if err := sweepExpired(b, now); err != nil {
				return err
			}
		}
		return b.Put([]byte(productID), encodeRecord(now, now.Add(s.ttl)))
	})
	if err != nil {
		return fmt.Errorf("mark product %s published: %w", productID, err)
	}
	return nil
}

func (s *boltStore) sweepDue(now time.Time) bool {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if now.Before(s.nextSweep) {
		return false
	}
	s.nextSweep = now.Add(s.sweepEvery)
	return true
}

func sweepExpired(b *bolt.Bucket, now time.Time) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if _, expires, ok := decodeRecord(v); ok && expires.After(now) {
			continue
		}
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

func encodeRecord(published, expires time.Time) []byte {
	buf := make([]byte, recordLen)
	binary.BigEndian.PutUint64(buf[:8], uint64(published.Unix()))
	binary.BigEndian.PutUint64(buf[8:], uint64(expires.Unix()))
	return buf
}

func decodeRecord(v []byte) (published, expires time.Time, ok bool) {
	if len(v) != recordLen {
		return time.Time{}, time.Time{}, false
	}
	published = time.Unix(int64(binary.BigEndian.Uint64(v[:8])), 0)
	expires = time.Unix(int64(binary.BigEndian.Uint64(v[8:])), 0)
	return published, expires, true
}
