package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, cfg Config) (*boltStore, *time.Time) {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "nested", "published.db")
	raw, err := openBolt(cfg)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }
	store.nextSweep = clock.Add(store.sweepEvery)
	return store, &clock
}

func TestBoltStoreMarksAndExpiresProducts(t *testing.T) {
	store, clock := openTestStore(t, Config{ProductTTL: time.Minute, CleanupInterval: time.Hour})

	published, err := store.Published("ep-1")
	if err != nil || published {
		t.Fatalf("expected unpublished product, published=%v err=%v", published, err)
	}

	if err := store.MarkPublished("ep-1"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	published, err = store.Published("ep-1")
	if err != nil || !published {
		t.Fatalf("expected product marked as published, got published=%v err=%v", published, err)
	}

	*clock = clock.Add(2 * time.Minute)
	published, err = store.Published("ep-1")
	if err != nil {
		t.Fatalf("Published after expiry: %v", err)
	}
	if published {
		t.Fatalf("expected entry to be expired")
	}
}

func TestBoltStoreSweepsExpiredRecordsOnWrite(t *testing.T) {
	store, clock := openTestStore(t, Config{ProductTTL: time.Minute, CleanupInterval: time.Minute})

	if err := store.MarkPublished("old"); err != nil {
		t.Fatalf("MarkPublished old: %v", err)
	}
	*clock = clock.Add(5 * time.Minute)
	if err := store.MarkPublished("new"); err != nil {
		t.Fatalf("MarkPublished new: %v", err)
	}

	var keys []string
	err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productsBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		t.Fatalf("scan bucket: %v", err)
	}
	if len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("expected only the fresh record to remain, got %v", keys)
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.db")

	store, err := NewStore(Config{Type: TypeBBolt, Path: path})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.MarkPublished("ep-2"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = NewStore(Config{Type: TypeBBolt, Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	published, err := store.Published("ep-2")
	if err != nil || !published {
		t.Fatalf("expected product to persist across reopen, published=%v err=%v", published, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore(Config{Type: "none"})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkPublished("x"); err != nil {
		t.Fatalf("noop store MarkPublished: %v", err)
	}
	if published, _ := store.Published("x"); published {
		t.Fatalf("noop store should never report published")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore(Config{Type: "redis"}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
	if _, err := NewStore(Config{Type: TypeBBolt, Path: " "}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
