// Package storage remembers which products have already been published.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks published product ids.
type Store interface {
	Published(productID string) (bool, error)
	MarkPublished(productID string) error
	Close() error
}

// Backend types accepted by Config.Type.
const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
)

const (
	defaultProductTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// Config selects a backend and its retention. Zero durations take defaults.
type Config struct {
	Type            string
	Path            string
	ProductTTL      time.Duration
	CleanupInterval time.Duration
}

// NewStore opens the backend named by cfg.Type. An empty type disables storage.
func NewStore(cfg Config) (Store, error) {
	if cfg.ProductTTL <= 0 {
		cfg.ProductTTL = defaultProductTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	switch typ := strings.ToLower(strings.TrimSpace(cfg.Type)); typ {
	case "", TypeNone:
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Published(string) (bool, error) { return false, nil }
func (noopStore) MarkPublished(string) error     { return nil }
func (noopStore) Close() error                   { return nil }
