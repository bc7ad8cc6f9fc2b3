// Package output caches reads of generated files in front of a slower
// output backend (S3, Postgres, disk).
package output

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	outputrepo "pwabuilder/internal/gateway/repository/output"
)

type Store = outputrepo.Store

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	BlobMaxBytes   int

	ListTTL        time.Duration
	ListMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 2048,
		BlobMaxBytes:   32 * 1024 * 1024, // 32MiB
		ListTTL:        30 * time.Second,
		ListMaxEntries: 256,
		URLTTL:         10 * time.Minute,
		URLMaxEntries:  2048,
	}
}

// withDefaults fills every non-positive field from DefaultCacheConfig.
// BlobMaxBytes == 0 keeps the byte budget off.
func (c CacheConfig) withDefaults() CacheConfig {
	def := DefaultCacheConfig()
	if c.BlobTTL <= 0 {
		c.BlobTTL = def.BlobTTL
	}
	if c.BlobMaxEntries <= 0 {
		c.BlobMaxEntries = def.BlobMaxEntries
	}
	if c.BlobMaxBytes < 0 {
		c.BlobMaxBytes = def.BlobMaxBytes
	}
	if c.ListTTL <= 0 {
		c.ListTTL = def.ListTTL
	}
	if c.ListMaxEntries <= 0 {
		c.ListMaxEntries = def.ListMaxEntries
	}
	if c.URLTTL <= 0 {
		c.URLTTL = def.URLTTL
	}
	if c.URLMaxEntries <= 0 {
		c.URLMaxEntries = def.URLMaxEntries
	}
	return c
}

type MetricsSnapshot struct {
	BlobHits       uint64
	BlobMisses     uint64
	BlobBytes      int64
	ListHits       uint64
	ListMisses     uint64
	URLHits        uint64
	URLMisses      uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	urlHits        atomic.Uint64
	urlMisses      atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

// CachedStore is a read-through, write-through cache over an output Store.
// Errors from the origin, ErrNotFound included, are never cached.
type CachedStore struct {
	origin Store

	blobs *sizedLRU[[]byte]
	lists *sizedLRU[[]string]
	urls  *sizedLRU[string]
	m     metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	cfg = cfg.withDefaults()
	return &CachedStore{
		origin: origin,
		blobs:  newSizedLRU(cfg.BlobMaxEntries, cfg.BlobMaxBytes, cfg.BlobTTL, func(b []byte) int { return len(b) }),
		lists:  newSizedLRU(cfg.ListMaxEntries, 0, cfg.ListTTL, func(l []string) int { return len(l) }),
		urls:   newSizedLRU(cfg.URLMaxEntries, 0, cfg.URLTTL, func(u string) int { return len(u) }),
	}
}

// Origin returns the wrapped store.
func (s *CachedStore) Origin() Store {
	return s.origin
}

func (s *CachedStore) Put(ctx context.Context, runID, path string, content []byte) error {
	s.m.originWrites.Add(1)
	if err := s.origin.Put(ctx, runID, path, content); err != nil {
		s.m.originWriteErr.Add(1)
		return err
	}
	key := outputrepo.Key(runID, path)
	s.blobs.Set(key, append([]byte(nil), content...))
	s.lists.Delete(strings.TrimSpace(runID))
	s.urls.Delete(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, path string) ([]byte, error) {
	key := outputrepo.Key(runID, path)
	if raw, ok := s.blobs.Get(key); ok {
		s.m.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.m.blobMisses.Add(1)
	s.m.originReads.Add(1)

	raw, err := s.origin.Get(ctx, runID, path)
	if err != nil {
		s.m.originReadErr.Add(1)
		return nil, err
	}
	s.blobs.Set(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) GetURL(ctx context.Context, runID, path string) (string, error) {
	key := outputrepo.Key(runID, path)
	if u, ok := s.urls.Get(key); ok {
		s.m.urlHits.Add(1)
		return u, nil
	}
	s.m.urlMisses.Add(1)
	s.m.originReads.Add(1)

	u, err := s.origin.GetURL(ctx, runID, path)
	if err != nil {
		s.m.originReadErr.Add(1)
		return "", err
	}
	if strings.TrimSpace(u) != "" {
		s.urls.Set(key, u)
	}
	return u, nil
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if l, ok := s.lists.Get(runID); ok {
		s.m.listHits.Add(1)
		return append([]string(nil), l...), nil
	}
	s.m.listMisses.Add(1)
	s.m.originReads.Add(1)

	l, err := s.origin.List(ctx, runID)
	if err != nil {
		s.m.originReadErr.Add(1)
		return nil, err
	}
	s.lists.Set(runID, append([]string(nil), l...))
	return l, nil
}

// Purge drops every cached entry. Metrics are kept.
func (s *CachedStore) Purge() {
	s.blobs.Purge()
	s.lists.Purge()
	s.urls.Purge()
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		BlobHits:       s.m.blobHits.Load(),
		BlobMisses:     s.m.blobMisses.Load(),
		BlobBytes:      s.blobs.Bytes(),
		ListHits:       s.m.listHits.Load(),
		ListMisses:     s.m.listMisses.Load(),
		URLHits:        s.m.urlHits.Load(),
		URLMisses:      s.m.urlMisses.Load(),
		OriginReads:    s.m.originReads.Load(),
		OriginWrites:   s.m.originWrites.Load(),
		OriginReadErr:  s.m.originReadErr.Load(),
		OriginWriteErr: s.m.originWriteErr.Load(),
	}
}

var _ Store = (*CachedStore)(nil)
