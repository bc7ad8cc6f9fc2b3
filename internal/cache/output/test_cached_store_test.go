package output

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	outputrepo "pwabuilder/internal/gateway/repository/output"
)

type fakeOrigin struct {
	mu sync.Mutex

	files map[string][]byte
	urls  map[string]string

	gets, puts, lists, urlReads int
	failPut                     bool
}

func newFakeOrigin() *fakeOrigin {
	return &fakeOrigin{files: map[string][]byte{}, urls: map[string]string{}}
}

func (o *fakeOrigin) Put(_ context.Context, runID, path string, content []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.puts++
	if o.failPut {
		return fmt.Errorf("put failed")
	}
	o.files[outputrepo.Key(runID, path)] = append([]byte(nil), content...)
	return nil
}

func (o *fakeOrigin) Get(_ context.Context, runID, path string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gets++
	raw, ok := o.files[outputrepo.Key(runID, path)]
	if !ok {
		return nil, outputrepo.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (o *fakeOrigin) GetURL(_ context.Context, runID, path string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urlReads++
	return o.urls[outputrepo.Key(runID, path)], nil
}

func (o *fakeOrigin) List(_ context.Context, runID string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lists++
	prefix := runID + "/"
	out := make([]string, 0, 8)
	for k := range o.files {
		if strings.HasPrefix(k, prefix) {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

func smallConfig(blobTTL time.Duration, blobEntries, blobBytes int) CacheConfig {
	return CacheConfig{
		BlobTTL: blobTTL, BlobMaxEntries: blobEntries, BlobMaxBytes: blobBytes,
		ListTTL: time.Minute, ListMaxEntries: 8,
		URLTTL: time.Minute, URLMaxEntries: 8,
	}
}

func TestCachedStore_ReadThroughAndMetrics(t *testing.T) {
	origin := newFakeOrigin()
	origin.files["r1/lib/main.dart"] = []byte("void main() {}")
	store := NewCachedStore(origin, smallConfig(time.Minute, 8, 1024))

	for i := 0; i < 2; i++ {
		got, err := store.Get(context.Background(), "r1", "lib/main.dart")
		if err != nil {
			t.Fatalf("get #%d failed: %v", i, err)
		}
		if string(got) != "void main() {}" {
			t.Fatalf("unexpected content: %q", got)
		}
	}
	if origin.gets != 1 {
		t.Fatalf("expected one origin get, got %d", origin.gets)
	}
	m := store.Metrics()
	if m.BlobHits != 1 || m.BlobMisses != 1 || m.OriginReads != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if m.BlobBytes != int64(len("void main() {}")) {
		t.Fatalf("unexpected blob bytes: %d", m.BlobBytes)
	}
}

func TestCachedStore_WriteThroughInvalidatesList(t *testing.T) {
	origin := newFakeOrigin()
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	if err := store.Put(ctx, "r1", "a.dart", []byte("A")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	first, err := store.List(ctx, "r1")
	if err != nil || !reflect.DeepEqual(first, []string{"a.dart"}) {
		t.Fatalf("unexpected list: %v %v", first, err)
	}
	if err := store.Put(ctx, "r1", "b.dart", []byte("B")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	second, err := store.List(ctx, "r1")
	if err != nil || !reflect.DeepEqual(second, []string{"a.dart", "b.dart"}) {
		t.Fatalf("list not invalidated: %v %v", second, err)
	}
	if origin.lists != 2 {
		t.Fatalf("expected two origin list calls, got %d", origin.lists)
	}

	got, err := store.Get(ctx, "r1", "b.dart")
	if err != nil || string(got) != "B" {
		t.Fatalf("get after put: %q %v", got, err)
	}
	if origin.gets != 0 {
		t.Fatalf("written file should be served from cache, origin gets=%d", origin.gets)
	}
}

func TestCachedStore_FailedWriteIsNotCached(t *testing.T) {
	origin := newFakeOrigin()
	origin.failPut = true
	store := NewCachedStore(origin, DefaultCacheConfig())

	if err := store.Put(context.Background(), "r1", "a.dart", []byte("bad")); err == nil {
		t.Fatalf("expected put error")
	}
	_, err := store.Get(context.Background(), "r1", "a.dart")
	if !errors.Is(err, outputrepo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if m := store.Metrics(); m.OriginWriteErr != 1 || m.OriginReadErr != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	origin := newFakeOrigin()
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	if _, err := store.Get(ctx, "r1", "late.dart"); !errors.Is(err, outputrepo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	origin.files["r1/late.dart"] = []byte("here")
	got, err := store.Get(ctx, "r1", "late.dart")
	if err != nil || string(got) != "here" {
		t.Fatalf("expected origin hit after miss: %q %v", got, err)
	}
}

func TestCachedStore_EntryLimitAndTTL(t *testing.T) {
	origin := newFakeOrigin()
	origin.files["r1/a"] = []byte("A")
	origin.files["r1/b"] = []byte("B")
	ctx := context.Background()

	store := NewCachedStore(origin, smallConfig(time.Minute, 1, 1024))
	for _, p := range []string{"a", "b", "a"} {
		if _, err := store.Get(ctx, "r1", p); err != nil {
			t.Fatalf("get %s failed: %v", p, err)
		}
	}
	if origin.gets != 3 {
		t.Fatalf("expected 3 origin gets with one cache slot, got %d", origin.gets)
	}

	origin.gets = 0
	short := NewCachedStore(origin, smallConfig(10*time.Millisecond, 8, 1024))
	if _, err := short.Get(ctx, "r1", "a"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := short.Get(ctx, "r1", "a"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if origin.gets != 2 {
		t.Fatalf("expected 2 origin gets after expiry, got %d", origin.gets)
	}
}

func TestCachedStore_ByteBudget(t *testing.T) {
	origin := newFakeOrigin()
	origin.files["r1/a"] = []byte("aaaa")
	origin.files["r1/b"] = []byte("bbbb")
	origin.files["r1/huge"] = []byte("0123456789")
	ctx := context.Background()

	store := NewCachedStore(origin, smallConfig(time.Minute, 8, 6))
	for _, p := range []string{"a", "b"} {
		if _, err := store.Get(ctx, "r1", p); err != nil {
			t.Fatalf("get %s failed: %v", p, err)
		}
	}
	if got := store.Metrics().BlobBytes; got != 4 {
		t.Fatalf("expected oldest blob evicted to fit budget, bytes=%d", got)
	}
	if _, err := store.Get(ctx, "r1", "huge"); err != nil {
		t.Fatalf("get huge failed: %v", err)
	}
	if _, err := store.Get(ctx, "r1", "huge"); err != nil {
		t.Fatalf("get huge failed: %v", err)
	}
	if origin.gets != 4 {
		t.Fatalf("oversized blob must bypass the cache, origin gets=%d", origin.gets)
	}
}

func TestCachedStore_URL(t *testing.T) {
	origin := newFakeOrigin()
	origin.urls["run-1/p1"] = "https://example.test/p1"
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		u, err := store.GetURL(ctx, "run-1", "p1")
		if err != nil || u != "https://example.test/p1" {
			t.Fatalf("url #%d: %q %v", i, u, err)
		}
	}
	if origin.urlReads != 1 {
		t.Fatalf("expected one origin url call, got %d", origin.urlReads)
	}

	// empty urls are not cached
	for i := 0; i < 2; i++ {
		if _, err := store.GetURL(ctx, "run-1", "p2"); err != nil {
			t.Fatalf("url failed: %v", err)
		}
	}
	if origin.urlReads != 3 {
		t.Fatalf("expected empty url to reach origin each time, got %d", origin.urlReads)
	}
}

func TestCachedStore_Purge(t *testing.T) {
	origin := newFakeOrigin()
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()
	if err := store.Put(ctx, "r1", "a", []byte("A")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	store.Purge()
	if _, err := store.Get(ctx, "r1", "a"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if origin.gets != 1 {
		t.Fatalf("expected origin read after purge, got %d", origin.gets)
	}
	if store.Metrics().BlobBytes != 1 {
		t.Fatalf("unexpected bytes after purge+get: %d", store.Metrics().BlobBytes)
	}
}

func TestSizedLRU_OverwriteAfterExpiryKeepsBytesExact(t *testing.T) {
	c := newSizedLRU(8, 0, 10*time.Millisecond, func(b []byte) int { return len(b) })
	c.Set("k", []byte("12345"))
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry should have expired")
	}

	c.Set("k", []byte("abc"))
	if got := c.Bytes(); got != 3 {
		t.Fatalf("bytes after overwrite of expired entry = %d, want 3", got)
	}
	c.Set("k", []byte("z"))
	if got := c.Bytes(); got != 1 {
		t.Fatalf("bytes after live overwrite = %d, want 1", got)
	}
	c.Delete("k")
	if got := c.Bytes(); got != 0 {
		t.Fatalf("bytes after delete = %d, want 0", got)
	}
}

func TestSizedLRU_EntryEvictionReleasesBytes(t *testing.T) {
	c := newSizedLRU(2, 0, time.Minute, func(b []byte) int { return len(b) })
	c.Set("a", []byte("aa"))
	c.Set("b", []byte("bbb"))
	c.Set("c", []byte("c"))
	if got := c.Bytes(); got != 4 {
		t.Fatalf("bytes = %d, want 4 once a is evicted", got)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	c.Purge()
	if c.Bytes() != 0 || c.Len() != 0 {
		t.Fatalf("purge left bytes=%d len=%d", c.Bytes(), c.Len())
	}
}
