package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/ratelimit"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubRateLimitStateStore struct {
	mu          sync.Mutex
	state       ratelimit.State
	getCalls    int
	upsertCalls int
	getErr      error
	upsertErr   error
}

func (s *stubRateLimitStateStore) Get(_ context.Context, _ core.RateLimitKey) (ratelimit.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return ratelimit.State{}, s.getErr
	}
	return cloneRateLimitState(s.state), nil
}

func (s *stubRateLimitStateStore) Upsert(_ context.Context, state ratelimit.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.state = cloneRateLimitState(state)
	return nil
}

func TestCachedRateLimitStateStore_Get_MissFetchThenHit(t *testing.T) {
	cacheService := newTestRateLimitCacheService(t)
	base := &stubRateLimitStateStore{
		state: ratelimit.State{
			Key:       core.RateLimitKey{Route: "channels/1/messages", BucketKey: "abc"},
			Limit:     5000,
			Remaining: 4999,
			UpdatedAt: time.Now().UTC(),
			Metadata:  map[string]any{"source": "base"},
		},
	}

	store, err := NewCachedRateLimitStateStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	key := core.RateLimitKey{Route: "channels/1/messages", BucketKey: "abc"}
	if _, err := store.Get(context.Background(), key); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), key); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedRateLimitStateStore_Upsert_InvalidatesCachedKey(t *testing.T) {
	cacheService := newTestRateLimitCacheService(t)
	base := &stubRateLimitStateStore{
		state: ratelimit.State{
			Key:       core.RateLimitKey{Route: "channels/2/messages", BucketKey: "abc"},
			Limit:     5000,
			Remaining: 4999,
			UpdatedAt: time.Now().UTC(),
		},
	}

	store, err := NewCachedRateLimitStateStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	key := core.RateLimitKey{Route: "channels/2/messages", BucketKey: "abc"}
	if _, err := store.Get(context.Background(), key); err != nil {
		t.Fatalf("prime cache with get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read after cache prime, got %d", base.getCalls)
	}

	if err := store.Upsert(context.Background(), ratelimit.State{
		Key:       key,
		Limit:     5000,
		Remaining: 4500,
		UpdatedAt: time.Now().UTC(),
		Metadata:  map[string]any{"updated": true},
	}); err != nil {
		t.Fatalf("upsert through cached store: %v", err)
	}
	if base.upsertCalls != 1 {
		t.Fatalf("expected base upsert call count=1, got %d", base.upsertCalls)
	}

	state, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get after upsert invalidation: %v", err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected invalidated key to force second base read, got %d", base.getCalls)
	}
	if state.Remaining != 4500 {
		t.Fatalf("expected refreshed state remaining=4500, got %d", state.Remaining)
	}
}

func TestCachedRateLimitStateStore_KeyNormalizationUsesSingleCacheEntry(t *testing.T) {
	cacheService := newTestRateLimitCacheService(t)
	base := &stubRateLimitStateStore{
		state: ratelimit.State{
			Key:       core.RateLimitKey{Route: "guilds/3/members", BucketKey: "abc"},
			Limit:     5000,
			Remaining: 4998,
			UpdatedAt: time.Now().UTC(),
		},
	}
	store, err := NewCachedRateLimitStateStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	first := core.RateLimitKey{
		Route:     " /guilds/3/members/ ",
		BucketKey: " ABC ",
	}
	second := core.RateLimitKey{
		Route:     "guilds/3/members",
		BucketKey: "abc",
	}
	if _, err := store.Get(context.Background(), second); err != nil {
		t.Fatalf("second normalized get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected normalized keys to share cache entry, base get calls=%d", base.getCalls)
	}

	firstCacheKey, err := RateLimitStateCacheKey(first)
	if err != nil {
		t.Fatalf("cache key for first input: %v", err)
	}
	secondCacheKey, err := RateLimitStateCacheKey(second)
	if err != nil {
		t.Fatalf("cache key for second input: %v", err)
	}
	if firstCacheKey != secondCacheKey {
		t.Fatalf("expected normalized cache keys to match, got %q != %q", firstCacheKey, secondCacheKey)
	}
}

func TestRateLimitStateCacheKey_Contract(t *testing.T) {
	key, err := RateLimitStateCacheKey(core.RateLimitKey{
		Route:     "DELETE channels/42/messages/:id",
		BucketKey: " A1B2 ",
	})
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}

	const expected = "go-interactions::ratelimit_state::v1::DELETE%20channels%2F42%2Fmessages%2F:id::a1b2"
	if key != expected {
		t.Fatalf("unexpected cache key contract: got %q want %q", key, expected)
	}
}

func TestCachedRateLimitStateStore_PropagatesBaseErrors(t *testing.T) {
	cacheService := newTestRateLimitCacheService(t)
	base := &stubRateLimitStateStore{getErr: ratelimit.ErrStateNotFound}
	store, err := NewCachedRateLimitStateStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	_, err = store.Get(context.Background(), core.RateLimitKey{Route: "channels/404/messages"})
	if !errors.Is(err, ratelimit.ErrStateNotFound) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}

func newTestRateLimitCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestRateLimitStateCacheKey_UnknownBucketAndMissingRoute(t *testing.T) {
	key, err := RateLimitStateCacheKey(core.RateLimitKey{Route: "global"})
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}
	if key != "go-interactions::ratelimit_state::v1::global::-" {
		t.Fatalf("unexpected cache key %q", key)
	}
	if _, err := RateLimitStateCacheKey(core.RateLimitKey{Route: " / "}); err == nil {
		t.Fatalf("expected missing route error")
	}
}
