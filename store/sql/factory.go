package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/ratelimit"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// DefaultRateLimitCacheTTL bounds how long a bucket read is served from
// memory. Writes invalidate the entry regardless.
const DefaultRateLimitCacheTTL = 30 * time.Second

type RepositoryFactory struct {
	db             *bun.DB
	rateLimitCache repositorycache.CacheService

	rateLimitStateStore *CachedRateLimitStateStore
	commandSyncStore    *CommandSyncStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as
// a go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) (*RepositoryFactory, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.rateLimitStateStore != nil && f.commandSyncStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

// WithRateLimitCache sets the cache in front of the rate-limit table. It
// must be called before BuildStores; otherwise a default in-memory cache
// is created.
func (f *RepositoryFactory) WithRateLimitCache(service repositorycache.CacheService) *RepositoryFactory {
	if f != nil {
		f.rateLimitCache = service
	}
	return f
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) RateLimitStateStore() ratelimit.StateStore {
	if f == nil || f.rateLimitStateStore == nil {
		return nil
	}
	return f.rateLimitStateStore
}

func (f *RepositoryFactory) CommandSyncLedger() core.CommandSyncLedger {
	if f == nil || f.commandSyncStore == nil {
		return nil
	}
	return f.commandSyncStore
}

func (f *RepositoryFactory) initStores() error {
	base, err := NewRateLimitStateStore(f.db)
	if err != nil {
		return err
	}
	if f.rateLimitCache == nil {
		config := repositorycache.DefaultConfig()
		config.TTL = DefaultRateLimitCacheTTL
		f.rateLimitCache, err = repositorycache.NewCacheService(config)
		if err != nil {
			return fmt.Errorf("sqlstore: rate-limit cache: %w", err)
		}
	}
	cached, err := NewCachedRateLimitStateStore(base, f.rateLimitCache)
	if err != nil {
		return err
	}
	f.rateLimitStateStore = cached

	commandSyncStore, err := NewCommandSyncStore(f.db)
	if err != nil {
		return err
	}
	f.commandSyncStore = commandSyncStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: bun db is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
