package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/migrations"
	sqlstore "github.com/goliatone/go-interactions/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	dsn    string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.dsn }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-interactions" }

// openStores connects to the configured database, applies migrations and
// returns the durable stores. Without a DSN it returns nil and the app keeps
// its in-memory stores.
func openStores(ctx context.Context, cfg core.DatabaseConfig) (*sqlstore.RepositoryFactory, func(), error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, func() {}, nil
	}

	driver, dialectName, dialect, err := resolveDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("interactions: open database: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{driver: driver, dsn: dsn, debug: cfg.Debug}, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("interactions: persistence client: %w", err)
	}
	closeClient := func() { _ = client.Close() }

	_, err = migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithDialects(dialectName))
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("interactions: migrate: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return factory, closeClient, nil
}

func resolveDialect(driver string) (string, string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return "sqlite3", migrations.DialectSQLite, sqlitedialect.New(), nil
	case "postgres":
		return "postgres", migrations.DialectPostgres, pgdialect.New(), nil
	default:
		return "", "", nil, fmt.Errorf("interactions: unsupported database driver %q", driver)
	}
}
