package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	interactions "github.com/goliatone/go-interactions"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel tags the interactions schema in a shared migration table.
	SourceLabel = "go-interactions"

	migrationsDir = "data/sql/migrations"
)

// dialectDirs maps each dialect to its directory below the migrations root.
// Postgres files sit at the root; sqlite has its own copy.
var dialectDirs = []struct {
	dialect string
	dir     string
}{
	{DialectPostgres, "."},
	{DialectSQLite, "sqlite"},
}

// Tree is the migration set for one SQL dialect.
type Tree struct {
	Dialect string
	Dir     string
	FS      fs.FS
}

// ApplyFunc receives one dialect tree, typically forwarding it to a
// persistence client's RegisterSQLMigrations.
type ApplyFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type settings struct {
	label    string
	dialects []string
	root     fs.FS
}

type Option func(*settings)

// WithDialects limits registration to the named dialects. Unknown names are
// rejected by Register.
func WithDialects(dialects ...string) Option {
	return func(s *settings) {
		selected := make([]string, 0, len(dialects))
		for _, dialect := range dialects {
			dialect = normalizeDialect(dialect)
			if dialect != "" && !containsDialect(selected, dialect) {
				selected = append(selected, dialect)
			}
		}
		s.dialects = selected
	}
}

func WithSourceLabel(label string) Option {
	return func(s *settings) {
		if label = strings.TrimSpace(label); label != "" {
			s.label = label
		}
	}
}

// WithRoot reads migrations from root instead of the embedded files.
func WithRoot(root fs.FS) Option {
	return func(s *settings) {
		if root != nil {
			s.root = root
		}
	}
}

// Trees resolves one tree per dialect from root, or from the embedded files
// when root is nil. Every tree must hold at least one *.up.sql file.
func Trees(root fs.FS) ([]Tree, error) {
	if root == nil {
		root = interactions.GetMigrationsFS()
	}
	base, err := fs.Sub(root, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: open %s: %w", migrationsDir, err)
	}

	trees := make([]Tree, 0, len(dialectDirs))
	for _, entry := range dialectDirs {
		sub := base
		if entry.dir != "." {
			if sub, err = fs.Sub(base, entry.dir); err != nil {
				return nil, fmt.Errorf("migrations: open %s tree: %w", entry.dialect, err)
			}
		}
		dir := path.Join(migrationsDir, entry.dir)
		ups, err := fs.Glob(sub, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: list %s: %w", dir, err)
		}
		if len(ups) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", dir)
		}
		trees = append(trees, Tree{Dialect: entry.dialect, Dir: dir, FS: sub})
	}
	return trees, nil
}

// Register passes the tree of each selected dialect to apply, in dialect
// order, and returns the trees it applied. Both dialects are selected by
// default.
func Register(ctx context.Context, apply ApplyFunc, opts ...Option) ([]Tree, error) {
	if apply == nil {
		return nil, fmt.Errorf("migrations: apply function is required")
	}
	cfg := settings{label: SourceLabel, dialects: []string{DialectPostgres, DialectSQLite}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.dialects) == 0 {
		return nil, fmt.Errorf("migrations: at least one dialect is required")
	}
	for _, dialect := range cfg.dialects {
		if !knownDialect(dialect) {
			return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
		}
	}

	trees, err := Trees(cfg.root)
	if err != nil {
		return nil, err
	}
	applied := make([]Tree, 0, len(cfg.dialects))
	for _, tree := range trees {
		if !containsDialect(cfg.dialects, tree.Dialect) {
			continue
		}
		if err := apply(ctx, tree.Dialect, cfg.label, tree.FS); err != nil {
			return applied, fmt.Errorf("migrations: apply %s: %w", tree.Dir, err)
		}
		applied = append(applied, tree)
	}
	return applied, nil
}

func normalizeDialect(dialect string) string {
	return strings.ToLower(strings.TrimSpace(dialect))
}

func knownDialect(dialect string) bool {
	for _, entry := range dialectDirs {
		if entry.dialect == dialect {
			return true
		}
	}
	return false
}

func containsDialect(dialects []string, dialect string) bool {
	for _, candidate := range dialects {
		if candidate == dialect {
			return true
		}
	}
	return false
}
