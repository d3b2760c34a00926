package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CommandSyncStore is the database backed command sync ledger. Rows are
// append only; the newest row per scope is the current state.
type CommandSyncStore struct {
	db   *bun.DB
	repo repository.Repository[*commandSyncRecord]
	now  func() time.Time
}

func NewCommandSyncStore(db *bun.DB) (*CommandSyncStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*commandSyncRecord](db, commandSyncHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid command sync repository wiring: %w", err)
		}
	}
	return &CommandSyncStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *CommandSyncStore) Latest(ctx context.Context, scope core.SyncScope) (core.CommandSyncRecord, error) {
	if s == nil || s.db == nil {
		return core.CommandSyncRecord{}, fmt.Errorf("sqlstore: command sync store is not configured")
	}
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return core.CommandSyncRecord{}, err
	}

	record := &commandSyncRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.application_id = ?", scope.ApplicationID).
		Where("?TableAlias.guild_id = ?", scope.GuildID).
		OrderExpr("?TableAlias.synced_at DESC").
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CommandSyncRecord{}, core.ErrSyncRecordNotFound
		}
		return core.CommandSyncRecord{}, err
	}
	return record.toDomain(), nil
}

func (s *CommandSyncStore) Record(ctx context.Context, in core.CommandSyncRecord) (core.CommandSyncRecord, error) {
	if s == nil || s.repo == nil {
		return core.CommandSyncRecord{}, fmt.Errorf("sqlstore: command sync store is not configured")
	}
	scope := in.Scope().Normalize()
	if err := scope.Validate(); err != nil {
		return core.CommandSyncRecord{}, err
	}
	if strings.TrimSpace(in.Fingerprint) == "" {
		return core.CommandSyncRecord{}, fmt.Errorf("sqlstore: command sync fingerprint is required")
	}
	record := newCommandSyncRecord(in, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.CommandSyncRecord{}, err
	}
	return created.toDomain(), nil
}

// List returns every ledger row for the application, newest first.
func (s *CommandSyncStore) List(ctx context.Context, applicationID string) ([]core.CommandSyncRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: command sync store is not configured")
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, fmt.Errorf("%w: application id is required", core.ErrInvalidApplicationID)
	}
	records := []*commandSyncRecord{}
	if err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.application_id = ?", applicationID).
		OrderExpr("?TableAlias.synced_at DESC").
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.CommandSyncRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
