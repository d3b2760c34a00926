package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type rateLimitStateRecord struct {
	bun.BaseModel `bun:"table:interaction_rate_limit_states,alias:irl"`

	ID           string         `bun:"id,pk"`
	Route        string         `bun:"route,notnull"`
	BucketKey    string         `bun:"bucket_key,notnull"`
	Bucket       string         `bun:"bucket,notnull"`
	Scope        string         `bun:"scope,notnull"`
	Limit        int            `bun:"request_limit,notnull"`
	Remaining    int            `bun:"remaining,notnull"`
	ResetAt      *time.Time     `bun:"reset_at,nullzero"`
	RetryAfterMS *int64         `bun:"retry_after_ms,nullzero"`
	Metadata     map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type commandSyncRecord struct {
	bun.BaseModel `bun:"table:interaction_command_syncs,alias:ics"`

	ID            string         `bun:"id,pk"`
	ApplicationID string         `bun:"application_id,notnull"`
	GuildID       string         `bun:"guild_id,notnull"`
	Fingerprint   string         `bun:"fingerprint,notnull"`
	CommandCount  int            `bun:"command_count,notnull"`
	CommandNames  []string       `bun:"command_names,type:jsonb,notnull"`
	Metadata      map[string]any `bun:"metadata,type:jsonb,notnull"`
	SyncedAt      time.Time      `bun:"synced_at,notnull"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
