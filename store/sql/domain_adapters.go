package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
)

func newCommandSyncRecord(in core.CommandSyncRecord, now time.Time) *commandSyncRecord {
	syncedAt := in.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = now
	}
	names := append([]string(nil), in.CommandNames...)
	if names == nil {
		names = []string{}
	}
	return &commandSyncRecord{
		ID:            strings.TrimSpace(in.ID),
		ApplicationID: strings.TrimSpace(in.ApplicationID),
		GuildID:       strings.TrimSpace(in.GuildID),
		Fingerprint:   strings.TrimSpace(in.Fingerprint),
		CommandCount:  in.CommandCount,
		CommandNames:  names,
		Metadata:      copyAnyMap(in.Metadata),
		SyncedAt:      syncedAt.UTC(),
		CreatedAt:     now,
	}
}

func (r *commandSyncRecord) toDomain() core.CommandSyncRecord {
	if r == nil {
		return core.CommandSyncRecord{}
	}
	return core.CommandSyncRecord{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		GuildID:       r.GuildID,
		Fingerprint:   r.Fingerprint,
		CommandCount:  r.CommandCount,
		CommandNames:  append([]string(nil), r.CommandNames...),
		SyncedAt:      r.SyncedAt.UTC(),
		Metadata:      copyAnyMap(r.Metadata),
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
