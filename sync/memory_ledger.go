package sync

import (
	"context"
	"fmt"
	"sort"
	stdsync "sync"

	"github.com/goliatone/go-interactions/core"
)

// MemoryLedger keeps sync records in process. Records for one scope are kept
// in insertion order.
type MemoryLedger struct {
	mu      stdsync.RWMutex
	records []core.CommandSyncRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Latest(_ context.Context, scope core.SyncScope) (core.CommandSyncRecord, error) {
	if l == nil {
		return core.CommandSyncRecord{}, fmt.Errorf("sync: ledger is nil")
	}
	scope = scope.Normalize()
	l.mu.RLock()
	defer l.mu.RUnlock()
	for index := len(l.records) - 1; index >= 0; index-- {
		if l.records[index].Scope() == scope {
			return cloneRecord(l.records[index]), nil
		}
	}
	return core.CommandSyncRecord{}, core.ErrSyncRecordNotFound
}

func (l *MemoryLedger) Record(_ context.Context, record core.CommandSyncRecord) (core.CommandSyncRecord, error) {
	if l == nil {
		return core.CommandSyncRecord{}, fmt.Errorf("sync: ledger is nil")
	}
	scope := record.Scope().Normalize()
	record.ApplicationID = scope.ApplicationID
	record.GuildID = scope.GuildID
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, cloneRecord(record))
	return cloneRecord(record), nil
}

func (l *MemoryLedger) List(_ context.Context, applicationID string) ([]core.CommandSyncRecord, error) {
	if l == nil {
		return nil, fmt.Errorf("sync: ledger is nil")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []core.CommandSyncRecord{}
	for _, record := range l.records {
		if applicationID == "" || record.ApplicationID == applicationID {
			out = append(out, cloneRecord(record))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SyncedAt.After(out[j].SyncedAt)
	})
	return out, nil
}

func cloneRecord(record core.CommandSyncRecord) core.CommandSyncRecord {
	record.CommandNames = append([]string(nil), record.CommandNames...)
	record.Metadata = mergeAnyMap(record.Metadata, nil)
	return record
}

var _ core.CommandSyncLedger = (*MemoryLedger)(nil)
