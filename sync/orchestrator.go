package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/rest"
	"github.com/google/uuid"
)

// DriftFingerprint marks a ledger entry written after the remote command set
// was changed outside a sync. It never matches a computed fingerprint, so the
// next sync of that scope publishes again.
const DriftFingerprint = "drifted"

// Publisher replaces the command set of one scope.
type Publisher interface {
	BulkOverwriteCommands(
		ctx context.Context,
		applicationID string,
		guildID string,
		commands []core.SyncCommand,
	) ([]rest.ApplicationCommand, error)
}

type Request struct {
	Scope core.SyncScope
	// DryRun computes the plan without publishing or recording.
	DryRun bool
	// Force publishes even when the ledger fingerprint matches.
	Force    bool
	Metadata map[string]any
}

type Result struct {
	Scope       core.SyncScope
	Fingerprint string
	Commands    []core.SyncCommand
	Registered  []rest.ApplicationCommand
	Record      *core.CommandSyncRecord
	Published   bool
	Skipped     bool
	DryRun      bool
}

type Status struct {
	Scope              core.SyncScope
	CurrentFingerprint string
	CommandCount       int
	Last               *core.CommandSyncRecord
	InSync             bool
}

type OrchestratorOption func(*Orchestrator)

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if o == nil || now == nil {
			return
		}
		o.Now = now
	}
}

func WithObserver(observer *core.Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		if o == nil {
			return
		}
		o.Observer = observer
	}
}

// Orchestrator publishes the registered command set with a single bulk
// overwrite per scope and skips the call when nothing changed since the last
// recorded sync.
type Orchestrator struct {
	Commands  *core.CommandRegistry
	Publisher Publisher
	Ledger    core.CommandSyncLedger
	Observer  *core.Observer
	Now       func() time.Time
}

func NewOrchestrator(
	commands *core.CommandRegistry,
	publisher Publisher,
	ledger core.CommandSyncLedger,
	opts ...OrchestratorOption,
) *Orchestrator {
	orchestrator := &Orchestrator{
		Commands:  commands,
		Publisher: publisher,
		Ledger:    ledger,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(orchestrator)
		}
	}
	return orchestrator
}

func (o *Orchestrator) Sync(ctx context.Context, req Request) (result Result, err error) {
	if o == nil || o.Commands == nil {
		return Result{}, fmt.Errorf("sync: orchestrator requires a command registry")
	}
	scope := req.Scope.Normalize()
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}

	startedAt := time.Now()
	fields := map[string]any{
		"application_id": scope.ApplicationID,
		"guild_id":       scope.GuildID,
		"dry_run":        req.DryRun,
		"force":          req.Force,
	}
	defer func() {
		fields["published"] = result.Published
		fields["skipped"] = result.Skipped
		o.Observer.ObserveOperation(ctx, startedAt, core.OperationCommandSync, err, fields)
	}()

	commands := o.Commands.ListForSync()
	fingerprint, err := core.FingerprintCommands(commands)
	if err != nil {
		return Result{}, err
	}
	fields["command_count"] = len(commands)
	result = Result{
		Scope:       scope,
		Fingerprint: fingerprint,
		Commands:    commands,
		DryRun:      req.DryRun,
	}

	last, found, err := o.latest(ctx, scope)
	if err != nil {
		return Result{}, err
	}
	if found {
		result.Record = &last
	}
	unchanged := found && last.Fingerprint == fingerprint
	if req.DryRun {
		result.Skipped = unchanged && !req.Force
		return result, nil
	}
	if unchanged && !req.Force {
		result.Skipped = true
		return result, nil
	}

	if o.Publisher == nil {
		return Result{}, fmt.Errorf("sync: orchestrator requires a publisher")
	}
	registered, err := o.Publisher.BulkOverwriteCommands(ctx, scope.ApplicationID, scope.GuildID, commands)
	if err != nil {
		return Result{}, err
	}
	result.Registered = registered
	result.Published = true

	if o.Ledger == nil {
		return result, nil
	}
	record, err := o.Ledger.Record(ctx, core.CommandSyncRecord{
		ID:            uuid.NewString(),
		ApplicationID: scope.ApplicationID,
		GuildID:       scope.GuildID,
		Fingerprint:   fingerprint,
		CommandCount:  len(commands),
		CommandNames:  core.CommandNames(commands),
		SyncedAt:      o.now(),
		Metadata:      mergeAnyMap(map[string]any{"forced": req.Force}, req.Metadata),
	})
	if err != nil {
		return result, err
	}
	result.Record = &record
	return result, nil
}

// MarkDrifted records that the remote commands of scope no longer match the
// last sync, for example after a single command was deleted. Scopes that were
// never synced are left alone.
func (o *Orchestrator) MarkDrifted(ctx context.Context, scope core.SyncScope, reason string, metadata map[string]any) error {
	if o == nil || o.Ledger == nil {
		return nil
	}
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return err
	}
	last, found, err := o.latest(ctx, scope)
	if err != nil || !found {
		return err
	}
	if last.Fingerprint == DriftFingerprint {
		return nil
	}
	_, err = o.Ledger.Record(ctx, core.CommandSyncRecord{
		ID:            uuid.NewString(),
		ApplicationID: scope.ApplicationID,
		GuildID:       scope.GuildID,
		Fingerprint:   DriftFingerprint,
		CommandCount:  last.CommandCount,
		CommandNames:  last.CommandNames,
		SyncedAt:      o.now(),
		Metadata:      mergeAnyMap(map[string]any{"drift": strings.TrimSpace(reason)}, metadata),
	})
	if err != nil {
		return err
	}
	o.Observer.LogInfo(ctx, "command sync ledger marked drifted", map[string]any{
		"application_id": scope.ApplicationID,
		"guild_id":       scope.GuildID,
		"drift":          strings.TrimSpace(reason),
	})
	return nil
}

// Status compares the registered commands with the last recorded sync.
func (o *Orchestrator) Status(ctx context.Context, scope core.SyncScope) (Status, error) {
	if o == nil || o.Commands == nil {
		return Status{}, fmt.Errorf("sync: orchestrator requires a command registry")
	}
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return Status{}, err
	}
	commands := o.Commands.ListForSync()
	fingerprint, err := core.FingerprintCommands(commands)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		Scope:              scope,
		CurrentFingerprint: fingerprint,
		CommandCount:       len(commands),
	}
	last, found, err := o.latest(ctx, scope)
	if err != nil {
		return Status{}, err
	}
	if found {
		status.Last = &last
		status.InSync = last.Fingerprint == fingerprint
	}
	return status, nil
}

func (o *Orchestrator) latest(ctx context.Context, scope core.SyncScope) (core.CommandSyncRecord, bool, error) {
	if o.Ledger == nil {
		return core.CommandSyncRecord{}, false, nil
	}
	record, err := o.Ledger.Latest(ctx, scope)
	if err != nil {
		if errors.Is(err, core.ErrSyncRecordNotFound) {
			return core.CommandSyncRecord{}, false, nil
		}
		return core.CommandSyncRecord{}, false, err
	}
	return record, true, nil
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func mergeAnyMap(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range extra {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out[key] = value
	}
	return out
}
