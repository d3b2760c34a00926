package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/rest"
	commandsync "github.com/goliatone/go-interactions/sync"
)

// CommandCatalog is the local registry. *core.CommandRegistry satisfies it.
type CommandCatalog interface {
	ListForSync() []core.SyncCommand
	HelpText(locale string) string
}

type RemoteCommandLister interface {
	ListCommands(ctx context.Context, applicationID string, guildID string) ([]rest.ApplicationCommand, error)
}

type SyncStatusReader interface {
	Status(ctx context.Context, scope core.SyncScope) (commandsync.Status, error)
}

type SyncHistoryReader interface {
	List(ctx context.Context, applicationID string) ([]core.CommandSyncRecord, error)
}

type ListCommandsQuery struct {
	catalog CommandCatalog
}

func NewListCommandsQuery(catalog CommandCatalog) *ListCommandsQuery {
	return &ListCommandsQuery{catalog: catalog}
}

func (q *ListCommandsQuery) Query(context.Context, ListCommandsMessage) ([]core.SyncCommand, error) {
	if q == nil || q.catalog == nil {
		return nil, queryDependencyError("query: command catalog is required")
	}
	return q.catalog.ListForSync(), nil
}

type HelpTextQuery struct {
	catalog CommandCatalog
}

func NewHelpTextQuery(catalog CommandCatalog) *HelpTextQuery {
	return &HelpTextQuery{catalog: catalog}
}

func (q *HelpTextQuery) Query(_ context.Context, msg HelpTextMessage) (string, error) {
	if q == nil || q.catalog == nil {
		return "", queryDependencyError("query: command catalog is required")
	}
	return q.catalog.HelpText(strings.TrimSpace(msg.Locale)), nil
}

type ListRemoteCommandsQuery struct {
	lister RemoteCommandLister
}

func NewListRemoteCommandsQuery(lister RemoteCommandLister) *ListRemoteCommandsQuery {
	return &ListRemoteCommandsQuery{lister: lister}
}

func (q *ListRemoteCommandsQuery) Query(ctx context.Context, msg ListRemoteCommandsMessage) ([]rest.ApplicationCommand, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: remote command lister is required")
	}
	scope := msg.Scope.Normalize()
	return q.lister.ListCommands(ctx, scope.ApplicationID, scope.GuildID)
}

type SyncStatusQuery struct {
	reader SyncStatusReader
}

func NewSyncStatusQuery(reader SyncStatusReader) *SyncStatusQuery {
	return &SyncStatusQuery{reader: reader}
}

func (q *SyncStatusQuery) Query(ctx context.Context, msg SyncStatusMessage) (commandsync.Status, error) {
	if q == nil || q.reader == nil {
		return commandsync.Status{}, queryDependencyError("query: sync status reader is required")
	}
	return q.reader.Status(ctx, msg.Scope)
}

type SyncHistoryQuery struct {
	reader SyncHistoryReader
}

func NewSyncHistoryQuery(reader SyncHistoryReader) *SyncHistoryQuery {
	return &SyncHistoryQuery{reader: reader}
}

func (q *SyncHistoryQuery) Query(ctx context.Context, msg SyncHistoryMessage) ([]core.CommandSyncRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: sync history reader is required")
	}
	return q.reader.List(ctx, strings.TrimSpace(msg.ApplicationID))
}
