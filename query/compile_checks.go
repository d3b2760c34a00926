package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/rest"
	commandsync "github.com/goliatone/go-interactions/sync"
)

var (
	_ gocmd.Querier[ListCommandsMessage, []core.SyncCommand]              = (*ListCommandsQuery)(nil)
	_ gocmd.Querier[HelpTextMessage, string]                              = (*HelpTextQuery)(nil)
	_ gocmd.Querier[ListRemoteCommandsMessage, []rest.ApplicationCommand] = (*ListRemoteCommandsQuery)(nil)
	_ gocmd.Querier[SyncStatusMessage, commandsync.Status]                = (*SyncStatusQuery)(nil)
	_ gocmd.Querier[SyncHistoryMessage, []core.CommandSyncRecord]         = (*SyncHistoryQuery)(nil)

	_ CommandCatalog      = (*core.CommandRegistry)(nil)
	_ RemoteCommandLister = (*rest.Client)(nil)
	_ SyncStatusReader    = (*commandsync.Orchestrator)(nil)
)
