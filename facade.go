package interactions

import (
	"context"
	"fmt"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-interactions/adapters/gocommand"
	interactionscommand "github.com/goliatone/go-interactions/command"
	"github.com/goliatone/go-interactions/core"
	interactionsquery "github.com/goliatone/go-interactions/query"
	"github.com/goliatone/go-interactions/rest"
	commandsync "github.com/goliatone/go-interactions/sync"
)

type Commands struct {
	SyncCommands        *interactionscommand.SyncCommandsCommand
	DeleteRemoteCommand *interactionscommand.DeleteRemoteCommandCommand
	SendMessage         *interactionscommand.SendMessageCommand
	DeleteMessage       *interactionscommand.DeleteMessageCommand
	SendFollowup        *interactionscommand.SendFollowupCommand
}

type Queries struct {
	ListCommands       *interactionsquery.ListCommandsQuery
	HelpText           *interactionsquery.HelpTextQuery
	ListRemoteCommands *interactionsquery.ListRemoteCommandsQuery
	SyncStatus         *interactionsquery.SyncStatusQuery
	SyncHistory        *interactionsquery.SyncHistoryQuery
}

// Facade exposes the app's outbound operations as go-command commands and
// queries.
type Facade struct {
	app      *App
	commands Commands
	queries  Queries
}

func NewFacade(app *App) (*Facade, error) {
	if app == nil {
		return nil, fmt.Errorf("interactions: app is required")
	}
	facade := &Facade{app: app}
	facade.commands = Commands{
		SyncCommands:        interactionscommand.NewSyncCommandsCommand(app.syncer),
		DeleteRemoteCommand: interactionscommand.NewDeleteRemoteCommandCommand(app.rest, app.syncer),
		SendMessage:         interactionscommand.NewSendMessageCommand(app.rest),
		DeleteMessage:       interactionscommand.NewDeleteMessageCommand(app.rest),
		SendFollowup:        interactionscommand.NewSendFollowupCommand(app.enqueuer),
	}
	facade.queries = Queries{
		ListCommands:       interactionsquery.NewListCommandsQuery(app.commands),
		HelpText:           interactionsquery.NewHelpTextQuery(app.commands),
		ListRemoteCommands: interactionsquery.NewListRemoteCommandsQuery(app.rest),
		SyncStatus:         interactionsquery.NewSyncStatusQuery(app.syncer),
		SyncHistory:        interactionsquery.NewSyncHistoryQuery(app.ledger),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) App() *App {
	if f == nil {
		return nil
	}
	return f.app
}

// Register subscribes every command and query on bus.
func (f *Facade) Register(bus *gocommand.Bus) error {
	if f == nil {
		return fmt.Errorf("interactions: facade is nil")
	}
	if bus == nil {
		return fmt.Errorf("interactions: command bus is required")
	}
	cmds, qrys := f.commands, f.queries
	registrations := []func() error{
		func() error {
			return gocommand.Register[interactionscommand.SyncCommandsMessage](bus, cmds.SyncCommands)
		},
		func() error {
			return gocommand.Register[interactionscommand.DeleteRemoteCommandMessage](bus, cmds.DeleteRemoteCommand)
		},
		func() error {
			return gocommand.Register[interactionscommand.SendMessageMessage](bus, cmds.SendMessage)
		},
		func() error {
			return gocommand.Register[interactionscommand.DeleteMessageMessage](bus, cmds.DeleteMessage)
		},
		func() error {
			return gocommand.Register[interactionscommand.SendFollowupMessage](bus, cmds.SendFollowup)
		},
		func() error {
			return gocommand.RegisterQuery[interactionsquery.ListCommandsMessage, []core.SyncCommand](bus, qrys.ListCommands)
		},
		func() error {
			return gocommand.RegisterQuery[interactionsquery.HelpTextMessage, string](bus, qrys.HelpText)
		},
		func() error {
			return gocommand.RegisterQuery[interactionsquery.ListRemoteCommandsMessage, []rest.ApplicationCommand](bus, qrys.ListRemoteCommands)
		},
		func() error {
			return gocommand.RegisterQuery[interactionsquery.SyncStatusMessage, commandsync.Status](bus, qrys.SyncStatus)
		},
		func() error {
			return gocommand.RegisterQuery[interactionsquery.SyncHistoryMessage, []core.CommandSyncRecord](bus, qrys.SyncHistory)
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			bus.Close()
			return err
		}
	}
	return nil
}

// SyncCommands runs the sync command and returns the stored result.
func (f *Facade) SyncCommands(ctx context.Context, msg interactionscommand.SyncCommandsMessage) (commandsync.Result, error) {
	if f == nil {
		return commandsync.Result{}, fmt.Errorf("interactions: facade is nil")
	}
	if msg.Scope.ApplicationID == "" {
		msg.Scope.ApplicationID = f.app.applicationID
	}
	if err := msg.Validate(); err != nil {
		return commandsync.Result{}, err
	}
	collector := gocmd.NewResult[commandsync.Result]()
	if err := f.commands.SyncCommands.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return commandsync.Result{}, err
	}
	result, _ := collector.Load()
	return result, nil
}
