package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/followup"
	"github.com/goliatone/go-interactions/rest"
	commandsync "github.com/goliatone/go-interactions/sync"
)

type CommandSyncer interface {
	Sync(ctx context.Context, req commandsync.Request) (commandsync.Result, error)
}

type RemoteCommandDeleter interface {
	DeleteCommand(ctx context.Context, applicationID string, guildID string, commandID string) error
}

// SyncDriftRecorder is told when the remote command set changed outside a
// sync so the next sync does not skip the scope.
type SyncDriftRecorder interface {
	MarkDrifted(ctx context.Context, scope core.SyncScope, reason string, metadata map[string]any) error
}

type MessageSender interface {
	CreateMessage(ctx context.Context, channelID string, reply core.Reply) (rest.Message, error)
	DeleteMessage(ctx context.Context, channelID string, messageID string) error
}

type SyncCommandsCommand struct {
	syncer CommandSyncer
}

func NewSyncCommandsCommand(syncer CommandSyncer) *SyncCommandsCommand {
	return &SyncCommandsCommand{syncer: syncer}
}

func (c *SyncCommandsCommand) Execute(ctx context.Context, msg SyncCommandsMessage) error {
	if c == nil || c.syncer == nil {
		return commandDependencyError("command: command syncer is required")
	}
	out, err := c.syncer.Sync(ctx, commandsync.Request{
		Scope:    msg.Scope,
		DryRun:   msg.DryRun,
		Force:    msg.Force,
		Metadata: msg.Metadata,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteRemoteCommandCommand struct {
	deleter RemoteCommandDeleter
	drift   SyncDriftRecorder
}

// NewDeleteRemoteCommandCommand builds the command. drift may be nil when no
// sync ledger is kept.
func NewDeleteRemoteCommandCommand(deleter RemoteCommandDeleter, drift SyncDriftRecorder) *DeleteRemoteCommandCommand {
	return &DeleteRemoteCommandCommand{deleter: deleter, drift: drift}
}

func (c *DeleteRemoteCommandCommand) Execute(ctx context.Context, msg DeleteRemoteCommandMessage) error {
	if c == nil || c.deleter == nil {
		return commandDependencyError("command: command deleter is required")
	}
	scope := msg.Scope.Normalize()
	if err := c.deleter.DeleteCommand(ctx, scope.ApplicationID, scope.GuildID, msg.CommandID); err != nil {
		return err
	}
	if c.drift == nil {
		return nil
	}
	return c.drift.MarkDrifted(ctx, scope, "remote_delete", map[string]any{"command_id": msg.CommandID})
}

type SendMessageCommand struct {
	sender MessageSender
}

func NewSendMessageCommand(sender MessageSender) *SendMessageCommand {
	return &SendMessageCommand{sender: sender}
}

func (c *SendMessageCommand) Execute(ctx context.Context, msg SendMessageMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: message sender is required")
	}
	out, err := c.sender.CreateMessage(ctx, msg.ChannelID, msg.Reply)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteMessageCommand struct {
	sender MessageSender
}

func NewDeleteMessageCommand(sender MessageSender) *DeleteMessageCommand {
	return &DeleteMessageCommand{sender: sender}
}

func (c *DeleteMessageCommand) Execute(ctx context.Context, msg DeleteMessageMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: message sender is required")
	}
	return c.sender.DeleteMessage(ctx, msg.ChannelID, msg.MessageID)
}

type SendFollowupCommand struct {
	enqueuer core.JobEnqueuer
}

func NewSendFollowupCommand(enqueuer core.JobEnqueuer) *SendFollowupCommand {
	return &SendFollowupCommand{enqueuer: enqueuer}
}

func (c *SendFollowupCommand) Execute(ctx context.Context, msg SendFollowupMessage) error {
	if c == nil || c.enqueuer == nil {
		return commandDependencyError("command: follow-up queue is required")
	}
	job, err := followup.Job{
		ApplicationID: msg.ApplicationID,
		Token:         msg.Token,
		InteractionID: msg.InteractionID,
		Reply:         msg.Reply,
	}.ToMessage()
	if err != nil {
		return commandValidationError("reply", err.Error())
	}
	if err := c.enqueuer.Enqueue(ctx, job); err != nil {
		return err
	}
	storeResult(ctx, job)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
