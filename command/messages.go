package command

import (
	"strings"

	"github.com/goliatone/go-interactions/core"
)

const (
	TypeSyncCommands        = "interactions.command.commands.sync"
	TypeDeleteRemoteCommand = "interactions.command.commands.delete"
	TypeSendMessage         = "interactions.command.message.send"
	TypeDeleteMessage       = "interactions.command.message.delete"
	TypeSendFollowup        = "interactions.command.followup.send"
)

// SyncCommandsMessage publishes the registered command set to Scope.
type SyncCommandsMessage struct {
	Scope    core.SyncScope
	DryRun   bool
	Force    bool
	Metadata map[string]any
}

func (SyncCommandsMessage) Type() string { return TypeSyncCommands }

func (m SyncCommandsMessage) Validate() error {
	if err := m.Scope.Validate(); err != nil {
		return commandValidationError("application_id", err.Error())
	}
	return nil
}

type DeleteRemoteCommandMessage struct {
	Scope     core.SyncScope
	CommandID string
}

func (DeleteRemoteCommandMessage) Type() string { return TypeDeleteRemoteCommand }

func (m DeleteRemoteCommandMessage) Validate() error {
	if err := m.Scope.Validate(); err != nil {
		return commandValidationError("application_id", err.Error())
	}
	if strings.TrimSpace(m.CommandID) == "" {
		return commandValidationError("command_id", "command id is required")
	}
	return nil
}

type SendMessageMessage struct {
	ChannelID string
	Reply     core.Reply
}

func (SendMessageMessage) Type() string { return TypeSendMessage }

func (m SendMessageMessage) Validate() error {
	if strings.TrimSpace(m.ChannelID) == "" {
		return commandValidationError("channel_id", "channel id is required")
	}
	return validateReply(m.Reply)
}

type DeleteMessageMessage struct {
	ChannelID string
	MessageID string
}

func (DeleteMessageMessage) Type() string { return TypeDeleteMessage }

func (m DeleteMessageMessage) Validate() error {
	if strings.TrimSpace(m.ChannelID) == "" {
		return commandValidationError("channel_id", "channel id is required")
	}
	if strings.TrimSpace(m.MessageID) == "" {
		return commandValidationError("message_id", "message id is required")
	}
	return nil
}

// SendFollowupMessage queues a follow-up for a deferred interaction.
type SendFollowupMessage struct {
	ApplicationID string
	Token         string
	InteractionID string
	Reply         core.Reply
}

func (SendFollowupMessage) Type() string { return TypeSendFollowup }

func (m SendFollowupMessage) Validate() error {
	if strings.TrimSpace(m.ApplicationID) == "" {
		return commandValidationError("application_id", "application id is required")
	}
	if strings.TrimSpace(m.Token) == "" {
		return commandValidationError("token", "interaction token is required")
	}
	return validateReply(m.Reply)
}

func validateReply(reply core.Reply) error {
	data := reply.MessageData()
	if strings.TrimSpace(data.Content) == "" && len(data.Embeds) == 0 && len(reply.Files) == 0 && len(data.Components) == 0 {
		return commandValidationError("reply", "reply needs content, embeds, components or files")
	}
	for _, file := range reply.Files {
		if strings.TrimSpace(file.ID) == "" || strings.TrimSpace(file.Filename) == "" {
			return commandValidationError("files", "attachments need an id and a filename")
		}
	}
	return nil
}
