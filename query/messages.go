package query

import (
	"strings"

	"github.com/goliatone/go-interactions/core"
)

const (
	TypeListCommands       = "interactions.query.commands.list"
	TypeListRemoteCommands = "interactions.query.commands.remote"
	TypeHelpText           = "interactions.query.commands.help"
	TypeSyncStatus         = "interactions.query.sync.status"
	TypeSyncHistory        = "interactions.query.sync.history"
)

// ListCommandsMessage lists the local command set in sync order.
type ListCommandsMessage struct{}

func (ListCommandsMessage) Type() string { return TypeListCommands }

// ListRemoteCommandsMessage lists what the counterpart has registered.
type ListRemoteCommandsMessage struct {
	Scope core.SyncScope
}

func (ListRemoteCommandsMessage) Type() string { return TypeListRemoteCommands }

func (m ListRemoteCommandsMessage) Validate() error {
	return validateScope(m.Scope)
}

type HelpTextMessage struct {
	Locale string
}

func (HelpTextMessage) Type() string { return TypeHelpText }

type SyncStatusMessage struct {
	Scope core.SyncScope
}

func (SyncStatusMessage) Type() string { return TypeSyncStatus }

func (m SyncStatusMessage) Validate() error {
	return validateScope(m.Scope)
}

type SyncHistoryMessage struct {
	ApplicationID string
}

func (SyncHistoryMessage) Type() string { return TypeSyncHistory }

func (m SyncHistoryMessage) Validate() error {
	if strings.TrimSpace(m.ApplicationID) == "" {
		return queryValidationError("application_id", "application id is required")
	}
	return nil
}

func validateScope(scope core.SyncScope) error {
	if err := scope.Validate(); err != nil {
		return queryValidationError("application_id", err.Error())
	}
	return nil
}
