package rest

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

// ApplicationCommand is a command as the counterpart stores it.
type ApplicationCommand struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	GuildID       string `json:"guild_id,omitempty"`
	Version       string `json:"version,omitempty"`
	core.SyncCommand
}

// CommandsPath is the global command collection, or the guild scoped one
// when guildID is set.
func CommandsPath(applicationID string, guildID string) string {
	applicationID = strings.TrimSpace(applicationID)
	guildID = strings.TrimSpace(guildID)
	if guildID != "" {
		return "applications/" + applicationID + "/guilds/" + guildID + "/commands"
	}
	return "applications/" + applicationID + "/commands"
}

// BulkOverwriteCommands replaces the full command set in one PUT.
func (c *Client) BulkOverwriteCommands(ctx context.Context, applicationID string, guildID string, commands []core.SyncCommand) ([]ApplicationCommand, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, restError("rest: application id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	if commands == nil {
		commands = []core.SyncCommand{}
	}
	var registered []ApplicationCommand
	if err := c.Put(ctx, CommandsPath(applicationID, guildID), commands, &registered); err != nil {
		return nil, err
	}
	return registered, nil
}

func (c *Client) ListCommands(ctx context.Context, applicationID string, guildID string) ([]ApplicationCommand, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, restError("rest: application id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	var commands []ApplicationCommand
	if err := c.Get(ctx, CommandsPath(applicationID, guildID), &commands); err != nil {
		return nil, err
	}
	return commands, nil
}

func (c *Client) CreateCommand(ctx context.Context, applicationID string, guildID string, command core.SyncCommand) (ApplicationCommand, error) {
	if strings.TrimSpace(applicationID) == "" {
		return ApplicationCommand{}, restError("rest: application id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	var created ApplicationCommand
	if err := c.Post(ctx, CommandsPath(applicationID, guildID), command, &created); err != nil {
		return ApplicationCommand{}, err
	}
	return created, nil
}

func (c *Client) DeleteCommand(ctx context.Context, applicationID string, guildID string, commandID string) error {
	commandID = strings.TrimSpace(commandID)
	if strings.TrimSpace(applicationID) == "" || commandID == "" {
		return restError("rest: application id and command id are required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	return c.Delete(ctx, CommandsPath(applicationID, guildID)+"/"+commandID)
}
