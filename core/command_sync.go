package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrSyncRecordNotFound = errors.New("core: command sync record not found")

// SyncScope is where a command set is published: globally, or to one guild
// when GuildID is set.
type SyncScope struct {
	ApplicationID string
	GuildID       string
}

func (s SyncScope) Normalize() SyncScope {
	return SyncScope{
		ApplicationID: strings.TrimSpace(s.ApplicationID),
		GuildID:       strings.TrimSpace(s.GuildID),
	}
}

func (s SyncScope) Validate() error {
	if strings.TrimSpace(s.ApplicationID) == "" {
		return fmt.Errorf("%w: application id is required", ErrInvalidApplicationID)
	}
	if !isSnowflake(strings.TrimSpace(s.ApplicationID)) {
		return fmt.Errorf("%w: %q", ErrInvalidApplicationID, s.ApplicationID)
	}
	return nil
}

// CommandSyncRecord is the ledger entry written after a successful bulk
// overwrite.
type CommandSyncRecord struct {
	ID            string
	ApplicationID string
	GuildID       string
	Fingerprint   string
	CommandCount  int
	CommandNames  []string
	SyncedAt      time.Time
	Metadata      map[string]any
}

func (r CommandSyncRecord) Scope() SyncScope {
	return SyncScope{ApplicationID: r.ApplicationID, GuildID: r.GuildID}
}

// CommandSyncLedger remembers the last published command set per scope.
type CommandSyncLedger interface {
	Latest(ctx context.Context, scope SyncScope) (CommandSyncRecord, error)
	Record(ctx context.Context, record CommandSyncRecord) (CommandSyncRecord, error)
	List(ctx context.Context, applicationID string) ([]CommandSyncRecord, error)
}

// FingerprintCommands hashes the wire form of commands. Order matters since
// the counterpart keeps the list order.
func FingerprintCommands(commands []SyncCommand) (string, error) {
	if commands == nil {
		commands = []SyncCommand{}
	}
	encoded, err := json.Marshal(commands)
	if err != nil {
		return "", fmt.Errorf("core: encode commands for fingerprint: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

func CommandNames(commands []SyncCommand) []string {
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.Name)
	}
	return names
}
