package command

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/followup"
	"github.com/goliatone/go-interactions/rest"
	commandsync "github.com/goliatone/go-interactions/sync"
)

const testApplicationID = "123456789012345678"

type stubSyncer struct {
	last commandsync.Request
	err  error
}

func (s *stubSyncer) Sync(_ context.Context, req commandsync.Request) (commandsync.Result, error) {
	s.last = req
	if s.err != nil {
		return commandsync.Result{}, s.err
	}
	return commandsync.Result{Scope: req.Scope, Fingerprint: "fp", DryRun: req.DryRun, Published: !req.DryRun}, nil
}

type stubSender struct {
	created  []core.Reply
	channels []string
	deleted  []string
}

func (s *stubSender) CreateMessage(_ context.Context, channelID string, reply core.Reply) (rest.Message, error) {
	s.channels = append(s.channels, channelID)
	s.created = append(s.created, reply)
	return rest.Message{ID: "m-1", ChannelID: channelID, Content: reply.Content}, nil
}

func (s *stubSender) DeleteMessage(_ context.Context, channelID string, messageID string) error {
	s.deleted = append(s.deleted, channelID+"/"+messageID)
	return nil
}

type stubDeleter struct {
	calls []string
	err   error
}

func (s *stubDeleter) DeleteCommand(_ context.Context, applicationID string, guildID string, commandID string) error {
	s.calls = append(s.calls, applicationID+"|"+guildID+"|"+commandID)
	return s.err
}

type stubDrift struct {
	scopes   []core.SyncScope
	metadata []map[string]any
}

func (s *stubDrift) MarkDrifted(_ context.Context, scope core.SyncScope, _ string, metadata map[string]any) error {
	s.scopes = append(s.scopes, scope)
	s.metadata = append(s.metadata, metadata)
	return nil
}

func TestSyncCommandsCommand_DelegatesAndStoresResult(t *testing.T) {
	syncer := &stubSyncer{}
	cmd := NewSyncCommandsCommand(syncer)
	collector := gocmd.NewResult[commandsync.Result]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := SyncCommandsMessage{
		Scope:    core.SyncScope{ApplicationID: testApplicationID, GuildID: "42"},
		DryRun:   true,
		Metadata: map[string]any{"source": "cli"},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !syncer.last.DryRun || syncer.last.Scope.GuildID != "42" || syncer.last.Metadata["source"] != "cli" {
		t.Fatalf("unexpected sync request %#v", syncer.last)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if !result.DryRun || result.Published {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestSyncCommandsCommand_PropagatesErrors(t *testing.T) {
	boom := errors.New("publish failed")
	cmd := NewSyncCommandsCommand(&stubSyncer{err: boom})
	err := cmd.Execute(context.Background(), SyncCommandsMessage{Scope: core.SyncScope{ApplicationID: testApplicationID}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sync error, got %v", err)
	}
}

func TestSyncCommandsMessage_RejectsInvalidScope(t *testing.T) {
	if err := (SyncCommandsMessage{Scope: core.SyncScope{ApplicationID: "not-a-snowflake"}}).Validate(); err == nil {
		t.Fatalf("expected invalid application id error")
	}
}

func TestMessageCommands_DelegateToSender(t *testing.T) {
	sender := &stubSender{}
	collector := gocmd.NewResult[rest.Message]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := SendMessageMessage{
		ChannelID: "c-1",
		Reply:     core.Reply{ResponseData: core.ResponseData{Content: "hello"}},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := NewSendMessageCommand(sender).Execute(ctx, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	stored, ok := collector.Load()
	if !ok || stored.ID != "m-1" || stored.ChannelID != "c-1" {
		t.Fatalf("unexpected stored message %#v", stored)
	}

	if err := NewDeleteMessageCommand(sender).Execute(context.Background(), DeleteMessageMessage{ChannelID: "c-1", MessageID: "m-1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(sender.deleted) != 1 || sender.deleted[0] != "c-1/m-1" {
		t.Fatalf("unexpected deletes %v", sender.deleted)
	}
}

func TestSendMessageMessage_RejectsEmptyReplyAndBadFiles(t *testing.T) {
	if err := (SendMessageMessage{ChannelID: "c"}).Validate(); err == nil {
		t.Fatalf("expected empty reply error")
	}
	msg := SendMessageMessage{
		ChannelID: "c",
		Reply:     core.Reply{Files: []core.Attachment{{Filename: "a.txt"}}},
	}
	if err := msg.Validate(); err == nil {
		t.Fatalf("expected missing attachment id error")
	}
}

func TestDeleteRemoteCommandCommand(t *testing.T) {
	deleter := &stubDeleter{}
	msg := DeleteRemoteCommandMessage{Scope: core.SyncScope{ApplicationID: " " + testApplicationID}, CommandID: "99"}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	drift := &stubDrift{}
	if err := NewDeleteRemoteCommandCommand(deleter, drift).Execute(context.Background(), msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(deleter.calls) != 1 || deleter.calls[0] != testApplicationID+"||99" {
		t.Fatalf("unexpected delete calls %v", deleter.calls)
	}
	if len(drift.scopes) != 1 || drift.scopes[0].ApplicationID != testApplicationID || drift.metadata[0]["command_id"] != "99" {
		t.Fatalf("expected the scope to be marked drifted, got %+v", drift.scopes)
	}

	failing := &stubDeleter{err: errors.New("upstream down")}
	drift = &stubDrift{}
	if err := NewDeleteRemoteCommandCommand(failing, drift).Execute(context.Background(), msg); err == nil {
		t.Fatalf("expected delete error")
	}
	if len(drift.scopes) != 0 {
		t.Fatalf("failed deletes must not touch the ledger")
	}
	if err := NewDeleteRemoteCommandCommand(&stubDeleter{}, nil).Execute(context.Background(), msg); err != nil {
		t.Fatalf("expected delete without ledger to succeed: %v", err)
	}
	if err := (DeleteRemoteCommandMessage{Scope: core.SyncScope{ApplicationID: testApplicationID}}).Validate(); err == nil {
		t.Fatalf("expected missing command id error")
	}
}

func TestSendFollowupCommand_QueuesJob(t *testing.T) {
	queue := followup.NewMemoryQueue(2)
	collector := gocmd.NewResult[*core.JobExecutionMessage]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := SendFollowupMessage{
		ApplicationID: testApplicationID,
		Token:         "tok",
		InteractionID: "i-1",
		Reply:         core.Reply{ResponseData: core.ResponseData{Content: "later"}},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := NewSendFollowupCommand(queue).Execute(ctx, msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected queued follow-up, len=%d", queue.Len())
	}
	stored, ok := collector.Load()
	if !ok || stored.JobID != followup.JobIDSend {
		t.Fatalf("expected stored job message, got %#v", stored)
	}
	if err := (SendFollowupMessage{ApplicationID: testApplicationID, Reply: msg.Reply}).Validate(); err == nil {
		t.Fatalf("expected missing token error")
	}
}
