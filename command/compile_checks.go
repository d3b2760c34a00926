package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SyncCommandsMessage]        = (*SyncCommandsCommand)(nil)
	_ gocmd.Commander[DeleteRemoteCommandMessage] = (*DeleteRemoteCommandCommand)(nil)
	_ gocmd.Commander[SendMessageMessage]         = (*SendMessageCommand)(nil)
	_ gocmd.Commander[DeleteMessageMessage]       = (*DeleteMessageCommand)(nil)
	_ gocmd.Commander[SendFollowupMessage]        = (*SendFollowupCommand)(nil)
)
