package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCommandNotFound      = errors.New("core: command not found")
	ErrComponentNotFound    = errors.New("core: component not found")
	ErrInvalidCommandType   = errors.New("core: invalid command type")
	ErrInvalidInteraction   = errors.New("core: invalid interaction payload")
	ErrUnexpectedDataKind   = errors.New("core: interaction data does not match interaction type")
	ErrInvalidApplicationID = errors.New("core: invalid application id")
)

// InteractionType discriminates the inbound payload union.
type InteractionType int

const (
	InteractionTypePing                           InteractionType = 1
	InteractionTypeApplicationCommand             InteractionType = 2
	InteractionTypeMessageComponent               InteractionType = 3
	InteractionTypeApplicationCommandAutocomplete InteractionType = 4
	InteractionTypeModalSubmit                    InteractionType = 5
)

func (t InteractionType) String() string {
	switch t {
	case InteractionTypePing:
		return "ping"
	case InteractionTypeApplicationCommand:
		return "application_command"
	case InteractionTypeMessageComponent:
		return "message_component"
	case InteractionTypeApplicationCommandAutocomplete:
		return "application_command_autocomplete"
	case InteractionTypeModalSubmit:
		return "modal_submit"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

type ResponseType int

const (
	ResponseTypePong                                 ResponseType = 1
	ResponseTypeChannelMessageWithSource             ResponseType = 4
	ResponseTypeDeferredChannelMessageWithSource     ResponseType = 5
	ResponseTypeDeferredUpdateMessage                ResponseType = 6
	ResponseTypeUpdateMessage                        ResponseType = 7
	ResponseTypeApplicationCommandAutocompleteResult ResponseType = 8
	ResponseTypeModal                                ResponseType = 9
)

type CommandType int

const (
	CommandTypeChatInput CommandType = 1
	CommandTypeUser      CommandType = 2
	CommandTypeMessage   CommandType = 3
)

func (t CommandType) Valid() bool {
	return t == CommandTypeChatInput || t == CommandTypeUser || t == CommandTypeMessage
}

func (t CommandType) String() string {
	switch t {
	case CommandTypeChatInput:
		return "chat_input"
	case CommandTypeUser:
		return "user"
	case CommandTypeMessage:
		return "message"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

type OptionType int

const (
	OptionTypeSubCommand      OptionType = 1
	OptionTypeSubCommandGroup OptionType = 2
	OptionTypeString          OptionType = 3
	OptionTypeInteger         OptionType = 4
	OptionTypeBoolean         OptionType = 5
	OptionTypeUser            OptionType = 6
	OptionTypeChannel         OptionType = 7
	OptionTypeRole            OptionType = 8
	OptionTypeMentionable     OptionType = 9
	OptionTypeNumber          OptionType = 10
	OptionTypeAttachment      OptionType = 11
)

type ComponentType int

const (
	ComponentTypeActionRow    ComponentType = 1
	ComponentTypeButton       ComponentType = 2
	ComponentTypeStringSelect ComponentType = 3
	ComponentTypeTextInput    ComponentType = 4
)

type ButtonStyle int

const (
	ButtonStylePrimary   ButtonStyle = 1
	ButtonStyleSecondary ButtonStyle = 2
	ButtonStyleSuccess   ButtonStyle = 3
	ButtonStyleDanger    ButtonStyle = 4
	ButtonStyleLink      ButtonStyle = 5
)

// MessageFlag is the message flags bitfield.
type MessageFlag int

const (
	MessageFlagSuppressEmbeds MessageFlag = 1 << 2
	MessageFlagEphemeral      MessageFlag = 1 << 6
)

func (f MessageFlag) Has(flag MessageFlag) bool {
	return f&flag == flag
}

// MaxAutocompleteChoices is the most choices the counterpart accepts in one
// autocomplete result.
const MaxAutocompleteChoices = 25

type CommandKey struct {
	Type CommandType
	Name string
}

func (k CommandKey) String() string {
	return k.Type.String() + ":" + k.Name
}

func normalizeCommandName(name string) string {
	return strings.TrimSpace(name)
}
