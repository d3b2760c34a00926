package core

import "context"

type CommandHandler func(ctx context.Context, interaction Interaction) (Response, error)

// AutocompleteResponder produces suggestions for the option the user is
// typing in.
type AutocompleteResponder func(
	ctx context.Context,
	interaction Interaction,
	option CommandInteractionOption,
) ([]Choice, error)

// StaticChoices answers every autocomplete request with the same choices.
func StaticChoices(choices ...Choice) AutocompleteResponder {
	fixed := append([]Choice(nil), choices...)
	return func(context.Context, Interaction, CommandInteractionOption) ([]Choice, error) {
		return append([]Choice(nil), fixed...), nil
	}
}

type CommandOption struct {
	Type                     OptionType        `json:"type"`
	Name                     string            `json:"name"`
	NameLocalizations        map[string]string `json:"name_localizations,omitempty"`
	Description              string            `json:"description"`
	DescriptionLocalizations map[string]string `json:"description_localizations,omitempty"`
	Required                 bool              `json:"required,omitempty"`
	Choices                  []Choice          `json:"choices,omitempty"`
	Options                  []CommandOption   `json:"options,omitempty"`
	MinValue                 *float64          `json:"min_value,omitempty"`
	MaxValue                 *float64          `json:"max_value,omitempty"`
	MinLength                *int              `json:"min_length,omitempty"`
	MaxLength                *int              `json:"max_length,omitempty"`
	Autocomplete             bool              `json:"autocomplete,omitempty"`

	Responder AutocompleteResponder `json:"-"`
}

// CommandSpec is the metadata attached to a registered command. ErrorMessage
// and ErrorLocalizations hold the template used when the handler fails; {0}
// is replaced with the error text.
type CommandSpec struct {
	Name                     string
	Type                     CommandType
	Description              string
	NameLocalizations        map[string]string
	DescriptionLocalizations map[string]string
	Options                  []CommandOption
	DefaultMemberPermissions string
	DMPermission             *bool
	NSFW                     bool

	ErrorMessage       string
	ErrorLocalizations map[string]string
}

// Kind defaults to chat input.
func (s CommandSpec) Kind() CommandType {
	if s.Type == 0 {
		return CommandTypeChatInput
	}
	return s.Type
}

type CommandEntry struct {
	Key     CommandKey
	Spec    CommandSpec
	Handler CommandHandler
}

// SyncCommand is one element of the bulk overwrite payload.
type SyncCommand struct {
	Name                     string            `json:"name"`
	Type                     CommandType       `json:"type"`
	Description              string            `json:"description"`
	NameLocalizations        map[string]string `json:"name_localizations,omitempty"`
	DescriptionLocalizations map[string]string `json:"description_localizations,omitempty"`
	Options                  []CommandOption   `json:"options,omitempty"`
	DefaultMemberPermissions *string           `json:"default_member_permissions,omitempty"`
	DMPermission             *bool             `json:"dm_permission,omitempty"`
	NSFW                     bool              `json:"nsfw,omitempty"`
}

// AutocompleteBinding pairs a declared option with the incoming option that
// matched it and the responder to run.
type AutocompleteBinding struct {
	Declared  CommandOption
	Input     CommandInteractionOption
	Responder AutocompleteResponder
}

func syncOptions(options []CommandOption) []CommandOption {
	if len(options) == 0 {
		return nil
	}
	out := make([]CommandOption, len(options))
	for index, option := range options {
		copied := option
		copied.Autocomplete = option.Autocomplete || option.Responder != nil
		copied.Responder = nil
		copied.Choices = append([]Choice(nil), option.Choices...)
		copied.NameLocalizations = cloneStrings(option.NameLocalizations)
		copied.DescriptionLocalizations = cloneStrings(option.DescriptionLocalizations)
		copied.Options = syncOptions(option.Options)
		out[index] = copied
	}
	return out
}

func cloneStrings(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
