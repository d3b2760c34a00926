package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// DisplayName prefers the global display name over the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.GlobalName); name != "" {
		return name
	}
	return u.Username
}

type Member struct {
	User        *User    `json:"user,omitempty"`
	Nick        string   `json:"nick,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions string   `json:"permissions,omitempty"`
}

// Interaction is a decoded inbound event. Data stays raw until a handler asks
// for the typed view matching Type.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
	Token         string          `json:"token"`
	Version       int             `json:"version"`
	Message       json.RawMessage `json:"message,omitempty"`
	AppPermission string          `json:"app_permissions,omitempty"`
	Locale        string          `json:"locale,omitempty"`
	GuildLocale   string          `json:"guild_locale,omitempty"`
}

// DecodeInteraction parses a verified request body. Only the envelope is
// decoded here; type-specific data is decoded on demand.
func DecodeInteraction(body []byte) (Interaction, error) {
	if len(body) == 0 {
		return Interaction{}, fmt.Errorf("%w: empty body", ErrInvalidInteraction)
	}
	var interaction Interaction
	if err := json.Unmarshal(body, &interaction); err != nil {
		return Interaction{}, fmt.Errorf("%w: %v", ErrInvalidInteraction, err)
	}
	return interaction, nil
}

// Invoker returns the user behind the interaction, whether it came from a
// guild (member) or a direct message (user).
func (i Interaction) Invoker() *User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// PreferredLocale returns the invoking user's locale, falling back to the
// guild locale.
func (i Interaction) PreferredLocale() string {
	if locale := strings.TrimSpace(i.Locale); locale != "" {
		return locale
	}
	return strings.TrimSpace(i.GuildLocale)
}

type ApplicationCommandData struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"name"`
	Type     CommandType                `json:"type"`
	GuildID  string                     `json:"guild_id,omitempty"`
	TargetID string                     `json:"target_id,omitempty"`
	Resolved json.RawMessage            `json:"resolved,omitempty"`
	Options  []CommandInteractionOption `json:"options,omitempty"`
}

// Kind defaults to chat input when the payload omits the command type.
func (d ApplicationCommandData) Kind() CommandType {
	if d.Type == 0 {
		return CommandTypeChatInput
	}
	return d.Type
}

func (d ApplicationCommandData) Option(name string) (CommandInteractionOption, bool) {
	return findOption(d.Options, name)
}

// Focused walks nested options and returns the one the user is typing in.
func (d ApplicationCommandData) Focused() (CommandInteractionOption, bool) {
	return findFocused(d.Options)
}

type CommandInteractionOption struct {
	Name    string                     `json:"name"`
	Type    OptionType                 `json:"type"`
	Value   json.RawMessage            `json:"value,omitempty"`
	Focused bool                       `json:"focused,omitempty"`
	Options []CommandInteractionOption `json:"options,omitempty"`
}

func (o CommandInteractionOption) Option(name string) (CommandInteractionOption, bool) {
	return findOption(o.Options, name)
}

func (o CommandInteractionOption) StringValue() (string, bool) {
	if len(o.Value) == 0 {
		return "", false
	}
	var value string
	if err := json.Unmarshal(o.Value, &value); err == nil {
		return value, true
	}
	// autocomplete sends partial numeric input as raw json numbers
	raw := strings.TrimSpace(string(o.Value))
	if raw == "null" {
		return "", false
	}
	return raw, true
}

func (o CommandInteractionOption) IntValue() (int64, bool) {
	if len(o.Value) == 0 {
		return 0, false
	}
	var value json.Number
	if err := json.Unmarshal(o.Value, &value); err != nil {
		var text string
		if err := json.Unmarshal(o.Value, &text); err != nil {
			return 0, false
		}
		value = json.Number(text)
	}
	parsed, err := strconv.ParseInt(value.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func (o CommandInteractionOption) FloatValue() (float64, bool) {
	if len(o.Value) == 0 {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return 0, false
	}
	return value, true
}

func (o CommandInteractionOption) BoolValue() (bool, bool) {
	if len(o.Value) == 0 {
		return false, false
	}
	var value bool
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return false, false
	}
	return value, true
}

type MessageComponentData struct {
	CustomID      string        `json:"custom_id"`
	ComponentType ComponentType `json:"component_type"`
	Values        []string      `json:"values,omitempty"`
}

type ModalSubmitData struct {
	CustomID   string      `json:"custom_id"`
	Components []Component `json:"components,omitempty"`
}

// Field returns the value of the text input with the given custom id.
func (d ModalSubmitData) Field(customID string) (string, bool) {
	for _, row := range d.Components {
		for _, component := range row.Components {
			if component.CustomID == customID {
				return component.Value, true
			}
		}
	}
	return "", false
}

func (i Interaction) CommandData() (ApplicationCommandData, error) {
	if i.Type != InteractionTypeApplicationCommand && i.Type != InteractionTypeApplicationCommandAutocomplete {
		return ApplicationCommandData{}, fmt.Errorf("%w: %s", ErrUnexpectedDataKind, i.Type)
	}
	var data ApplicationCommandData
	if err := decodeData(i.Data, &data); err != nil {
		return ApplicationCommandData{}, err
	}
	return data, nil
}

func (i Interaction) ComponentData() (MessageComponentData, error) {
	if i.Type != InteractionTypeMessageComponent {
		return MessageComponentData{}, fmt.Errorf("%w: %s", ErrUnexpectedDataKind, i.Type)
	}
	var data MessageComponentData
	if err := decodeData(i.Data, &data); err != nil {
		return MessageComponentData{}, err
	}
	return data, nil
}

func (i Interaction) ModalSubmitData() (ModalSubmitData, error) {
	if i.Type != InteractionTypeModalSubmit {
		return ModalSubmitData{}, fmt.Errorf("%w: %s", ErrUnexpectedDataKind, i.Type)
	}
	var data ModalSubmitData
	if err := decodeData(i.Data, &data); err != nil {
		return ModalSubmitData{}, err
	}
	return data, nil
}

func decodeData(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidInteraction)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInteraction, err)
	}
	return nil
}

func findOption(options []CommandInteractionOption, name string) (CommandInteractionOption, bool) {
	name = strings.TrimSpace(name)
	for _, option := range options {
		if option.Name == name {
			return option, true
		}
	}
	return CommandInteractionOption{}, false
}

func findFocused(options []CommandInteractionOption) (CommandInteractionOption, bool) {
	for _, option := range options {
		if option.Focused {
			return option, true
		}
		if nested, ok := findFocused(option.Options); ok {
			return nested, true
		}
	}
	return CommandInteractionOption{}, false
}
