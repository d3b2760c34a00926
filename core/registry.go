package core

import (
	"fmt"
	"strings"
	"sync"
)

// CommandRegistry is an ordered map of commands. Registration is expected to
// happen at startup; reads are safe for concurrent use.
type CommandRegistry struct {
	mu      sync.RWMutex
	order   []CommandKey
	entries map[CommandKey]CommandEntry
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{entries: make(map[CommandKey]CommandEntry)}
}

// Register stores handler under its key. Chat input commands are keyed by
// name (falling back to spec.Name when empty); user and message commands are
// keyed by spec.Name. Registering an existing key replaces the entry in place.
func (r *CommandRegistry) Register(name string, spec CommandSpec, handler CommandHandler) error {
	if r == nil {
		return fmt.Errorf("core: command registry is nil")
	}
	if handler == nil {
		return fmt.Errorf("core: command handler is required")
	}
	kind := spec.Kind()
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCommandType, int(spec.Type))
	}

	keyName := normalizeCommandName(spec.Name)
	if kind == CommandTypeChatInput {
		if explicit := normalizeCommandName(name); explicit != "" {
			keyName = explicit
		}
	}
	if keyName == "" {
		return fmt.Errorf("core: command name is required")
	}
	if kind == CommandTypeChatInput && strings.TrimSpace(spec.Description) == "" {
		return fmt.Errorf("core: chat input command %q requires a description", keyName)
	}

	spec.Name = keyName
	spec.Type = kind
	key := CommandKey{Type: kind, Name: keyName}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[CommandKey]CommandEntry)
	}
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = CommandEntry{Key: key, Spec: spec, Handler: handler}
	return nil
}

// Lookup finds a command by name, preferring chat input commands over
// context menu commands sharing the name.
func (r *CommandRegistry) Lookup(name string) (CommandEntry, bool) {
	if r == nil {
		return CommandEntry{}, false
	}
	name = normalizeCommandName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[CommandKey{Type: CommandTypeChatInput, Name: name}]; ok {
		return entry, true
	}
	for _, key := range r.order {
		if key.Name == name {
			return r.entries[key], true
		}
	}
	return CommandEntry{}, false
}

func (r *CommandRegistry) LookupKind(kind CommandType, name string) (CommandEntry, bool) {
	if r == nil {
		return CommandEntry{}, false
	}
	if kind == 0 {
		kind = CommandTypeChatInput
	}
	r.mu.RLock()
	entry, ok := r.entries[CommandKey{Type: kind, Name: normalizeCommandName(name)}]
	r.mu.RUnlock()
	return entry, ok
}

// Resolve returns the command an interaction targets or a routing error.
func (r *CommandRegistry) Resolve(data ApplicationCommandData) (CommandEntry, error) {
	entry, ok := r.LookupKind(data.Kind(), data.Name)
	if !ok {
		return CommandEntry{}, NewRoutingError(ErrCommandNotFound, ErrorCommandNotFound, map[string]any{
			"command":      data.Name,
			"command_type": data.Kind().String(),
		})
	}
	return entry, nil
}

func (r *CommandRegistry) List() []CommandEntry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CommandEntry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key])
	}
	return out
}

func (r *CommandRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ListForSync returns the registration-ordered payload for a bulk overwrite.
// Context menu commands are sent without description or options.
func (r *CommandRegistry) ListForSync() []SyncCommand {
	entries := r.List()
	out := make([]SyncCommand, 0, len(entries))
	for _, entry := range entries {
		spec := entry.Spec
		command := SyncCommand{
			Name:              entry.Key.Name,
			Type:              entry.Key.Type,
			NameLocalizations: cloneStrings(spec.NameLocalizations),
			DMPermission:      spec.DMPermission,
			NSFW:              spec.NSFW,
		}
		if entry.Key.Type == CommandTypeChatInput {
			command.Description = spec.Description
			command.DescriptionLocalizations = cloneStrings(spec.DescriptionLocalizations)
			command.Options = syncOptions(spec.Options)
		}
		if perms := strings.TrimSpace(spec.DefaultMemberPermissions); perms != "" {
			command.DefaultMemberPermissions = &perms
		}
		out = append(out, command)
	}
	return out
}

// AutocompleteResponders keeps the declared options whose (name, type) pair
// appears in the incoming options, in declared order, and returns their
// responders. Subcommand options are matched recursively. An unknown command
// is a routing error.
func (r *CommandRegistry) AutocompleteResponders(data ApplicationCommandData) ([]AutocompleteBinding, error) {
	entry, err := r.Resolve(data)
	if err != nil {
		return nil, err
	}
	return matchAutocomplete(entry.Spec.Options, data.Options), nil
}

func matchAutocomplete(declared []CommandOption, incoming []CommandInteractionOption) []AutocompleteBinding {
	var out []AutocompleteBinding
	for _, option := range declared {
		input, ok := findTypedOption(incoming, option.Name, option.Type)
		if !ok {
			continue
		}
		if option.Type == OptionTypeSubCommand || option.Type == OptionTypeSubCommandGroup {
			out = append(out, matchAutocomplete(option.Options, input.Options)...)
			continue
		}
		if option.Responder == nil {
			continue
		}
		out = append(out, AutocompleteBinding{
			Declared:  option,
			Input:     input,
			Responder: option.Responder,
		})
	}
	return out
}

func findTypedOption(options []CommandInteractionOption, name string, kind OptionType) (CommandInteractionOption, bool) {
	for _, option := range options {
		if option.Name == name && option.Type == kind {
			return option, true
		}
	}
	return CommandInteractionOption{}, false
}

// HelpText lists chat input commands with their localized descriptions in a
// code block.
func (r *CommandRegistry) HelpText(locale string) string {
	var builder strings.Builder
	builder.WriteString("```\n")
	for _, entry := range r.List() {
		if entry.Key.Type != CommandTypeChatInput {
			continue
		}
		description := Localize(entry.Spec.DescriptionLocalizations, locale, entry.Spec.Description)
		builder.WriteString(entry.Key.Name)
		builder.WriteString(":\n  ")
		builder.WriteString(description)
		builder.WriteString("\n\n")
	}
	builder.WriteString("```")
	return builder.String()
}
