package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	interactions "github.com/goliatone/go-interactions"
	"github.com/goliatone/go-interactions/core"
)

const pingAgainID = "ping:again"

// registerBuiltins installs the commands the binary ships with.
func registerBuiltins(app *interactions.App) error {
	err := app.Command("ping", core.CommandSpec{
		Description: "Check that the bot is answering",
		DescriptionLocalizations: map[string]string{
			"es-ES": "Comprueba que el bot responde",
		},
	}, func(_ context.Context, interaction core.Interaction) (core.Response, error) {
		return core.BuildReply(core.Reply{
			ResponseData: core.ResponseData{
				Content: "pong",
				Components: []core.Component{
					core.ActionRow(core.Button(pingAgainID, "Again", core.ButtonStyleSecondary)),
				},
			},
		}), nil
	})
	if err != nil {
		return err
	}

	err = app.Component(core.CustomIDEquals(pingAgainID), func(_ context.Context, interaction core.Interaction) (core.Response, error) {
		return core.EphemeralText("pong again"), nil
	})
	if err != nil {
		return err
	}

	err = app.Command("help", core.CommandSpec{
		Description: "List the available commands",
		Options: []core.CommandOption{{
			Type:        core.OptionTypeString,
			Name:        "command",
			Description: "Show a single command",
			Responder:   commandNameResponder(app),
		}},
	}, func(_ context.Context, interaction core.Interaction) (core.Response, error) {
		locale := interaction.PreferredLocale()
		data, err := interaction.CommandData()
		if err != nil {
			return core.Response{}, err
		}
		if option, ok := data.Option("command"); ok {
			name, _ := option.StringValue()
			entry, found := app.Commands().Lookup(name)
			if !found {
				return core.EphemeralText(fmt.Sprintf("No command named %q.", name)), nil
			}
			description := core.Localize(entry.Spec.DescriptionLocalizations, locale, entry.Spec.Description)
			return core.EphemeralText(entry.Key.Name + ": " + description), nil
		}
		return core.EphemeralText(app.Commands().HelpText(locale)), nil
	})
	if err != nil {
		return err
	}

	return app.Command("uptime", core.CommandSpec{
		Description: "Report how long the bot has been running",
	}, app.Deferred(true, uptimeReply(time.Now())))
}

func commandNameResponder(app *interactions.App) core.AutocompleteResponder {
	return func(_ context.Context, _ core.Interaction, option core.CommandInteractionOption) ([]core.Choice, error) {
		typed, _ := option.StringValue()
		typed = strings.ToLower(strings.TrimSpace(typed))
		names := []string{}
		for _, entry := range app.Commands().List() {
			if entry.Key.Type != core.CommandTypeChatInput {
				continue
			}
			if typed == "" || strings.HasPrefix(entry.Key.Name, typed) {
				names = append(names, entry.Key.Name)
			}
		}
		sort.Strings(names)
		if len(names) > core.MaxAutocompleteChoices {
			names = names[:core.MaxAutocompleteChoices]
		}
		choices := make([]core.Choice, 0, len(names))
		for _, name := range names {
			choices = append(choices, core.Choice{Name: name, Value: name})
		}
		return choices, nil
	}
}

func uptimeReply(startedAt time.Time) func(context.Context, core.Interaction) (core.Reply, error) {
	return func(context.Context, core.Interaction) (core.Reply, error) {
		uptime := time.Since(startedAt).Round(time.Second)
		return core.Reply{ResponseData: core.ResponseData{Content: "Up for " + uptime.String()}}, nil
	}
}
