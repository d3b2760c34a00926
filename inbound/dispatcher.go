package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// Dispatcher verifies, decodes and routes one interaction per request and
// always answers with exactly one terminal result.
type Dispatcher struct {
	Verifier   Verifier
	Commands   *core.CommandRegistry
	Components *core.ComponentRegistry

	// Fallback answers modal submissions and unknown interaction types. When
	// nil the catalog fallback message is sent.
	Fallback core.CommandHandler

	Catalog  core.Catalog
	Observer *core.Observer
}

func NewDispatcher(
	verifier Verifier,
	commands *core.CommandRegistry,
	components *core.ComponentRegistry,
) *Dispatcher {
	if commands == nil {
		commands = core.NewCommandRegistry()
	}
	if components == nil {
		components = core.NewComponentRegistry()
	}
	return &Dispatcher{
		Verifier:   verifier,
		Commands:   commands,
		Components: components,
		Catalog:    core.DefaultCatalog(),
	}
}

// Dispatch returns the HTTP result for req. Authentication and decode
// failures yield a 401/400 result and no handler runs. Routing and handler
// failures still yield a well formed 200 reply; the tagged error is returned
// next to it for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (result core.InboundResult, err error) {
	if d == nil {
		return core.InboundResult{StatusCode: http.StatusInternalServerError},
			inboundInternal(nil, "inbound: dispatcher is nil", nil)
	}
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		fields["status_code"] = result.StatusCode
		d.Observer.ObserveOperation(ctx, startedAt, core.OperationDispatch, err, fields)
	}()

	if d.Verifier != nil {
		if verifyErr := d.Verifier.Verify(ctx, req); verifyErr != nil {
			fields["rejected"] = true
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusUnauthorized,
				Metadata:   map[string]any{"rejected": true},
			}, inboundUnauthorized(verifyErr, nil)
		}
	}

	interaction, decodeErr := core.DecodeInteraction(req.Body)
	if decodeErr != nil {
		return core.InboundResult{
			Accepted:   false,
			StatusCode: http.StatusBadRequest,
			Metadata:   map[string]any{"rejected": true},
		}, inboundBadInput(decodeErr, "inbound: decode interaction", nil)
	}

	fields["interaction_type"] = interaction.Type.String()
	fields["interaction_id"] = interaction.ID

	response, routeErr := d.route(ctx, interaction, fields)
	body, contentType, encodeErr := response.Encode()
	if encodeErr != nil {
		routeErr = core.NewHandlerError(encodeErr, cloneMetadata(fields))
		response = core.EphemeralText(d.message(interaction, core.MessageHandlerFailed))
		body, contentType, encodeErr = response.Encode()
		if encodeErr != nil {
			return core.InboundResult{StatusCode: http.StatusInternalServerError},
				inboundInternal(encodeErr, "inbound: encode response", nil)
		}
	}

	metadata := cloneMetadata(fields)
	metadata["response_type"] = int(response.Envelope.Type)
	if routeErr != nil {
		metadata["error"] = routeErr.Error()
	}
	return core.InboundResult{
		Accepted:    true,
		StatusCode:  http.StatusOK,
		ContentType: contentType,
		Body:        body,
		Metadata:    metadata,
	}, routeErr
}

func (d *Dispatcher) route(ctx context.Context, interaction core.Interaction, fields map[string]any) (core.Response, error) {
	switch interaction.Type {
	case core.InteractionTypePing:
		return core.Pong(), nil
	case core.InteractionTypeApplicationCommand:
		return d.routeCommand(ctx, interaction, fields)
	case core.InteractionTypeApplicationCommandAutocomplete:
		return d.routeAutocomplete(ctx, interaction, fields)
	case core.InteractionTypeMessageComponent:
		return d.routeComponent(ctx, interaction, fields)
	default:
		return d.routeFallback(ctx, interaction)
	}
}

func (d *Dispatcher) routeCommand(ctx context.Context, interaction core.Interaction, fields map[string]any) (core.Response, error) {
	data, err := interaction.CommandData()
	if err != nil {
		return d.routingFailure(interaction), core.MapError(err)
	}
	fields["command"] = data.Name
	fields["command_type"] = data.Kind().String()

	entry, err := d.Commands.Resolve(data)
	if err != nil {
		return d.routingFailure(interaction), err
	}
	response, err := invoke(ctx, entry.Handler, interaction)
	if err != nil {
		detail := err.Error()
		message := entry.Spec.ErrorMessageFor(
			d.locale(interaction),
			d.message(interaction, core.MessageHandlerFailed),
			detail,
		)
		return core.EphemeralText(message), core.NewHandlerError(err, map[string]any{
			"command": data.Name,
		})
	}
	return response, nil
}

func (d *Dispatcher) routeAutocomplete(ctx context.Context, interaction core.Interaction, fields map[string]any) (core.Response, error) {
	data, err := interaction.CommandData()
	if err != nil {
		return core.AutocompleteResult(nil), core.MapError(err)
	}
	fields["command"] = data.Name
	fields["command_type"] = data.Kind().String()

	bindings, err := d.Commands.AutocompleteResponders(data)
	if err != nil {
		return core.AutocompleteResult(nil), err
	}
	choices := []core.Choice{}
	for _, binding := range bindings {
		found, err := invokeResponder(ctx, binding, interaction)
		if err != nil {
			return core.AutocompleteResult(nil), core.NewHandlerError(err, map[string]any{
				"command": data.Name,
				"option":  binding.Declared.Name,
			})
		}
		choices = append(choices, found...)
		if len(choices) >= core.MaxAutocompleteChoices {
			break
		}
	}
	return core.AutocompleteResult(choices), nil
}

func (d *Dispatcher) routeComponent(ctx context.Context, interaction core.Interaction, fields map[string]any) (core.Response, error) {
	data, err := interaction.ComponentData()
	if err != nil {
		return d.routingFailure(interaction), core.MapError(err)
	}
	fields["custom_id"] = data.CustomID

	entry, ok := d.Components.Match(interaction, data)
	if !ok {
		return d.routingFailure(interaction), core.NewRoutingError(core.ErrComponentNotFound, core.ErrorComponentNotFound, map[string]any{
			"custom_id":      data.CustomID,
			"component_type": int(data.ComponentType),
		})
	}
	response, err := invoke(ctx, core.CommandHandler(entry.Handler), interaction)
	if err != nil {
		return core.EphemeralText(d.message(interaction, core.MessageHandlerFailed)), core.NewHandlerError(err, map[string]any{
			"custom_id": data.CustomID,
		})
	}
	return response, nil
}

func (d *Dispatcher) routeFallback(ctx context.Context, interaction core.Interaction) (core.Response, error) {
	if d.Fallback == nil {
		return core.ReplyText(d.message(interaction, core.MessageFallback)), nil
	}
	response, err := invoke(ctx, d.Fallback, interaction)
	if err != nil {
		return core.EphemeralText(d.message(interaction, core.MessageHandlerFailed)), core.NewHandlerError(err, map[string]any{
			"interaction_type": interaction.Type.String(),
		})
	}
	return response, nil
}

func (d *Dispatcher) routingFailure(interaction core.Interaction) core.Response {
	return core.EphemeralText(d.message(interaction, core.MessageRoutingFailed))
}

func (d *Dispatcher) locale(interaction core.Interaction) string {
	fallback := strings.TrimSpace(d.Catalog.DefaultLocale)
	if fallback == "" {
		fallback = core.DefaultLocale
	}
	locale := interaction.PreferredLocale()
	if locale == "" {
		return fallback
	}
	return locale
}

func (d *Dispatcher) message(interaction core.Interaction, key string) string {
	catalog := d.Catalog
	if len(catalog.Messages) == 0 {
		catalog = core.DefaultCatalog()
	}
	return catalog.Message(d.locale(interaction), key, "Something went wrong.")
}

// invoke runs a handler, turning panics and empty responses into errors.
func invoke(ctx context.Context, handler core.CommandHandler, interaction core.Interaction) (response core.Response, err error) {
	if handler == nil {
		return core.Response{}, fmt.Errorf("inbound: handler is nil")
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			response = core.Response{}
			err = fmt.Errorf("inbound: handler panic: %v", recovered)
		}
	}()
	response, err = handler(ctx, interaction)
	if err != nil {
		return core.Response{}, err
	}
	if response.Envelope.Type == 0 {
		return core.Response{}, fmt.Errorf("inbound: handler returned an empty response")
	}
	return response, nil
}

func invokeResponder(ctx context.Context, binding core.AutocompleteBinding, interaction core.Interaction) (choices []core.Choice, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			choices = nil
			err = fmt.Errorf("inbound: autocomplete panic: %v", recovered)
		}
	}()
	return binding.Responder(ctx, interaction, binding.Input)
}

func cloneMetadata(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
