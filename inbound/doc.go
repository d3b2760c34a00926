// Package inbound turns verified webhook requests into exactly one
// interaction response.
//
// Authentication and decode failures short-circuit with 401/400. Everything
// else is routed through the command and component registries and always
// produces a well formed reply, even when routing or a handler fails.
package inbound
