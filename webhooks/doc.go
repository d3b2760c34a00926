// Package webhooks verifies the Ed25519 signature carried by every inbound
// interaction request.
package webhooks
