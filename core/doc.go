// Package core contains the interaction domain: payload decoding, the command
// and component registries, the response builder and the shared contracts
// used by the inbound and outbound adapters. Core must not depend on
// transport or storage packages.
package core
