// Package server implements the core HTTP and WebSocket functionality for the
// Ripple relay.
//
// The implementation is organized into specialized files for configuration,
// the connection registry, chat history, the hub, clients, the command
// processor, and HTTP handlers to keep the codebase maintainable and testable
// as the project grows.
package server
