// Package server implements the core TCP and WebSocket chat service for termchat.
//
// The implementation is organized into specialized files for configuration,
// the accept loop, sessions, command dispatch, the WebSocket gateway, and the
// operational HTTP surface to keep the codebase maintainable and testable as
// the project grows.
package server
