package mcp

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConnection is returned when a tool provider process cannot be
	// spawned or the initialize handshake fails.
	ErrConnection = errors.New("tool provider connection failed")
	// ErrProtocol is returned when a tool provider answers with a malformed
	// response.
	ErrProtocol = errors.New("tool provider protocol violation")
	// ErrToolNotFound is returned when no connected provider exposes the tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrSessionNotConnected is returned when the owning session of a tool is
	// gone or disconnected.
	ErrSessionNotConnected = errors.New("tool provider session is not connected")
	// ErrToolInvocation marks a failed tools/call round-trip.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrStartup marks a failure of the router startup.
	ErrStartup = errors.New("tool provider startup failed")
)

// StartupError names the server whose connect, list or registration failed.
type StartupError struct {
	Server string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("failed to start tool provider %q: %s", e.Server, e.Err.Error())
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Is reports ErrStartup.
func (e *StartupError) Is(target error) bool {
	return target == ErrStartup
}

// ToolInvocationError is returned by CallTool when the call failed in
// transport, was rejected by the provider, or the provider flagged the
// result as an error.
type ToolInvocationError struct {
	Server string
	Tool   string
	// Message is the text reported by the provider, or the transport error.
	Message string
	// Err is the underlying transport or JSON-RPC error, nil when the
	// provider returned an isError result.
	Err error
}

func (e *ToolInvocationError) Error() string {
	return e.Message
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// Is reports ErrToolInvocation.
func (e *ToolInvocationError) Is(target error) bool {
	return target == ErrToolInvocation
}

func newToolInvocationError(server, tool string, err error) *ToolInvocationError {
	return &ToolInvocationError{
		Server:  server,
		Tool:    tool,
		Message: err.Error(),
		Err:     err,
	}
}
