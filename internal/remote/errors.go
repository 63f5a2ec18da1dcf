package remote

import "errors"

// Standard errors for remote cache operations.
//
// Data commands never return these; they surface through Ping and the
// factory only.
var (
	// ErrClosed is returned by Ping after the client has been closed.
	ErrClosed = errors.New("remote: client is closed")

	// ErrNotConfigured is returned by Ping when no backend is configured.
	ErrNotConfigured = errors.New("remote: no backend configured")

	// ErrBreakerOpen is returned by Ping while the circuit breaker is
	// refusing calls to a failing backend.
	ErrBreakerOpen = errors.New("remote: circuit breaker open")
)
