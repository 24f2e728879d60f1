// Package config provides configuration types for control sessions.
package config

import (
	"context"

	"github.com/wagiedev/claude-control-go/internal/framing"
)

// Transport is a duplex channel carrying newline-delimited JSON.
// Implement this to provide custom transports for testing or alternative
// channels such as sockets.
//
// The default implementation is the CLI subprocess transport.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start establishes the channel. It returns a connection error when the
	// channel cannot be opened.
	Start(ctx context.Context) error

	// ReadMessages returns the frame sequence. It may be called once; the
	// channel closes when the peer closes its output or reading fails.
	// Decode failures appear inline and do not end the sequence.
	ReadMessages(ctx context.Context) <-chan framing.Frame

	// SendMessage writes one JSON line (newline is appended if missing).
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool

	// EndInput half-closes the outbound side.
	EndInput() error
}
