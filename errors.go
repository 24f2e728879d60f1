package claudectl

import "github.com/wagiedev/claude-control-go/internal/errors"

// Re-export error types from internal package

// SDKError is implemented by every error type below.
type SDKError = errors.SDKError

// CLINotFoundError indicates the CLI executable could not be located.
type CLINotFoundError = errors.CLINotFoundError

// ConnectionError indicates the duplex channel could not be established.
type ConnectionError = errors.ConnectionError

// TransportError indicates an I/O failure on an established channel.
type TransportError = errors.TransportError

// ProcessError indicates the CLI process exited with a failure.
type ProcessError = errors.ProcessError

// JSONDecodeError indicates one frame could not be decoded.
type JSONDecodeError = errors.JSONDecodeError

// ProtocolError indicates a control exchange failed at the protocol level.
type ProtocolError = errors.ProtocolError

// MessageParseError indicates an ordinary message could not be classified.
type MessageParseError = errors.MessageParseError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.ErrClientNotConnected

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.ErrClientAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrRequestTimeout indicates a control request got no response in time.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrControllerStopped indicates the controller stopped before a
	// response arrived.
	ErrControllerStopped = errors.ErrControllerStopped

	// ErrStdinClosed indicates the outbound side was already half-closed.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrNotStreaming indicates a control exchange in non-streaming mode.
	ErrNotStreaming = errors.ErrNotStreaming

	// ErrAlreadyReading indicates the frame sequence was requested twice.
	ErrAlreadyReading = errors.ErrAlreadyReading

	// ErrFrameTooLarge indicates a frame exceeded the maximum buffer size.
	ErrFrameTooLarge = errors.ErrFrameTooLarge
)

// IsRecoverable reports whether err affects a single frame only. Message
// iterators keep going after such errors.
func IsRecoverable(err error) bool {
	return errors.IsRecoverable(err)
}
