package errors

import (
	"errors"
	"fmt"
)

// SDKError is implemented by every structured error in this module.
type SDKError interface {
	error
	IsSDKError() bool
}

// Compile-time verification that all error types implement SDKError.
var (
	_ SDKError = (*CLINotFoundError)(nil)
	_ SDKError = (*ConnectionError)(nil)
	_ SDKError = (*TransportError)(nil)
	_ SDKError = (*ProcessError)(nil)
	_ SDKError = (*JSONDecodeError)(nil)
	_ SDKError = (*ProtocolError)(nil)
	_ SDKError = (*MessageParseError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.New("client not connected")

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.New("client already connected")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrRequestTimeout indicates an outbound control request was not answered in time.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrControllerStopped indicates the protocol controller has stopped.
	ErrControllerStopped = errors.New("protocol controller stopped")

	// ErrStdinClosed indicates the outbound side of the transport is closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrNotStreaming indicates a control operation on a session that was not
	// opened in streaming mode.
	ErrNotStreaming = errors.New("control protocol requires streaming mode")

	// ErrAlreadyReading indicates the transport's frame sequence was requested twice.
	ErrAlreadyReading = errors.New("transport output already being read")

	// ErrFrameTooLarge indicates a frame grew past the configured buffer limit.
	ErrFrameTooLarge = errors.New("frame exceeds maximum buffer size")
)

// CLINotFoundError indicates the CLI executable was not found.
type CLINotFoundError struct {
	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("claude CLI not found in: %v", e.SearchedPaths)
}

// IsSDKError implements SDKError.
func (e *CLINotFoundError) IsSDKError() bool { return true }

// ConnectionError indicates the duplex channel could not be established.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to CLI: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsSDKError implements SDKError.
func (e *ConnectionError) IsSDKError() bool { return true }

// TransportError indicates an I/O failure after the channel was established.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsSDKError implements SDKError.
func (e *TransportError) IsSDKError() bool { return true }

// ProcessError indicates the CLI process exited with a failure.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CLI process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("CLI process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsSDKError implements SDKError.
func (e *ProcessError) IsSDKError() bool { return true }

// JSONDecodeError indicates one frame could not be decoded.
// RawData holds the bytes that were discarded, truncated for oversized frames.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from CLI: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsSDKError implements SDKError.
func (e *JSONDecodeError) IsSDKError() bool { return true }

// ProtocolError indicates a control exchange failed at the protocol level:
// an error reply from the peer, an unknown subtype, a missing callback or a
// malformed control frame.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "control protocol error: " + e.Message
}

// IsSDKError implements SDKError.
func (e *ProtocolError) IsSDKError() bool { return true }

// NewProtocolError formats a ProtocolError.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

// MessageParseError indicates an ordinary message lacked the fields needed
// to classify it.
type MessageParseError struct {
	Message string
	Err     error
	Data    map[string]any
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsSDKError implements SDKError.
func (e *MessageParseError) IsSDKError() bool { return true }

// IsDecodeError reports whether err is a per-frame decode failure, which
// leaves the frame sequence usable.
func IsDecodeError(err error) bool {
	_, ok := errors.AsType[*JSONDecodeError](err)

	return ok
}

// IsRecoverable reports whether err affects a single frame or message only.
// Iteration over the message sequence continues after such errors.
func IsRecoverable(err error) bool {
	if IsDecodeError(err) {
		return true
	}

	_, ok := errors.AsType[*MessageParseError](err)

	return ok
}
