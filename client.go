package claudectl

import (
	"context"
	"iter"

	"github.com/wagiedev/claude-control-go/internal/client"
)

// Client is an interactive, stateful control session over one transport.
//
// Unlike Query, a Client keeps the transport open across turns and can send
// control requests such as Interrupt at any time. Clients are single-use:
// after Close, create a new one with NewClient.
//
//	client := claudectl.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx, claudectl.WithPermissionMode("acceptEdits")); err != nil {
//	    return err
//	}
//
//	if err := client.Query(ctx, "What is 2+2?"); err != nil {
//	    return err
//	}
//
//	for msg, err := range client.ReceiveResponse(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(msg.Type, msg.Text())
//	}
type Client interface {
	// Start opens the transport and performs the initialize handshake.
	// ctx bounds the handshake only; the session lasts until Close.
	// Returns CLINotFoundError if the CLI cannot be located and
	// ConnectionError if the channel cannot be established.
	Start(ctx context.Context, opts ...Option) error

	// StartWithPrompt is Start followed by Query(ctx, prompt).
	StartWithPrompt(ctx context.Context, prompt string, opts ...Option) error

	// StartWithStream starts the session and writes messages from the
	// iterator in the background, half-closing the input when it ends.
	StartWithStream(ctx context.Context, messages iter.Seq[*StreamingMessage], opts ...Option) error

	// Query sends a user prompt and returns once it is written.
	// Optional sessionID defaults to "default".
	Query(ctx context.Context, prompt string, sessionID ...string) error

	// SendMessage writes an arbitrary JSON value as one frame.
	SendMessage(ctx context.Context, msg any) error

	// ReceiveMessages yields every message until the session ends.
	// Recoverable errors (see IsRecoverable) are yielded and iteration
	// continues; any other error is yielded last.
	ReceiveMessages(ctx context.Context) iter.Seq2[*Message, error]

	// ReceiveResponse yields messages up to and including the next result.
	ReceiveResponse(ctx context.Context) iter.Seq2[*Message, error]

	// Interrupt asks the peer to stop the current turn.
	Interrupt(ctx context.Context) error

	// SetPermissionMode changes the permission mode.
	SetPermissionMode(ctx context.Context, mode string) error

	// SetModel changes the model. Pass nil to restore the default.
	SetModel(ctx context.Context, model *string) error

	// SendControlRequest sends an arbitrary control request and returns the
	// response payload. An error reply is returned as *ProtocolError.
	SendControlRequest(ctx context.Context, subtype string, payload map[string]any) (map[string]any, error)

	// ServerInfo returns the initialize response, or nil before Start.
	ServerInfo() map[string]any

	// Close ends the session and releases the transport.
	// Safe to call multiple times.
	Close() error
}

// clientWrapper adapts the internal client to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// NewClient creates an unconnected client. Call Start to begin a session.
func NewClient() Client {
	return &clientWrapper{impl: client.New()}
}

func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

func (c *clientWrapper) StartWithPrompt(ctx context.Context, prompt string, opts ...Option) error {
	return c.impl.StartWithPrompt(ctx, prompt, applyOptions(opts))
}

func (c *clientWrapper) StartWithStream(
	ctx context.Context,
	messages iter.Seq[*StreamingMessage],
	opts ...Option,
) error {
	return c.impl.StartWithStream(ctx, messages, applyOptions(opts))
}

func (c *clientWrapper) Query(ctx context.Context, prompt string, sessionID ...string) error {
	return c.impl.Query(ctx, prompt, sessionID...)
}

func (c *clientWrapper) SendMessage(ctx context.Context, msg any) error {
	return c.impl.SendMessage(ctx, msg)
}

func (c *clientWrapper) ReceiveMessages(ctx context.Context) iter.Seq2[*Message, error] {
	return c.impl.ReceiveMessages(ctx)
}

func (c *clientWrapper) ReceiveResponse(ctx context.Context) iter.Seq2[*Message, error] {
	return c.impl.ReceiveResponse(ctx)
}

func (c *clientWrapper) Interrupt(ctx context.Context) error {
	return c.impl.Interrupt(ctx)
}

func (c *clientWrapper) SetPermissionMode(ctx context.Context, mode string) error {
	return c.impl.SetPermissionMode(ctx, mode)
}

func (c *clientWrapper) SetModel(ctx context.Context, model *string) error {
	return c.impl.SetModel(ctx, model)
}

func (c *clientWrapper) SendControlRequest(
	ctx context.Context,
	subtype string,
	payload map[string]any,
) (map[string]any, error) {
	return c.impl.SendControlRequest(ctx, subtype, payload)
}

func (c *clientWrapper) ServerInfo() map[string]any {
	return c.impl.ServerInfo()
}

func (c *clientWrapper) Close() error {
	return c.impl.Close()
}
