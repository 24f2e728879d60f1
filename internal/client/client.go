package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/message"
	"github.com/wagiedev/claude-control-go/internal/protocol"
	"github.com/wagiedev/claude-control-go/internal/subprocess"
)

const (
	// defaultMessageBufferSize is the buffer size for the messages channel.
	defaultMessageBufferSize = 10

	// subtypeSetModel is the outbound control request changing the model.
	subtypeSetModel = "set_model"
)

// received is one item of the client's message sequence: a message or a
// recoverable per-frame error.
type received struct {
	msg *message.Message
	err error
}

// Client implements the interactive client interface.
type Client struct {
	log        *slog.Logger
	transport  config.Transport
	controller *protocol.Controller
	session    *protocol.Session
	options    *config.Options

	// Message channel for data flow
	messages chan received

	// Fatal error storage
	errMu    sync.RWMutex
	fatalErr error

	// Errgroup for goroutine management
	eg *errgroup.Group

	// Lifecycle management
	mu        sync.Mutex
	done      chan struct{}
	connected bool
	closed    bool
	closeOnce sync.Once
}

// New creates a new interactive client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(chan received, defaultMessageBufferSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) setFatalError(err error) {
	if err == nil {
		return
	}

	c.errMu.Lock()
	defer c.errMu.Unlock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}
}

func (c *Client) getFatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// isConnected returns true if the client is connected.
// This method is safe to call from any goroutine.
func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// initializeCore opens the transport, starts the controller and performs the
// initialize handshake. Caller must hold c.mu.
//
// The transport and the controller outlive ctx: only the handshake is bound
// by it. The session ends with Close.
func (c *Client) initializeCore(ctx context.Context, options *config.Options) error {
	if options == nil {
		options = &config.Options{}
	}

	if err := options.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.log = log.With("component", "client")
	c.options = options

	transport := options.Transport
	if transport != nil {
		c.log.Debug("Using injected custom transport")
	} else {
		transport = subprocess.NewCLITransportWithMode(log, "", options, true)
	}

	sessionCtx := context.WithoutCancel(ctx)

	if err := transport.Start(sessionCtx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = transport
	c.controller = protocol.NewController(log, transport, true, options.EffectiveControlTimeout())
	c.session = protocol.NewSession(log, c.controller, options)
	c.session.RegisterHandlers()

	if err := c.controller.Start(sessionCtx); err != nil {
		_ = transport.Close()

		return fmt.Errorf("start protocol controller: %w", err)
	}

	if err := c.session.Initialize(ctx); err != nil {
		_ = transport.Close()
		c.controller.Stop()

		return fmt.Errorf("initialize session: %w", err)
	}

	return nil
}

// Start establishes a connection and performs the initialize handshake.
//
// For interactive sessions, no initial prompt is sent - use Query() to send prompts.
// ctx bounds the handshake only.
//
// Returns CLINotFoundError if the CLI binary cannot be located,
// or ConnectionError if the process fails to start.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	return c.start(ctx, options, nil)
}

// StartWithPrompt establishes a connection and immediately sends an initial prompt.
//
// This is a convenience method equivalent to calling Start() followed by Query().
// The prompt is sent to the "default" session.
func (c *Client) StartWithPrompt(
	ctx context.Context,
	prompt string,
	options *config.Options,
) error {
	if err := c.Start(ctx, options); err != nil {
		return err
	}

	return c.Query(ctx, prompt)
}

// StartWithStream establishes a connection and streams initial messages.
//
// The iterator runs in a separate goroutine. EndInput is called automatically
// when the iterator completes; Close aborts streaming.
func (c *Client) StartWithStream(
	ctx context.Context,
	messages iter.Seq[*message.StreamingMessage],
	options *config.Options,
) error {
	return c.start(ctx, options, messages)
}

func (c *Client) start(
	ctx context.Context,
	options *config.Options,
	input iter.Seq[*message.StreamingMessage],
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.connected {
		return errors.ErrClientAlreadyConnected
	}

	if err := c.initializeCore(ctx, options); err != nil {
		return err
	}

	// The group context is detached from ctx, which may only cover the
	// handshake; c.done signals shutdown.
	var egCtx context.Context

	c.eg, egCtx = errgroup.WithContext(context.Background())

	if input != nil {
		c.eg.Go(func() error {
			return c.streamMessages(egCtx, input)
		})
	}

	c.eg.Go(func() error {
		return c.readLoop(egCtx)
	})

	c.connected = true
	c.log.Info("Client started", "streaming_input", input != nil)

	return nil
}

// streamMessages writes streaming messages to the transport and half-closes
// it afterwards.
func (c *Client) streamMessages(
	ctx context.Context,
	messages iter.Seq[*message.StreamingMessage],
) (err error) {
	defer func() {
		if endErr := c.transport.EndInput(); endErr != nil && err == nil {
			err = fmt.Errorf("end input: %w", endErr)
		}
	}()

	for msg := range messages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			c.log.Debug("Client closed during message streaming")

			return nil
		default:
		}

		if err := c.send(ctx, msg); err != nil {
			c.log.Error("Failed to send streaming message", "error", err)

			return err
		}
	}

	c.log.Debug("Finished streaming all messages")

	return nil
}

// readLoop converts the controller's frames into messages. Per-frame errors
// are forwarded inline; a transport failure ends the loop.
func (c *Client) readLoop(ctx context.Context) error {
	defer c.log.Debug("Read loop stopped")
	defer close(c.messages)

	for {
		var frame received

		select {
		case f, open := <-c.controller.Messages():
			if !open {
				return nil
			}

			if f.Err != nil {
				frame.err = f.Err
			} else {
				frame.msg, frame.err = message.Parse(f.Data)
			}
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		if frame.err != nil && !errors.IsRecoverable(frame.err) {
			c.log.Error("Transport error", "error", frame.err)
			c.setFatalError(frame.err)

			return frame.err
		}

		if frame.err != nil {
			c.log.Warn("Skipping undecodable frame", "error", frame.err)
		}

		select {
		case c.messages <- frame:
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Query sends a user prompt.
//
// It returns once the prompt is written; use ReceiveResponse to read the
// reply. Optional sessionID defaults to "default".
func (c *Client) Query(ctx context.Context, prompt string, sessionID ...string) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	var sid string
	if len(sessionID) > 0 {
		sid = sessionID[0]
	}

	c.log.Debug("Sending query", "prompt_len", len(prompt), "session_id", sid)

	return c.send(ctx, message.NewUserMessage(prompt, sid))
}

// SendMessage writes an arbitrary JSON-encodable value as one frame.
func (c *Client) SendMessage(ctx context.Context, msg any) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	return c.send(ctx, msg)
}

func (c *Client) send(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// receive waits for the next item. It returns io.EOF when the sequence ends
// normally and the fatal error when it ended on a transport failure.
func (c *Client) receive(ctx context.Context) (*message.Message, error) {
	select {
	case item, ok := <-c.messages:
		if !ok {
			if err := c.getFatalError(); err != nil {
				return nil, err
			}

			return nil, io.EOF
		}

		return item.msg, item.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReceiveMessages returns an iterator over all messages until the session
// ends. Recoverable per-frame errors are yielded and iteration continues;
// any other error is yielded last.
func (c *Client) ReceiveMessages(ctx context.Context) iter.Seq2[*message.Message, error] {
	return c.iterate(ctx, false)
}

// ReceiveResponse returns an iterator that yields messages up to and
// including the next result message.
func (c *Client) ReceiveResponse(ctx context.Context) iter.Seq2[*message.Message, error] {
	return c.iterate(ctx, true)
}

func (c *Client) iterate(ctx context.Context, untilResult bool) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		if !c.isConnected() {
			yield(nil, errors.ErrClientNotConnected)

			return
		}

		for {
			msg, err := c.receive(ctx)
			if stderrors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				if !yield(nil, err) || !errors.IsRecoverable(err) {
					return
				}

				continue
			}

			if !yield(msg, nil) {
				return
			}

			if untilResult && msg.IsResult() {
				return
			}
		}
	}
}

// Interrupt asks the CLI to stop the current turn.
func (c *Client) Interrupt(ctx context.Context) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	return c.controller.Interrupt(ctx)
}

// SetPermissionMode changes the permission mode for the rest of the session.
// Legacy aliases are normalized before sending.
func (c *Client) SetPermissionMode(ctx context.Context, mode string) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	return c.controller.SetPermissionMode(ctx, config.NormalizePermissionMode(mode))
}

// SetModel changes the model. A nil model restores the default.
func (c *Client) SetModel(ctx context.Context, model *string) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	if _, err := c.controller.SendRequest(ctx, subtypeSetModel, map[string]any{"model": model}, 0); err != nil {
		return fmt.Errorf("set model: %w", err)
	}

	return nil
}

// SendControlRequest sends an arbitrary control request and returns the
// response payload.
func (c *Client) SendControlRequest(
	ctx context.Context,
	subtype string,
	payload map[string]any,
) (map[string]any, error) {
	if !c.isConnected() {
		return nil, errors.ErrClientNotConnected
	}

	resp, err := c.controller.SendRequest(ctx, subtype, payload, 0)
	if err != nil {
		return nil, err
	}

	return resp.Payload(), nil
}

// ServerInfo returns the initialize response, or nil when not connected.
func (c *Client) ServerInfo() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}

	return c.session.InitializationResult()
}

// Close terminates the session and cleans up resources.
//
// After Close(), the client cannot be reused - create a new client with New().
// This method is safe to call multiple times.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if !wasConnected {
			return
		}

		c.log.Info("Closing client")

		close(c.done)

		// Closing the transport first unblocks writes stuck on a peer that
		// stopped reading.
		closeErr = c.transport.Close()
		c.controller.Stop()

		if err := c.eg.Wait(); err != nil && closeErr == nil {
			closeErr = err
		}

		c.log.Info("Client closed")
	})

	return closeErr
}
