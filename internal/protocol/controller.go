package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/framing"
	"github.com/wagiedev/claude-control-go/internal/hook"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

// Transport is the subset of config.Transport the controller needs.
//
// This interface is satisfied by the subprocess transports but allows for
// testing with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) <-chan framing.Frame
	SendMessage(ctx context.Context, data []byte) error
}

// RequestHandler answers an inbound control request whose payload semantics
// belong to a higher layer (interrupt, set_permission_mode, mcp_message).
// The returned map becomes the "response" of the success reply; an error
// becomes an error reply.
type RequestHandler func(ctx context.Context, req InboundRequest) (map[string]any, error)

// Controller multiplexes control traffic and ordinary messages over one
// transport.
//
// The Controller handles:
//   - Sending control_request frames with unique request ids
//   - Routing control_response frames to the waiting request
//   - Request timeout enforcement
//   - Answering control_request frames from the peer, one at a time
//   - Forwarding ordinary messages, in order, through Messages
//
// Callbacks run on the read loop, so a blocked callback stalls all inbound
// traffic. Callbacks must not wait on outbound requests.
type Controller struct {
	log       *slog.Logger
	transport Transport
	streaming bool
	timeout   time.Duration

	counter atomic.Uint64

	// mu guards the correlation table and callback registries.
	mu            sync.Mutex
	pending       map[string]*pendingRequest
	canUseTool    permission.Callback
	hookCallbacks map[string]hook.Callback
	handlers      map[string]RequestHandler
	initPayload   map[string]any

	queue    *frameQueue
	messages chan framing.Frame

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	started   atomic.Bool
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// pendingRequest tracks an outgoing request awaiting its response.
type pendingRequest struct {
	subtype   string
	response  chan *ControlResponse // capacity 1, filled under Controller.mu
	createdAt time.Time
}

// NewController creates a protocol controller over transport.
//
// When streaming is false the session was opened with a one-shot prompt:
// outbound requests fail with ErrNotStreaming and inbound requests are
// answered with an error reply. A non-positive timeout selects
// config.DefaultControlTimeout.
func NewController(log *slog.Logger, transport Transport, streaming bool, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = config.DefaultControlTimeout
	}

	return &Controller{
		log:           log.With("component", "protocol"),
		transport:     transport,
		streaming:     streaming,
		timeout:       timeout,
		pending:       make(map[string]*pendingRequest, 8),
		hookCallbacks: make(map[string]hook.Callback, 8),
		handlers:      make(map[string]RequestHandler, 4),
		queue:         newFrameQueue(),
		messages:      make(chan framing.Frame),
		done:          make(chan struct{}),
		stop:          make(chan struct{}),
	}
}

// IsStreaming reports whether the controller was created in streaming mode.
func (c *Controller) IsStreaming() bool {
	return c.streaming
}

// RegisterPermissionCallback installs the tool permission callback. A nil
// callback makes can_use_tool requests fail with a protocol error.
func (c *Controller) RegisterPermissionCallback(cb permission.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.canUseTool = cb
}

// RegisterHookCallback makes cb reachable through hook_callback requests
// carrying id.
func (c *Controller) RegisterHookCallback(id string, cb hook.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("Registering hook callback", "callback_id", id)
	c.hookCallbacks[id] = cb
}

// RegisterHandler registers a handler for an acknowledgment subtype.
// Without a handler those subtypes are acknowledged with an empty payload.
// Registering the same subtype twice replaces the previous handler.
func (c *Controller) RegisterHandler(subtype string, handler RequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("Registering control request handler", "subtype", subtype)
	c.handlers[subtype] = handler
}

// SetInitPayload sets the payload returned to inbound initialize requests.
func (c *Controller) SetInitPayload(payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initPayload = maps.Clone(payload)
}

// PendingCount returns the number of outbound requests awaiting a response.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed once the controller stops reading,
// whether through Stop, a fatal transport error or the end of the stream.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start begins reading frames from the transport.
//
// It spawns the read loop and the delivery pump. Calling Start twice
// returns an error.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("protocol controller already started")
	}

	c.log.Debug("Starting protocol controller", "streaming", c.streaming)

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	frames := c.transport.ReadMessages(loopCtx)

	c.wg.Go(func() {
		c.queue.pump(c.messages, c.stop)
	})

	c.wg.Go(func() {
		c.readLoop(loopCtx, frames)
	})

	c.log.Info("Protocol controller started")

	return nil
}

// Stop shuts the controller down and waits for its goroutines.
// It's safe to call Stop multiple times, and before Start.
func (c *Controller) Stop() {
	c.log.Debug("Stopping protocol controller")

	c.closeDone()
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	if c.cancel != nil {
		c.cancel()
	}

	// Never started: nothing will close the message channel.
	if c.started.CompareAndSwap(false, true) {
		c.queue.close()
		close(c.messages)
	}

	c.wg.Wait()
	c.log.Info("Protocol controller stopped")
}

// Messages returns the ordinary-message sequence.
//
// Frames arrive in wire order with control frames removed. Decode errors are
// delivered inline as frames with Err set and the sequence continues. A
// read-side transport failure is delivered as a final error frame. The
// channel is closed when the transport's sequence ends or Stop is called.
func (c *Controller) Messages() <-chan framing.Frame {
	return c.messages
}

// SendRequest sends a control request and waits for its response.
//
// A non-positive timeout selects the controller's default. The pending
// entry is removed on every exit path. An error reply is returned as
// *errors.ProtocolError; expiry as an error wrapping ErrRequestTimeout.
func (c *Controller) SendRequest(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	timeout time.Duration,
) (*ControlResponse, error) {
	if !c.streaming {
		return nil, errors.ErrNotStreaming
	}

	if timeout <= 0 {
		timeout = c.timeout
	}

	select {
	case <-c.done:
		return nil, c.stoppedError()
	default:
	}

	requestID := c.generateRequestID()

	request := make(map[string]any, len(payload)+1)
	maps.Copy(request, payload)
	request["subtype"] = subtype

	data, err := json.Marshal(&ControlRequest{
		Type:      typeControlRequest,
		RequestID: requestID,
		Request:   request,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal control request: %w", err)
	}

	pending := &pendingRequest{
		subtype:   subtype,
		response:  make(chan *ControlResponse, 1),
		createdAt: time.Now(),
	}

	c.mu.Lock()
	c.pending[requestID] = pending
	c.mu.Unlock()

	c.log.Debug("Sending control request", "request_id", requestID, "subtype", subtype)

	if err := c.transport.SendMessage(ctx, data); err != nil {
		c.release(requestID)
		c.log.Error("Failed to send control request", "request_id", requestID, "error", err)

		return nil, fmt.Errorf("send %s request: %w", subtype, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error

	select {
	case resp := <-pending.response:
		return c.complete(requestID, resp)

	case <-timer.C:
		cause = fmt.Errorf("%w: %s after %s", errors.ErrRequestTimeout, subtype, timeout)

	case <-c.done:
		cause = c.stoppedError()

	case <-ctx.Done():
		cause = ctx.Err()
	}

	// A response that raced the exit path already removed the entry and
	// filled the slot; honour it so the request has one outcome.
	if !c.release(requestID) {
		return c.complete(requestID, <-pending.response)
	}

	if stderrors.Is(cause, errors.ErrRequestTimeout) {
		c.log.Warn("Control request timed out", "request_id", requestID, "subtype", subtype, "timeout", timeout)
	} else {
		c.log.Debug("Control request abandoned", "request_id", requestID, "error", cause)
	}

	return nil, cause
}

// complete converts a delivered response into SendRequest's result.
func (c *Controller) complete(requestID string, resp *ControlResponse) (*ControlResponse, error) {
	if resp.IsError() {
		msg := resp.ErrorMessage()
		c.log.Warn("Control request returned error", "request_id", requestID, "error", msg)

		return nil, &errors.ProtocolError{Message: msg}
	}

	c.log.Debug("Received control response", "request_id", requestID)

	return resp, nil
}

// release removes a pending entry and reports whether it was still present.
func (c *Controller) release(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[requestID]; !ok {
		return false
	}

	delete(c.pending, requestID)

	return true
}

func (c *Controller) stoppedError() error {
	if err := c.FatalError(); err != nil {
		return fmt.Errorf("transport error: %w", err)
	}

	return errors.ErrControllerStopped
}

// Interrupt asks the peer to stop the current turn.
func (c *Controller) Interrupt(ctx context.Context) error {
	if _, err := c.SendRequest(ctx, SubtypeInterrupt, nil, 0); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}

	return nil
}

// SetPermissionMode changes the peer's permission mode.
func (c *Controller) SetPermissionMode(ctx context.Context, mode string) error {
	if _, err := c.SendRequest(ctx, SubtypeSetPermissionMode, map[string]any{"mode": mode}, 0); err != nil {
		return fmt.Errorf("set permission mode: %w", err)
	}

	return nil
}

// readLoop consumes the transport's frames until they end, a fatal error
// occurs or the controller stops.
func (c *Controller) readLoop(ctx context.Context, frames <-chan framing.Frame) {
	defer c.log.Debug("Protocol read loop stopped")
	defer c.closeDone()
	defer c.queue.close()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				c.log.Debug("Transport frame sequence ended")

				return
			}

			if frame.Err != nil {
				c.queue.push(frame)

				if errors.IsDecodeError(frame.Err) {
					c.log.Warn("Skipping undecodable frame", "error", frame.Err)

					continue
				}

				c.log.Debug("Transport error in protocol", "error", frame.Err)
				c.SetFatalError(frame.Err)

				return
			}

			c.handleFrame(ctx, frame)

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return

		case <-ctx.Done():
			c.log.Debug("Context cancelled in protocol read loop")

			return
		}
	}
}

// handleFrame routes a frame based on its type.
func (c *Controller) handleFrame(ctx context.Context, frame framing.Frame) {
	switch frame.Type() {
	case typeControlResponse:
		c.handleControlResponse(frame.Data)

	case typeControlRequest:
		c.handleControlRequest(ctx, frame.Data)

	case typeControlCancelRequest:
		// Inbound requests are answered before the next frame is read, so
		// there is never anything in flight to cancel.
		c.log.Debug("Ignoring control cancel request", "request_id", frame.Data["request_id"])

	default:
		c.queue.push(frame)
	}
}

// handleControlResponse resolves the pending request with the same id.
func (c *Controller) handleControlResponse(msg map[string]any) {
	body, ok := msg["response"].(map[string]any)
	if !ok {
		c.log.Warn("Control response missing 'response' field")

		return
	}

	resp := &ControlResponse{Type: typeControlResponse, Response: body}
	requestID := resp.RequestID()

	c.mu.Lock()

	pending, exists := c.pending[requestID]
	if exists {
		delete(c.pending, requestID)
		pending.response <- resp
	}

	c.mu.Unlock()

	if !exists {
		c.log.Warn("No pending request for control response", "request_id", requestID)

		return
	}

	c.log.Debug("Resolved control request",
		"request_id", requestID,
		"subtype", pending.subtype,
		"elapsed", time.Since(pending.createdAt),
	)
}

// handleControlRequest answers one inbound request. In streaming mode exactly
// one reply frame is written before the read loop continues; in one-shot mode
// the request is dropped.
func (c *Controller) handleControlRequest(ctx context.Context, msg map[string]any) {
	requestID, _ := msg["request_id"].(string)
	if requestID == "" {
		c.log.Warn("Control request missing request_id")

		return
	}

	// One-shot peers have no input side to read a reply from.
	if !c.streaming {
		c.log.Debug("Ignoring control request in one-shot mode", "request_id", requestID)

		return
	}

	payload, err := c.answer(ctx, msg)
	if err != nil {
		c.log.Warn("Control request failed", "request_id", requestID, "error", err)

		data, encErr := encodeError(requestID, err.Error())
		c.reply(ctx, requestID, data, encErr)

		return
	}

	data, encErr := encodeSuccess(requestID, payload)
	c.reply(ctx, requestID, data, encErr)
}

func (c *Controller) answer(ctx context.Context, msg map[string]any) (map[string]any, error) {
	body, ok := msg["request"].(map[string]any)
	if !ok {
		return nil, errors.NewProtocolError("control request missing 'request' field")
	}

	req, err := ParseInboundRequest(body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Received control request from peer", "request_id", msg["request_id"], "subtype", req.Subtype())

	return c.dispatch(ctx, req)
}

// dispatch runs the callback registered for req.
func (c *Controller) dispatch(ctx context.Context, req InboundRequest) (map[string]any, error) {
	switch r := req.(type) {
	case *CanUseToolRequest:
		c.mu.Lock()
		cb := c.canUseTool
		c.mu.Unlock()

		if cb == nil {
			return nil, errors.NewProtocolError("canUseTool callback is not provided")
		}

		result, err := cb(ctx, r.ToolName, r.Input, &permission.Context{
			Suggestions: r.Suggestions,
			BlockedPath: r.BlockedPath,
		})
		if err != nil {
			return nil, err
		}

		var payload map[string]any
		if result != nil {
			payload = result.Payload()
		}

		// Covers typed nil decisions as well.
		if payload == nil {
			return nil, errors.NewProtocolError("permission callback for %s returned no decision", r.ToolName)
		}

		return payload, nil

	case *InitializeRequest:
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.initPayload == nil {
			return map[string]any{}, nil
		}

		return maps.Clone(c.initPayload), nil

	case *HookCallbackRequest:
		c.mu.Lock()
		cb, ok := c.hookCallbacks[r.CallbackID]
		c.mu.Unlock()

		if !ok {
			return nil, errors.NewProtocolError("no hook callback found for ID: %s", r.CallbackID)
		}

		input, err := hook.ParseInput(r.Input)
		if err != nil {
			return nil, err
		}

		output, err := cb(ctx, input, r.ToolUseID, &hook.Context{CallbackID: r.CallbackID})
		if err != nil {
			return nil, err
		}

		return hook.EncodeOutput(output)

	case *UnknownRequest:
		return nil, errors.NewProtocolError("unknown control request subtype: %s", r.Name)

	default:
		c.mu.Lock()
		handler, ok := c.handlers[req.Subtype()]
		c.mu.Unlock()

		if !ok {
			return map[string]any{}, nil
		}

		return handler(ctx, req)
	}
}

// reply writes an encoded reply frame.
func (c *Controller) reply(ctx context.Context, requestID string, data []byte, err error) {
	if err != nil {
		c.log.Error("Failed to encode control response", "request_id", requestID, "error", err)

		// The payload could not be encoded; the peer still gets an answer.
		if data, err = encodeError(requestID, err.Error()); err != nil {
			return
		}
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		// Don't log error if context was cancelled (expected during shutdown)
		if ctx.Err() != nil {
			c.log.Debug("Could not send control response during shutdown", "error", err)

			return
		}

		c.log.Error("Failed to send control response", "request_id", requestID, "error", err)
	}
}

// generateRequestID returns req_<counter>_<ulid>.
func (c *Controller) generateRequestID() string {
	return fmt.Sprintf("req_%d_%s", c.counter.Add(1), ulid.Make().String())
}
