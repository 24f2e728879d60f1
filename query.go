package claudectl

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/framing"
	"github.com/wagiedev/claude-control-go/internal/message"
	"github.com/wagiedev/claude-control-go/internal/protocol"
	"github.com/wagiedev/claude-control-go/internal/subprocess"
)

// Query runs a one-shot prompt and returns an iterator over the messages.
//
// The prompt is passed to the CLI on its command line and the input side is
// closed immediately; no control requests can be exchanged. When the options
// register callbacks (WithCanUseTool, WithHooks or an SDK MCP server), Query
// runs through QueryStream instead so the callbacks can be answered.
//
// With WithTransport, the prompt is not written to the transport; use
// QueryStream to send it.
//
//	for msg, err := range claudectl.Query(ctx, "What is 2+2?", claudectl.WithMaxTurns(1)) {
//	    if err != nil {
//	        return err
//	    }
//	    if msg.IsResult() {
//	        fmt.Println("done")
//	    }
//	}
//
// Errors are yielded inline. Recoverable errors (see IsRecoverable) leave
// iteration running; transport failures and context cancellation end it.
func Query(
	ctx context.Context,
	prompt string,
	opts ...Option,
) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		options := applyOptions(opts)

		if err := options.Validate(); err != nil {
			yield(nil, fmt.Errorf("invalid options: %w", err))

			return
		}

		// A one-shot CLI cannot answer control requests; route callback
		// traffic through streaming mode while keeping the Query API.
		if options.HasCallbacks() {
			for msg, err := range QueryStream(ctx, SingleMessage(prompt), opts...) {
				if !yield(msg, err) {
					return
				}
			}

			return
		}

		log := loggerFor(options).With("component", "query")
		log.Debug("Starting query")

		transport := options.Transport
		if transport == nil {
			transport = subprocess.NewCLITransport(log, prompt, options)
		}

		if err := transport.Start(ctx); err != nil {
			log.Error("Failed to start transport", "error", err)
			yield(nil, err)

			return
		}

		defer transport.Close()

		controller := protocol.NewController(log, transport, false, options.EffectiveControlTimeout())
		if err := controller.Start(ctx); err != nil {
			yield(nil, fmt.Errorf("start protocol controller: %w", err))

			return
		}

		defer controller.Stop()

		if err := transport.EndInput(); err != nil {
			yield(nil, fmt.Errorf("close input: %w", err))

			return
		}

		(&relay{log: log, frames: controller.Messages()}).run(ctx, yield)
	}
}

// QueryStream sends the messages from the iterator in streaming mode and
// returns an iterator over the replies.
//
// The initialize handshake is always performed. When callbacks are
// registered, the input side stays open until the first result arrives so
// the peer can still send control requests; CLAUDE_CODE_STREAM_CLOSE_TIMEOUT
// (seconds) bounds that wait.
//
//	messages := claudectl.MessagesFromSlice([]*claudectl.StreamingMessage{
//	    claudectl.NewUserMessage("Hello"),
//	    claudectl.NewUserMessage("How are you?"),
//	})
//
//	for msg, err := range claudectl.QueryStream(ctx, messages) {
//	    ...
//	}
//
// The input iterator runs in its own goroutine. When iteration stops, QueryStream
// waits for it, so it must not block indefinitely.
func QueryStream(
	ctx context.Context,
	messages iter.Seq[*StreamingMessage],
	opts ...Option,
) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		options := applyOptions(opts)

		if err := options.Validate(); err != nil {
			yield(nil, fmt.Errorf("invalid options: %w", err))

			return
		}

		log := loggerFor(options).With("component", "query_stream")
		log.Debug("Starting streaming query")

		transport := options.Transport
		if transport == nil {
			transport = subprocess.NewCLITransportWithMode(log, "", options, true)
		}

		if err := transport.Start(ctx); err != nil {
			log.Error("Failed to start transport", "error", err)
			yield(nil, err)

			return
		}

		defer transport.Close()

		controller := protocol.NewController(log, transport, true, options.EffectiveControlTimeout())
		session := protocol.NewSession(log, controller, options)
		session.RegisterHandlers()

		if err := controller.Start(ctx); err != nil {
			yield(nil, fmt.Errorf("start protocol controller: %w", err))

			return
		}

		defer controller.Stop()

		if err := session.Initialize(ctx); err != nil {
			yield(nil, fmt.Errorf("initialize session: %w", err))

			return
		}

		// Closed once the first result arrives, when the input must stay
		// open for callbacks until then.
		var (
			resultReceived chan struct{}
			closeOnce      sync.Once
		)

		if options.HasCallbacks() {
			resultReceived = make(chan struct{})
		}

		closeResult := func() {
			if resultReceived != nil {
				closeOnce.Do(func() { close(resultReceived) })
			}
		}

		streamCtx, cancelStream := context.WithCancel(ctx)

		g, gCtx := errgroup.WithContext(streamCtx)
		g.Go(func() error {
			return streamInput(gCtx, log, transport, messages, resultReceived, protocol.StreamCloseTimeout())
		})

		// Deferred calls run in reverse: unblock the input goroutine, then
		// wait for it.
		defer func() { _ = g.Wait() }()
		defer cancelStream()
		defer closeResult()

		r := &relay{
			log:      log,
			frames:   controller.Messages(),
			abort:    gCtx.Done(),
			abortErr: g.Wait,
			onResult: closeResult,
		}
		r.run(ctx, yield)
	}
}

// streamInput writes messages to the transport and half-closes it. When
// resultReceived is non-nil it waits for the first result, at most
// closeTimeout, before closing.
func streamInput(
	ctx context.Context,
	log *slog.Logger,
	transport Transport,
	messages iter.Seq[*StreamingMessage],
	resultReceived <-chan struct{},
	closeTimeout time.Duration,
) (err error) {
	defer func() {
		if endErr := transport.EndInput(); endErr != nil && err == nil {
			err = fmt.Errorf("end input: %w", endErr)
		}
	}()

	for msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal streaming message: %w", err)
		}

		if err := transport.SendMessage(ctx, data); err != nil {
			log.Error("Failed to send streaming message", "error", err)

			return fmt.Errorf("send streaming message: %w", err)
		}
	}

	log.Debug("Finished streaming input")

	if resultReceived == nil {
		return nil
	}

	timer := time.NewTimer(closeTimeout)
	defer timer.Stop()

	select {
	case <-resultReceived:
		log.Debug("Result received, closing input")
	case <-timer.C:
		log.Warn("Timed out waiting for result before closing input", "timeout", closeTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// relay converts frames into messages for an iterator.
type relay struct {
	log    *slog.Logger
	frames <-chan framing.Frame

	// abort ends the relay early with abortErr's result; nil never fires.
	abort    <-chan struct{}
	abortErr func() error

	// onResult, if set, is called before a result message is yielded.
	onResult func()
}

func (r *relay) run(ctx context.Context, yield func(*Message, error) bool) {
	for {
		select {
		case frame, ok := <-r.frames:
			if !ok {
				r.log.Debug("Message sequence ended")

				// The controller also stops on cancellation.
				if err := ctx.Err(); err != nil {
					yield(nil, err)
				}

				return
			}

			msg, err := decodeFrame(frame)
			if err != nil {
				if !errors.IsRecoverable(err) {
					r.log.Error("Transport failed", "error", err)
					yield(nil, err)

					return
				}

				r.log.Warn("Skipping undecodable frame", "error", err)

				if !yield(nil, err) {
					return
				}

				continue
			}

			if msg.IsResult() && r.onResult != nil {
				r.onResult()
			}

			if !yield(msg, nil) {
				return
			}

		case <-r.abort:
			err := r.abortErr()
			if err == nil {
				err = ctx.Err()
			}

			if err != nil {
				r.log.Error("Input streaming failed", "error", err)
				yield(nil, err)
			}

			return

		case <-ctx.Done():
			yield(nil, ctx.Err())

			return
		}
	}
}

func decodeFrame(frame framing.Frame) (*Message, error) {
	if frame.Err != nil {
		return nil, frame.Err
	}

	return message.Parse(frame.Data)
}
