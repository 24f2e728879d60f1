package subprocess

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/framing"
)

// writeAbandonTimeout bounds how long a cancelled write waits for the
// blocked Write call to return after the pipe is closed.
const writeAbandonTimeout = time.Second

// duplex is the outbound half and frame reader shared by both transports.
type duplex struct {
	log         *slog.Logger
	policy      framing.Policy
	maxBuffer   int
	mu          sync.Mutex // Protects stdin writes
	stdin       io.WriteCloser
	stdinClosed bool // Outbound side closed (EndInput, cancellation or Close)
	closing     bool // Close() has been called (intentional shutdown)
	reading     atomic.Bool
}

// send writes data as one newline-terminated line.
//
// If ctx is cancelled during a blocked write, stdin is closed to unblock the
// writer; subsequent calls return ErrStdinClosed.
func (d *duplex) send(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stdin == nil && !d.stdinClosed {
		return errors.ErrTransportNotConnected
	}

	if d.stdinClosed {
		return errors.ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy rather than append so the caller's backing array is never touched.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		line := make([]byte, len(data)+1)
		copy(line, data)
		line[len(data)] = '\n'
		data = line
	}

	d.log.Debug("Writing line", "data_len", len(data))

	done := make(chan error, 1)

	go func() {
		_, err := d.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			d.log.Error("Failed to write line", "error", err)

			return &errors.TransportError{Op: "write", Err: err}
		}

		return nil

	case <-ctx.Done():
		d.log.Debug("Context cancelled during write, closing stdin")

		_ = d.stdin.Close()
		d.stdinClosed = true

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			d.log.Warn("Write goroutine did not exit after stdin close")
		}

		return ctx.Err()
	}
}

// endInput half-closes the outbound side. It is safe to call repeatedly.
func (d *duplex) endInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stdin == nil || d.stdinClosed {
		d.stdinClosed = true

		return nil
	}

	d.log.Debug("Closing outbound stream")

	d.stdinClosed = true

	if err := d.stdin.Close(); err != nil {
		return &errors.TransportError{Op: "close input", Err: err}
	}

	return nil
}

// markClosing records an intentional shutdown and reports whether this is
// the first call.
func (d *duplex) markClosing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	first := !d.closing
	d.closing = true
	d.stdinClosed = true

	return first
}

func (d *duplex) isClosing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closing
}

// readFrames decodes r on a goroutine and returns the frame sequence.
//
// Only the first call reads; later calls get a channel carrying a single
// ErrAlreadyReading frame. At clean end of stream, finish is consulted for a
// terminal error (for example a failed process exit). Read errors after an
// intentional Close end the sequence without an error frame.
func (d *duplex) readFrames(
	ctx context.Context,
	r io.Reader,
	finish func() error,
) <-chan framing.Frame {
	if !d.reading.CompareAndSwap(false, true) {
		out := make(chan framing.Frame, 1)
		out <- framing.Frame{Err: errors.ErrAlreadyReading}
		close(out)

		return out
	}

	out := make(chan framing.Frame)

	go func() {
		defer close(out)
		defer d.log.Debug("Frame reader stopped")

		emit := func(frame framing.Frame) bool {
			select {
			case out <- frame:
				return true
			case <-ctx.Done():
				return false
			}
		}

		decoder := framing.NewDecoder(d.log, r, d.policy, d.maxBuffer)
		count := 0

		for {
			frame, err := decoder.Next()
			if err == nil {
				if frame.Err == nil {
					count++
				}

				if !emit(frame) {
					d.log.Debug("Context cancelled while delivering frame", "error", ctx.Err())

					return
				}

				continue
			}

			if !stderrors.Is(err, io.EOF) {
				if d.isClosing() {
					d.log.Debug("Read ended during shutdown", "error", err)
				} else {
					d.log.Error("Failed to read from peer", "error", err)
					emit(framing.Frame{Err: &errors.TransportError{Op: "read", Err: err}})
				}

				return
			}

			d.log.Debug("Peer closed its output", "frames", count)

			if finish != nil {
				if ferr := finish(); ferr != nil {
					emit(framing.Frame{Err: ferr})
				}
			}

			return
		}
	}()

	return out
}
