package subprocess

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/framing"
)

// StreamTransport implements config.Transport over an existing duplex byte
// stream such as a socket or a pair of pipes.
type StreamTransport struct {
	duplex

	reader    io.Reader
	writer    io.WriteCloser
	startOnce sync.Once
	started   bool
}

// Compile-time verification that StreamTransport implements the Transport interface.
var _ config.Transport = (*StreamTransport)(nil)

// NewStreamTransport creates a transport reading frames from r and writing
// lines to w. Framing policy and buffer limit come from options.
func NewStreamTransport(log *slog.Logger, r io.Reader, w io.WriteCloser, options *config.Options) *StreamTransport {
	if options == nil {
		options = &config.Options{}
	}

	return &StreamTransport{
		duplex: duplex{
			log:       log.With("component", "stream_transport"),
			policy:    options.Framing,
			maxBuffer: options.MaxBufferSize,
		},
		reader: r,
		writer: w,
	}
}

// Start attaches the writer. The stream is already established, so Start
// only fails if the transport was closed first.
func (t *StreamTransport) Start(context.Context) error {
	t.startOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		if !t.closing {
			t.stdin = t.writer
			t.started = true
		}
	})

	return nil
}

// ReadMessages returns the frames decoded from the reader.
func (t *StreamTransport) ReadMessages(ctx context.Context) <-chan framing.Frame {
	return t.readFrames(ctx, t.reader, nil)
}

// SendMessage writes one JSON line.
func (t *StreamTransport) SendMessage(ctx context.Context, data []byte) error {
	return t.send(ctx, data)
}

// IsReady reports whether the transport was started and can still write.
func (t *StreamTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started && !t.stdinClosed && !t.closing
}

// EndInput closes the writer.
func (t *StreamTransport) EndInput() error {
	return t.endInput()
}

// Close closes both directions. It's safe to call Close multiple times.
func (t *StreamTransport) Close() error {
	if !t.markClosing() {
		return nil
	}

	_ = t.writer.Close()

	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}

	return nil
}
