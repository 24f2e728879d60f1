package claudectl

import (
	"io"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/subprocess"
)

// Transport is a duplex channel carrying newline-delimited JSON.
// Implement this to provide custom transports for testing or alternative
// channels. The default implementation spawns the CLI as a subprocess.
// Custom transports can be injected with WithTransport.
type Transport = config.Transport

// StreamTransport is a Transport over an existing reader and writer.
type StreamTransport = subprocess.StreamTransport

// NewStreamTransport creates a transport reading frames from r and writing
// lines to w, such as the two ends of a socket. WithLogger, WithFraming and
// WithMaxBufferSize apply; other options are ignored.
//
//	conn, _ := net.Dial("unix", "/run/agent.sock")
//	transport := claudectl.NewStreamTransport(conn, conn)
//	client := claudectl.NewClient()
//	err := client.Start(ctx, claudectl.WithTransport(transport))
func NewStreamTransport(r io.Reader, w io.WriteCloser, opts ...Option) *StreamTransport {
	options := applyOptions(opts)

	return subprocess.NewStreamTransport(loggerFor(options), r, w, options)
}
