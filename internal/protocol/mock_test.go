package protocol

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claude-control-go/internal/framing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	sentCh  chan []byte
	frames  chan framing.Frame
	sendErr error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		sent:   make([][]byte, 0, 10),
		sentCh: make(chan []byte, 256),
		frames: make(chan framing.Frame, 256),
	}
}

func (m *mockTransport) ReadMessages(_ context.Context) <-chan framing.Frame {
	return m.frames
}

func (m *mockTransport) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	m.sent = append(m.sent, data)
	m.sentCh <- data

	return nil
}

func (m *mockTransport) setSendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendErr = err
}

func (m *mockTransport) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

// inject delivers a decoded frame to the controller.
func (m *mockTransport) inject(data map[string]any) {
	m.frames <- framing.Frame{Data: data}
}

// injectErr delivers an error frame to the controller.
func (m *mockTransport) injectErr(err error) {
	m.frames <- framing.Frame{Err: err}
}

// finish ends the frame sequence as if the peer closed its output.
func (m *mockTransport) finish() {
	close(m.frames)
}

// nextSent waits for the next line written by the controller.
func (m *mockTransport) nextSent(t require.TestingT) []byte {
	select {
	case data := <-m.sentCh:
		return data
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for an outbound frame")

		return nil
	}
}

// nextSentJSON waits for the next line and decodes it.
func (m *mockTransport) nextSentJSON(t require.TestingT) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(m.nextSent(t), &out))

	return out
}

// startController creates and starts a controller over a fresh mock.
func startController(t *testing.T, streaming bool) (*Controller, *mockTransport) {
	t.Helper()

	transport := newMockTransport()
	controller := NewController(discardLogger(), transport, streaming, 0)

	require.NoError(t, controller.Start(context.Background()))
	t.Cleanup(controller.Stop)

	return controller, transport
}

// nextMessage waits for the next ordinary-message frame.
func nextMessage(t require.TestingT, c *Controller) framing.Frame {
	select {
	case frame, ok := <-c.Messages():
		require.True(t, ok, "message channel closed unexpectedly")

		return frame
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for a message")

		return framing.Frame{}
	}
}

// requireClosed waits for the message channel to close, draining frames.
func requireClosed(t require.TestingT, c *Controller) []framing.Frame {
	var rest []framing.Frame

	timeout := time.After(2 * time.Second)

	for {
		select {
		case frame, ok := <-c.Messages():
			if !ok {
				return rest
			}

			rest = append(rest, frame)
		case <-timeout:
			require.FailNow(t, "message channel was not closed")

			return nil
		}
	}
}

// controlRequest builds an inbound control_request frame.
func controlRequest(id string, body map[string]any) map[string]any {
	return map[string]any{
		"type":       "control_request",
		"request_id": id,
		"request":    body,
	}
}

// successResponse builds an inbound success control_response frame.
func successResponse(id string, payload any) map[string]any {
	return map[string]any{
		"type": "control_response",
		"response": map[string]any{
			"subtype":    "success",
			"request_id": id,
			"response":   payload,
		},
	}
}

// waitPendingID waits until a request is registered and returns its id.
func waitPendingID(t require.TestingT, c *Controller) string {
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		c.mu.Lock()
		for id := range c.pending {
			c.mu.Unlock()

			return id
		}
		c.mu.Unlock()

		time.Sleep(100 * time.Microsecond)
	}

	require.FailNow(t, "no pending request registered")

	return ""
}
