package claudectl

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePeer plays the CLI side of a StreamTransport over in-memory pipes.
type fakePeer struct {
	t        *testing.T
	out      *io.PipeWriter
	writeMu  sync.Mutex
	received chan map[string]any
}

// newFakePeer returns a peer and the transport connected to it.
func newFakePeer(t *testing.T) (*fakePeer, *StreamTransport) {
	t.Helper()

	toPeerR, toPeerW := io.Pipe()
	toLibR, toLibW := io.Pipe()

	peer := &fakePeer{
		t:        t,
		out:      toLibW,
		received: make(chan map[string]any, 64),
	}

	go peer.readLoop(toPeerR)

	t.Cleanup(func() {
		_ = toLibW.Close()
		_ = toPeerR.Close()
	})

	return peer, NewStreamTransport(toLibR, toPeerW)
}

func (p *fakePeer) readLoop(r io.Reader) {
	defer close(p.received)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var msg map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		p.received <- msg
	}
}

// send writes v as one line.
func (p *fakePeer) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	p.sendRaw(string(data))
}

func (p *fakePeer) sendRaw(line string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_, _ = io.WriteString(p.out, line+"\n")
}

// reply answers an outbound control request with a success payload.
func (p *fakePeer) reply(request map[string]any, payload map[string]any) {
	p.send(map[string]any{
		"type": "control_response",
		"response": map[string]any{
			"subtype":    "success",
			"request_id": request["request_id"],
			"response":   payload,
		},
	})
}

// close ends the library's frame sequence.
func (p *fakePeer) close() {
	_ = p.out.Close()
}

// serve calls handle for every line the library writes until its input
// side closes.
func (p *fakePeer) serve(handle func(map[string]any)) {
	for msg := range p.received {
		handle(msg)
	}
}

// next returns the next line written by the library.
func (p *fakePeer) next() (map[string]any, bool) {
	select {
	case msg, ok := <-p.received:
		return msg, ok
	case <-time.After(5 * time.Second):
		p.t.Error("timed out waiting for peer input")

		return nil, false
	}
}

func requestSubtype(msg map[string]any) string {
	if msg["type"] != "control_request" {
		return ""
	}

	request, _ := msg["request"].(map[string]any)
	subtype, _ := request["subtype"].(string)

	return subtype
}

func assistantMessage(text string) map[string]any {
	return map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"role":    "assistant",
			"content": []any{map[string]any{"type": "text", "text": text}},
		},
	}
}

func resultMessage() map[string]any {
	return map[string]any{
		"type":        "result",
		"subtype":     "success",
		"session_id":  "sess-1",
		"num_turns":   1,
		"duration_ms": 12,
		"is_error":    false,
	}
}

type iterated struct {
	msgs []*Message
	errs []error
}

func drain(t *testing.T, seq func(func(*Message, error) bool)) iterated {
	t.Helper()

	var out iterated

	done := make(chan struct{})

	go func() {
		defer close(done)

		for msg, err := range seq {
			if err != nil {
				out.errs = append(out.errs, err)

				continue
			}

			out.msgs = append(out.msgs, msg)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		require.FailNow(t, "timed out iterating messages")
	}

	return out
}
