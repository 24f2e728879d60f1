package protocol

import (
	"sync"

	"github.com/wagiedev/claude-control-go/internal/framing"
)

// frameQueue is an unbounded FIFO between the read loop and the consumer of
// ordinary messages. Pushing never blocks, so a slow consumer cannot stall
// control traffic.
type frameQueue struct {
	mu     sync.Mutex
	items  []framing.Frame
	closed bool
	ready  chan struct{} // capacity 1; signalled on push and close
}

func newFrameQueue() *frameQueue {
	return &frameQueue{
		items: make([]framing.Frame, 0, 64),
		ready: make(chan struct{}, 1),
	}
}

func (q *frameQueue) push(frame framing.Frame) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return
	}

	q.items = append(q.items, frame)
	q.mu.Unlock()

	q.signal()
}

// close marks the end of input. Items already queued are still delivered.
func (q *frameQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

func (q *frameQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop returns the oldest item. more is false once the queue is closed and
// drained.
func (q *frameQueue) pop() (frame framing.Frame, ok bool, more bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) > 0 {
		frame = q.items[0]
		q.items[0] = framing.Frame{}
		q.items = q.items[1:]

		return frame, true, true
	}

	return framing.Frame{}, false, !q.closed
}

// pump moves items to out in order until the queue is drained after close,
// or stop is closed. out is closed on return.
func (q *frameQueue) pump(out chan<- framing.Frame, stop <-chan struct{}) {
	defer close(out)

	for {
		frame, ok, more := q.pop()
		if !more {
			return
		}

		if !ok {
			select {
			case <-q.ready:
			case <-stop:
				return
			}

			continue
		}

		select {
		case out <- frame:
		case <-stop:
			return
		}
	}
}
