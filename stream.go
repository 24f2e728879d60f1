package claudectl

import (
	"iter"

	"github.com/wagiedev/claude-control-go/internal/message"
)

// MessagesFromSlice streams a fixed set of messages.
func MessagesFromSlice(msgs []*StreamingMessage) iter.Seq[*StreamingMessage] {
	return func(yield func(*StreamingMessage) bool) {
		for _, msg := range msgs {
			if !yield(msg) {
				return
			}
		}
	}
}

// MessagesFromChannel streams messages as they are produced. The sequence
// ends when ch is closed.
func MessagesFromChannel(ch <-chan *StreamingMessage) iter.Seq[*StreamingMessage] {
	return func(yield func(*StreamingMessage) bool) {
		for msg := range ch {
			if !yield(msg) {
				return
			}
		}
	}
}

// SingleMessage streams one user message.
func SingleMessage(content string) iter.Seq[*StreamingMessage] {
	return MessagesFromSlice([]*StreamingMessage{NewUserMessage(content)})
}

// NewUserMessage creates a user turn for the "default" session.
func NewUserMessage(content string) *StreamingMessage {
	return message.NewUserMessage(content, "")
}
