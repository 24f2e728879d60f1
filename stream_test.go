package claudectl

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents(seq func(func(*StreamingMessage) bool)) []string {
	var out []string

	for msg := range seq {
		out = append(out, msg.Message.Content)
	}

	return out
}

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	assert.Equal(t, "user", msg.Type)
	assert.Equal(t, "user", msg.Message.Role)
	assert.Equal(t, "Hello", msg.Message.Content)
	assert.Equal(t, "default", msg.SessionID)
	assert.Nil(t, msg.ParentToolUseID)
}

func TestMessagesFromSlice(t *testing.T) {
	require.Empty(t, contents(MessagesFromSlice(nil)))

	msgs := MessagesFromSlice([]*StreamingMessage{
		NewUserMessage("First"),
		NewUserMessage("Second"),
		NewUserMessage("Third"),
	})
	require.Equal(t, []string{"First", "Second", "Third"}, contents(msgs))

	// Early break stops the sequence.
	var first []string

	for msg := range msgs {
		first = append(first, msg.Message.Content)

		break
	}

	require.Equal(t, []string{"First"}, first)
}

func TestMessagesFromChannel(t *testing.T) {
	ch := make(chan *StreamingMessage, 2)
	ch <- NewUserMessage("a")
	ch <- NewUserMessage("b")
	close(ch)

	require.Equal(t, []string{"a", "b"}, contents(MessagesFromChannel(ch)))
}

func TestSingleMessage(t *testing.T) {
	require.Equal(t, []string{"only"}, slices.Collect(func(yield func(string) bool) {
		for msg := range SingleMessage("only") {
			if !yield(msg.Message.Content) {
				return
			}
		}
	}))
}
