// Package message models the ordinary (non-control) frames exchanged with the
// CLI. Payloads are kept as decoded JSON; only the fields needed to route and
// terminate a response are lifted out.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wagiedev/claude-control-go/internal/errors"
)

// Message types emitted by the CLI.
const (
	TypeUser        = "user"
	TypeAssistant   = "assistant"
	TypeSystem      = "system"
	TypeResult      = "result"
	TypeStreamEvent = "stream_event"
)

// Message is one ordinary frame, in wire order.
type Message struct {
	Type      string
	Subtype   string
	SessionID string
	// Data is the complete frame as received.
	Data map[string]any
}

// Parse lifts the routing fields out of a decoded frame.
func Parse(data map[string]any) (*Message, error) {
	msgType, ok := data["type"].(string)
	if !ok || msgType == "" {
		return nil, &errors.MessageParseError{
			Message: "missing or invalid 'type' field",
			Err:     fmt.Errorf("missing or invalid 'type' field"),
			Data:    data,
		}
	}

	msg := &Message{Type: msgType, Data: data}
	msg.Subtype, _ = data["subtype"].(string)
	msg.SessionID, _ = data["session_id"].(string)

	return msg, nil
}

// IsResult reports whether this is the terminal frame of a response.
func (m *Message) IsResult() bool {
	return m.Type == TypeResult
}

// Text concatenates the text blocks of a user or assistant message.
func (m *Message) Text() string {
	inner, ok := m.Data["message"].(map[string]any)
	if !ok {
		return ""
	}

	switch content := inner["content"].(type) {
	case string:
		return content
	case []any:
		var sb strings.Builder

		for _, raw := range content {
			block, ok := raw.(map[string]any)
			if !ok || block["type"] != "text" {
				continue
			}

			text, _ := block["text"].(string)
			sb.WriteString(text)
		}

		return sb.String()
	default:
		return ""
	}
}

// Result is the summary carried by a result frame.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type Result struct {
	Subtype       string         `json:"subtype"`
	IsError       bool           `json:"is_error"`
	DurationMs    int            `json:"duration_ms"`
	DurationAPIMs int            `json:"duration_api_ms"`
	NumTurns      int            `json:"num_turns"`
	SessionID     string         `json:"session_id"`
	TotalCostUSD  *float64       `json:"total_cost_usd,omitempty"`
	Usage         map[string]any `json:"usage,omitempty"`
	Result        *string        `json:"result,omitempty"`
}

// Result decodes the result summary. It returns an error for other frame types.
func (m *Message) Result() (*Result, error) {
	if !m.IsResult() {
		return nil, fmt.Errorf("message type %q is not a result", m.Type)
	}

	raw, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &errors.MessageParseError{Message: "invalid result message", Err: err, Data: m.Data}
	}

	return &result, nil
}

// StreamingMessageContent represents the content of a streaming message.
type StreamingMessageContent struct {
	Role    string `json:"role"`    // "user"
	Content string `json:"content"` // The message text
}

// StreamingMessage is a user turn written to the CLI in streaming mode.
//
//nolint:tagliatelle // CLI protocol uses snake_case for JSON fields
type StreamingMessage struct {
	Type            string                  `json:"type"`                         // "user"
	Message         StreamingMessageContent `json:"message"`                      // The message content
	ParentToolUseID *string                 `json:"parent_tool_use_id,omitempty"` // Optional parent tool use ID
	SessionID       string                  `json:"session_id"`
}

// NewUserMessage builds a streaming user turn. An empty sessionID selects
// the "default" session.
func NewUserMessage(prompt, sessionID string) *StreamingMessage {
	if sessionID == "" {
		sessionID = "default"
	}

	return &StreamingMessage{
		Type:      TypeUser,
		Message:   StreamingMessageContent{Role: "user", Content: prompt},
		SessionID: sessionID,
	}
}
