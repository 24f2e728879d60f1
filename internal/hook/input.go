package hook

import (
	"encoding/json"
	"fmt"
)

// Input is the interface for all hook input types.
type Input interface {
	GetHookEventName() Event
	GetSessionID() string
	GetTranscriptPath() string
	GetCwd() string
}

// Compile-time verification that all hook input types implement Input.
var (
	_ Input = (*PreToolUseInput)(nil)
	_ Input = (*PostToolUseInput)(nil)
	_ Input = (*UserPromptSubmitInput)(nil)
	_ Input = (*StopInput)(nil)
	_ Input = (*SubagentStopInput)(nil)
	_ Input = (*PreCompactInput)(nil)
	_ Input = (*NotificationInput)(nil)
	_ Input = (*GenericInput)(nil)
)

// BaseInput contains common fields for all hook inputs.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type BaseInput struct {
	HookEventName  Event   `json:"hook_event_name"`
	SessionID      string  `json:"session_id"`
	TranscriptPath string  `json:"transcript_path"`
	Cwd            string  `json:"cwd"`
	PermissionMode *string `json:"permission_mode,omitempty"`
}

// GetHookEventName implements Input.
func (b *BaseInput) GetHookEventName() Event { return b.HookEventName }

// GetSessionID implements Input.
func (b *BaseInput) GetSessionID() string { return b.SessionID }

// GetTranscriptPath implements Input.
func (b *BaseInput) GetTranscriptPath() string { return b.TranscriptPath }

// GetCwd implements Input.
func (b *BaseInput) GetCwd() string { return b.Cwd }

// PreToolUseInput is the input for PreToolUse hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type PreToolUseInput struct {
	BaseInput
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	ToolUseID string         `json:"tool_use_id"`
}

// PostToolUseInput is the input for PostToolUse hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type PostToolUseInput struct {
	BaseInput
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolUseID    string         `json:"tool_use_id"`
	ToolResponse any            `json:"tool_response"`
}

// UserPromptSubmitInput is the input for UserPromptSubmit hooks.
type UserPromptSubmitInput struct {
	BaseInput
	Prompt string `json:"prompt"`
}

// StopInput is the input for Stop hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type StopInput struct {
	BaseInput
	StopHookActive bool `json:"stop_hook_active"`
}

// SubagentStopInput is the input for SubagentStop hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type SubagentStopInput struct {
	BaseInput
	StopHookActive bool   `json:"stop_hook_active"`
	AgentID        string `json:"agent_id"`
	AgentType      string `json:"agent_type"`
}

// PreCompactInput is the input for PreCompact hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type PreCompactInput struct {
	BaseInput
	Trigger            string  `json:"trigger"` // "manual" or "auto"
	CustomInstructions *string `json:"custom_instructions,omitempty"`
}

// NotificationInput is the input for Notification hooks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type NotificationInput struct {
	BaseInput
	Message          string  `json:"message"`
	Title            *string `json:"title,omitempty"`
	NotificationType string  `json:"notification_type"`
}

// GenericInput carries events this package has no dedicated type for.
type GenericInput struct {
	BaseInput
	Raw map[string]any `json:"-"`
}

// ParseInput decodes a hook_callback input object into its typed form,
// selected by hook_event_name.
func ParseInput(data map[string]any) (Input, error) {
	if data == nil {
		return nil, fmt.Errorf("hook input is missing")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode hook input: %w", err)
	}

	event, _ := data["hook_event_name"].(string)

	var input Input

	switch Event(event) {
	case EventPreToolUse:
		input = &PreToolUseInput{}
	case EventPostToolUse:
		input = &PostToolUseInput{}
	case EventUserPromptSubmit:
		input = &UserPromptSubmitInput{}
	case EventStop:
		input = &StopInput{}
	case EventSubagentStop:
		input = &SubagentStopInput{}
	case EventPreCompact:
		input = &PreCompactInput{}
	case EventNotification:
		input = &NotificationInput{}
	default:
		generic := &GenericInput{Raw: data}
		if err := json.Unmarshal(raw, &generic.BaseInput); err != nil {
			return nil, fmt.Errorf("decode hook input: %w", err)
		}

		return generic, nil
	}

	if err := json.Unmarshal(raw, input); err != nil {
		return nil, fmt.Errorf("decode %s hook input: %w", event, err)
	}

	return input, nil
}
