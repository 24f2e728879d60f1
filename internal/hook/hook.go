// Package hook provides the hook callback capability: event names, typed
// inputs delivered through hook_callback control requests, and the outputs a
// callback may return.
package hook

import (
	"context"
	"strings"
)

// Event represents the type of event that triggers a hook.
type Event string

const (
	// EventPreToolUse is triggered before a tool is used.
	EventPreToolUse Event = "PreToolUse"
	// EventPostToolUse is triggered after a tool is used.
	EventPostToolUse Event = "PostToolUse"
	// EventUserPromptSubmit is triggered when a user submits a prompt.
	EventUserPromptSubmit Event = "UserPromptSubmit"
	// EventStop is triggered when a session stops.
	EventStop Event = "Stop"
	// EventSubagentStop is triggered when a subagent stops.
	EventSubagentStop Event = "SubagentStop"
	// EventPreCompact is triggered before compaction.
	EventPreCompact Event = "PreCompact"
	// EventNotification is triggered when a notification is sent.
	EventNotification Event = "Notification"
)

// Context provides context for hook execution.
type Context struct {
	// CallbackID is the identifier the CLI used to address this callback.
	CallbackID string
}

// Callback is the function signature for hook callbacks. Returning a nil
// output means "continue".
type Callback func(
	ctx context.Context,
	input Input,
	toolUseID *string,
	hookCtx *Context,
) (JSONOutput, error)

// Matcher configures which tools/events a hook applies to.
type Matcher struct {
	// Matcher is a tool name like "Bash" or a pipe-separated combination like "Write|Edit".
	// When nil, the hook matches all tools/events.
	// This is NOT regex - pipe (|) separates multiple tool names to match.
	Matcher *string
	Hooks   []Callback
	Timeout *float64 // seconds
}

// Matches reports whether the matcher selects toolName.
func (m *Matcher) Matches(toolName string) bool {
	if m.Matcher == nil || *m.Matcher == "" || *m.Matcher == "*" {
		return true
	}

	for name := range strings.SplitSeq(*m.Matcher, "|") {
		if strings.TrimSpace(name) == toolName {
			return true
		}
	}

	return false
}
