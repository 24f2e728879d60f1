package hook

import (
	"encoding/json"
	"fmt"
)

// JSONOutput is a hook result: *SyncOutput, *AsyncOutput, or nil.
type JSONOutput interface {
	isOutput()
}

// Compile-time verification that hook output types implement JSONOutput.
var (
	_ JSONOutput = (*AsyncOutput)(nil)
	_ JSONOutput = (*SyncOutput)(nil)
)

// AsyncOutput defers the hook's decision.
type AsyncOutput struct {
	AsyncTimeout *int `json:"asyncTimeout,omitempty"` // milliseconds
}

func (*AsyncOutput) isOutput() {}

// SyncOutput is an immediate hook decision.
type SyncOutput struct {
	Continue           *bool          `json:"continue,omitempty"`
	SuppressOutput     *bool          `json:"suppressOutput,omitempty"`
	StopReason         *string        `json:"stopReason,omitempty"`
	Decision           *string        `json:"decision,omitempty"` // "block"
	SystemMessage      *string        `json:"systemMessage,omitempty"`
	Reason             *string        `json:"reason,omitempty"`
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

func (*SyncOutput) isOutput() {}

// SpecificOutput is the interface for hook-specific outputs.
type SpecificOutput interface {
	GetHookEventName() Event
}

// Compile-time verification that hook-specific output types implement SpecificOutput.
var (
	_ SpecificOutput = (*PreToolUseSpecificOutput)(nil)
	_ SpecificOutput = (*PostToolUseSpecificOutput)(nil)
	_ SpecificOutput = (*UserPromptSubmitSpecificOutput)(nil)
)

// PreToolUseSpecificOutput is the hook-specific output for PreToolUse.
type PreToolUseSpecificOutput struct {
	PermissionDecision       *string        `json:"permissionDecision,omitempty"` // "allow", "deny", "ask"
	PermissionDecisionReason *string        `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any `json:"updatedInput,omitempty"`
}

// GetHookEventName implements SpecificOutput.
func (*PreToolUseSpecificOutput) GetHookEventName() Event { return EventPreToolUse }

// PostToolUseSpecificOutput is the hook-specific output for PostToolUse.
type PostToolUseSpecificOutput struct {
	AdditionalContext *string `json:"additionalContext,omitempty"`
}

// GetHookEventName implements SpecificOutput.
func (*PostToolUseSpecificOutput) GetHookEventName() Event { return EventPostToolUse }

// UserPromptSubmitSpecificOutput is the hook-specific output for UserPromptSubmit.
type UserPromptSubmitSpecificOutput struct {
	AdditionalContext *string `json:"additionalContext,omitempty"`
}

// GetHookEventName implements SpecificOutput.
func (*UserPromptSubmitSpecificOutput) GetHookEventName() Event { return EventUserPromptSubmit }

// EncodeOutput converts a hook result into the control response body.
// A nil output (typed or not), and a SyncOutput without Continue, encode as
// continue=true.
func EncodeOutput(output JSONOutput) (map[string]any, error) {
	switch o := output.(type) {
	case nil:
		return map[string]any{"continue": true}, nil

	case *AsyncOutput:
		if o == nil {
			return map[string]any{"continue": true}, nil
		}

		result := map[string]any{"async": true}
		if o.AsyncTimeout != nil {
			result["asyncTimeout"] = *o.AsyncTimeout
		}

		return result, nil

	case *SyncOutput:
		if o == nil {
			return map[string]any{"continue": true}, nil
		}

		raw, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("encode hook output: %w", err)
		}

		var result map[string]any
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("encode hook output: %w", err)
		}

		if _, ok := result["continue"]; !ok {
			result["continue"] = true
		}

		if o.HookSpecificOutput != nil {
			specific, _ := result["hookSpecificOutput"].(map[string]any)
			if specific == nil {
				specific = make(map[string]any, 1)
			}

			specific["hookEventName"] = string(o.HookSpecificOutput.GetHookEventName())
			result["hookSpecificOutput"] = specific
		}

		return result, nil

	default:
		return nil, fmt.Errorf("unsupported hook output type %T", output)
	}
}
