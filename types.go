package claudectl

import (
	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/framing"
	"github.com/wagiedev/claude-control-go/internal/hook"
	"github.com/wagiedev/claude-control-go/internal/message"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

// Re-export types from internal packages

// ===== Options and Framing =====

// Options configures a control session.
type Options = config.Options

// FramingPolicy selects how output lines are assembled into frames.
type FramingPolicy = framing.Policy

const (
	// FramingStrict decodes each non-empty line as exactly one JSON value.
	FramingStrict = framing.FramingStrict
	// FramingAccumulate joins lines until the buffered text decodes.
	FramingAccumulate = framing.FramingAccumulate
)

// Frame is one decoded frame, or the error that replaced it.
type Frame = framing.Frame

const (
	// DefaultControlTimeout bounds outbound control requests.
	DefaultControlTimeout = config.DefaultControlTimeout
	// DefaultMaxBufferSize bounds a single logical frame.
	DefaultMaxBufferSize = framing.DefaultMaxBufferSize
)

// ===== Messages =====

// Message is one ordinary frame from the peer.
type Message = message.Message

// ResultSummary is the summary carried by a result message.
type ResultSummary = message.Result

// StreamingMessage is a user turn written in streaming mode.
type StreamingMessage = message.StreamingMessage

// StreamingMessageContent is the content of a StreamingMessage.
type StreamingMessageContent = message.StreamingMessageContent

// ContentBlock is one block of a user or assistant message; see Message.Content.
type ContentBlock = message.ContentBlock

// Content block types.
type (
	TextBlock       = message.TextBlock
	ThinkingBlock   = message.ThinkingBlock
	ToolUseBlock    = message.ToolUseBlock
	ToolResultBlock = message.ToolResultBlock
)

// Content block type names.
const (
	BlockTypeText       = message.BlockTypeText
	BlockTypeThinking   = message.BlockTypeThinking
	BlockTypeToolUse    = message.BlockTypeToolUse
	BlockTypeToolResult = message.BlockTypeToolResult
)

// Message types.
const (
	MessageTypeUser        = message.TypeUser
	MessageTypeAssistant   = message.TypeAssistant
	MessageTypeSystem      = message.TypeSystem
	MessageTypeResult      = message.TypeResult
	MessageTypeStreamEvent = message.TypeStreamEvent
)

// ===== Permissions =====

// PermissionMode names a permission handling mode.
type PermissionMode = permission.Mode

const (
	PermissionModeDefault           = permission.ModeDefault
	PermissionModeAcceptEdits       = permission.ModeAcceptEdits
	PermissionModePlan              = permission.ModePlan
	PermissionModeBypassPermissions = permission.ModeBypassPermissions
)

// CanUseToolFunc decides whether a tool may run.
type CanUseToolFunc = permission.Callback

// PermissionContext carries suggestions and the blocked path, if any.
type PermissionContext = permission.Context

// PermissionResult is *PermissionResultAllow or *PermissionResultDeny.
type PermissionResult = permission.Result

// PermissionResultAllow allows the tool, optionally with replaced input.
type PermissionResultAllow = permission.ResultAllow

// PermissionResultDeny denies the tool, optionally interrupting the turn.
type PermissionResultDeny = permission.ResultDeny

// PermissionUpdate is a permission change suggested by the peer or applied
// with an allow decision.
type PermissionUpdate = permission.Update

// PermissionUpdateType names the kind of a PermissionUpdate.
type PermissionUpdateType = permission.UpdateType

// PermissionRuleValue is one rule inside a PermissionUpdate.
type PermissionRuleValue = permission.RuleValue

// PermissionBehavior is the behavior attached to rules.
type PermissionBehavior = permission.Behavior

// PermissionUpdateDestination names where a PermissionUpdate is stored.
type PermissionUpdateDestination = permission.UpdateDestination

const (
	PermissionUpdateTypeAddRules          = permission.UpdateTypeAddRules
	PermissionUpdateTypeReplaceRules      = permission.UpdateTypeReplaceRules
	PermissionUpdateTypeRemoveRules       = permission.UpdateTypeRemoveRules
	PermissionUpdateTypeSetMode           = permission.UpdateTypeSetMode
	PermissionUpdateTypeAddDirectories    = permission.UpdateTypeAddDirectories
	PermissionUpdateTypeRemoveDirectories = permission.UpdateTypeRemoveDirectories

	PermissionBehaviorAllow = permission.BehaviorAllow
	PermissionBehaviorDeny  = permission.BehaviorDeny
	PermissionBehaviorAsk   = permission.BehaviorAsk

	PermissionUpdateDestUserSettings    = permission.UpdateDestUserSettings
	PermissionUpdateDestProjectSettings = permission.UpdateDestProjectSettings
	PermissionUpdateDestLocalSettings   = permission.UpdateDestLocalSettings
	PermissionUpdateDestSession         = permission.UpdateDestSession
)

// ===== Hooks =====

// HookEvent names a hook event.
type HookEvent = hook.Event

const (
	HookEventPreToolUse       = hook.EventPreToolUse
	HookEventPostToolUse      = hook.EventPostToolUse
	HookEventUserPromptSubmit = hook.EventUserPromptSubmit
	HookEventStop             = hook.EventStop
	HookEventSubagentStop     = hook.EventSubagentStop
	HookEventPreCompact       = hook.EventPreCompact
	HookEventNotification     = hook.EventNotification
)

// HookCallback is invoked for hook_callback control requests.
type HookCallback = hook.Callback

// HookContext identifies the callback being invoked.
type HookContext = hook.Context

// HookMatcher binds callbacks to a tool pattern.
type HookMatcher = hook.Matcher

// HookInput is the typed input passed to a HookCallback.
type HookInput = hook.Input

// Hook input types.
type (
	BaseHookInput             = hook.BaseInput
	PreToolUseHookInput       = hook.PreToolUseInput
	PostToolUseHookInput      = hook.PostToolUseInput
	UserPromptSubmitHookInput = hook.UserPromptSubmitInput
	StopHookInput             = hook.StopInput
	SubagentStopHookInput     = hook.SubagentStopInput
	PreCompactHookInput       = hook.PreCompactInput
	NotificationHookInput     = hook.NotificationInput
	GenericHookInput          = hook.GenericInput
)

// HookJSONOutput is a hook result: *SyncHookJSONOutput, *AsyncHookJSONOutput or nil.
type HookJSONOutput = hook.JSONOutput

// Hook output types.
type (
	SyncHookJSONOutput                 = hook.SyncOutput
	AsyncHookJSONOutput                = hook.AsyncOutput
	HookSpecificOutput                 = hook.SpecificOutput
	PreToolUseHookSpecificOutput       = hook.PreToolUseSpecificOutput
	PostToolUseHookSpecificOutput      = hook.PostToolUseSpecificOutput
	UserPromptSubmitHookSpecificOutput = hook.UserPromptSubmitSpecificOutput
)
