package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wagiedev/claude-control-go/internal/framing"
	"github.com/wagiedev/claude-control-go/internal/hook"
	"github.com/wagiedev/claude-control-go/internal/mcp"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

const (
	// DefaultControlTimeout bounds how long an outbound control request waits
	// for its response.
	DefaultControlTimeout = 60 * time.Second

	// DefaultEntrypoint is the CLAUDE_CODE_ENTRYPOINT value used when
	// Options.Entrypoint is empty.
	DefaultEntrypoint = "sdk-go"
)

// Options configures a control session.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// SystemPrompt is the system message passed to the CLI.
	SystemPrompt string

	// Model specifies which model the CLI should use.
	Model string

	// PermissionMode controls how permissions are handled.
	// Valid values: "acceptEdits", "bypassPermissions", "default", "dontAsk", "plan".
	// Legacy aliases "acceptAll" and "prompt" are normalized.
	PermissionMode string

	// MaxTurns limits the number of conversation turns. Zero means no limit.
	MaxTurns int

	// Cwd sets the working directory for the CLI process.
	Cwd string

	// CliPath is the explicit path to the claude CLI binary.
	// If empty, the CLI is searched in PATH and common install directories.
	CliPath string

	// Env provides additional environment variables for the CLI process.
	Env map[string]string

	// Entrypoint is exported to the CLI as CLAUDE_CODE_ENTRYPOINT.
	// If empty, DefaultEntrypoint is used. The value is set on the child
	// process only; the parent environment is never modified.
	Entrypoint string

	// Resume is a session ID to resume from.
	Resume string

	// ContinueConversation continues the most recent conversation.
	ContinueConversation bool

	// AllowedTools is a list of tools that skip permission prompts.
	AllowedTools []string

	// DisallowedTools is a list of tools that are explicitly blocked.
	DisallowedTools []string

	// PermissionPromptToolName names the tool the CLI uses for permission
	// prompts. Set to "stdio" automatically when CanUseTool is configured.
	PermissionPromptToolName string

	// ExtraArgs provides arbitrary CLI flags.
	// If the value is nil, the flag is passed without a value.
	ExtraArgs map[string]*string

	// Hooks configures event hooks answered over the control channel.
	Hooks map[hook.Event][]*hook.Matcher

	// CanUseTool is consulted for every can_use_tool control request.
	// If nil, such requests are answered with an error reply.
	CanUseTool permission.Callback

	// MCPServers configures MCP servers. SDK servers are served in-process
	// through mcp_message control requests.
	MCPServers map[string]mcp.ServerConfig

	// MaxBufferSize bounds a single logical frame read from the CLI.
	// Zero selects framing.DefaultMaxBufferSize.
	MaxBufferSize int

	// Framing selects how output lines are assembled into frames.
	Framing framing.Policy

	// ControlTimeout bounds outbound control requests.
	// Zero selects DefaultControlTimeout.
	ControlTimeout time.Duration

	// InitializeTimeout bounds the initialize handshake.
	// If nil, CLAUDE_CODE_STREAM_CLOSE_TIMEOUT (seconds) is consulted,
	// falling back to DefaultControlTimeout.
	InitializeTimeout *time.Duration

	// Stderr receives each line the CLI writes to stderr.
	Stderr func(string)

	// Transport allows injecting a custom transport implementation.
	// If nil, a CLI subprocess transport is created.
	Transport Transport `json:"-"`
}

// EffectiveControlTimeout returns ControlTimeout or its default.
func (o *Options) EffectiveControlTimeout() time.Duration {
	if o == nil || o.ControlTimeout <= 0 {
		return DefaultControlTimeout
	}

	return o.ControlTimeout
}

// EffectiveEntrypoint returns Entrypoint or its default.
func (o *Options) EffectiveEntrypoint() string {
	if o == nil || o.Entrypoint == "" {
		return DefaultEntrypoint
	}

	return o.Entrypoint
}

// HasCallbacks reports whether the options register anything that must be
// answered over the control channel, which requires streaming mode.
func (o *Options) HasCallbacks() bool {
	if o == nil {
		return false
	}

	if o.CanUseTool != nil || len(o.Hooks) > 0 {
		return true
	}

	for _, server := range o.MCPServers {
		if server.GetType() == mcp.ServerTypeSDK {
			return true
		}
	}

	return false
}

// Validate rejects option combinations that cannot be served. A permission
// callback is answered over the control channel, so it conflicts with any
// prompt tool other than "stdio".
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}

	if o.CanUseTool != nil && o.PermissionPromptToolName != "" && o.PermissionPromptToolName != "stdio" {
		return fmt.Errorf(
			"can_use_tool callback cannot be used with permission_prompt_tool_name %q",
			o.PermissionPromptToolName,
		)
	}

	if o.MaxBufferSize < 0 {
		return fmt.Errorf("max buffer size must not be negative: %d", o.MaxBufferSize)
	}

	return nil
}
