package claudectl

import (
	"log/slog"
	"time"

	internalmcp "github.com/wagiedev/claude-control-go/internal/mcp"
)

// Option configures Options using the functional options pattern.
// This is the option type for clients, queries and transports.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithSystemPrompt sets the system message passed to the CLI.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithModel specifies which model the CLI should use.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithPermissionMode controls how permissions are handled.
// Valid values: "default", "acceptEdits", "plan", "bypassPermissions", "dontAsk".
func WithPermissionMode(mode string) Option {
	return func(o *Options) {
		o.PermissionMode = mode
	}
}

// WithMaxTurns limits the number of conversation turns.
func WithMaxTurns(maxTurns int) Option {
	return func(o *Options) {
		o.MaxTurns = maxTurns
	}
}

// WithCwd sets the working directory for the CLI process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithCliPath sets the explicit path to the CLI executable.
// If not set, the CLI is searched in PATH and common install directories.
func WithCliPath(path string) Option {
	return func(o *Options) {
		o.CliPath = path
	}
}

// WithEnv provides additional environment variables for the CLI process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithEntrypoint sets the CLAUDE_CODE_ENTRYPOINT value exported to the CLI
// process. The parent environment is never modified.
func WithEntrypoint(entrypoint string) Option {
	return func(o *Options) {
		o.Entrypoint = entrypoint
	}
}

// ===== Session =====

// WithContinueConversation continues the most recent conversation.
func WithContinueConversation(cont bool) Option {
	return func(o *Options) {
		o.ContinueConversation = cont
	}
}

// WithResume resumes the session with the given ID.
func WithResume(sessionID string) Option {
	return func(o *Options) {
		o.Resume = sessionID
	}
}

// ===== Framing and Timeouts =====

// WithMaxBufferSize bounds a single logical frame read from the peer.
// Oversized frames are reported as decode errors and skipped.
func WithMaxBufferSize(size int) Option {
	return func(o *Options) {
		o.MaxBufferSize = size
	}
}

// WithFraming selects how output lines are assembled into frames.
func WithFraming(policy FramingPolicy) Option {
	return func(o *Options) {
		o.Framing = policy
	}
}

// WithControlTimeout bounds how long outbound control requests wait for
// their response.
func WithControlTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.ControlTimeout = timeout
	}
}

// WithInitializeTimeout bounds the initialize handshake.
func WithInitializeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.InitializeTimeout = &timeout
	}
}

// ===== Tools and Permissions =====

// WithAllowedTools lists tools that skip permission prompts.
func WithAllowedTools(tools ...string) Option {
	return func(o *Options) {
		o.AllowedTools = tools
	}
}

// WithDisallowedTools lists tools that are explicitly blocked.
func WithDisallowedTools(tools ...string) Option {
	return func(o *Options) {
		o.DisallowedTools = tools
	}
}

// WithCanUseTool sets the callback consulted for every permission request.
// It requires streaming mode; Query switches to it automatically.
func WithCanUseTool(callback CanUseToolFunc) Option {
	return func(o *Options) {
		o.CanUseTool = callback
	}
}

// WithPermissionPromptToolName names the tool the CLI uses for permission
// prompts. It cannot be combined with WithCanUseTool.
func WithPermissionPromptToolName(name string) Option {
	return func(o *Options) {
		o.PermissionPromptToolName = name
	}
}

// ===== Hooks =====

// WithHooks configures event hooks answered over the control channel.
func WithHooks(hooks map[HookEvent][]*HookMatcher) Option {
	return func(o *Options) {
		o.Hooks = hooks
	}
}

// ===== MCP =====

// WithMCPServers configures MCP servers. SDK servers are answered in-process.
func WithMCPServers(servers map[string]MCPServerConfig) Option {
	return func(o *Options) {
		o.MCPServers = servers
	}
}

// WithSDKMCPServer adds one in-process MCP server under its own name and
// allows all of its tools.
func WithSDKMCPServer(server *MCPSdkServerConfig) Option {
	return func(o *Options) {
		if server == nil {
			return
		}

		if o.MCPServers == nil {
			o.MCPServers = make(map[string]MCPServerConfig, 1)
		}

		o.MCPServers[server.Name] = server

		if sdk, ok := server.Instance.(*internalmcp.SDKServer); ok {
			for _, name := range sdk.ToolNames() {
				o.AllowedTools = append(o.AllowedTools, MCPToolName(server.Name, name))
			}
		}
	}
}

// ===== Process I/O =====

// WithExtraArgs provides arbitrary CLI flags. A nil value passes the flag
// without a value.
func WithExtraArgs(args map[string]*string) Option {
	return func(o *Options) {
		o.ExtraArgs = args
	}
}

// WithStderr sets a callback receiving each line the CLI writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithTransport injects a custom transport implementation.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}
