package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/mcp"
)

// streamCloseTimeoutEnv overrides the initialize timeout, in seconds.
const streamCloseTimeoutEnv = "CLAUDE_CODE_STREAM_CLOSE_TIMEOUT"

// Session wires the caller's callbacks into a Controller and performs the
// initialize handshake. It is shared by the interactive client and Query.
type Session struct {
	log        *slog.Logger
	controller *Controller
	options    *config.Options
	router     *mcp.Router

	// Hook callback id allocation
	hooksMu        sync.Mutex
	nextCallbackID int

	// Server initialization result (protected by initMu)
	initMu               sync.RWMutex
	initializationResult map[string]any
}

// NewSession creates a Session over controller. SDK MCP servers found in
// options are registered with the session's router.
func NewSession(
	log *slog.Logger,
	controller *Controller,
	options *config.Options,
) *Session {
	if options == nil {
		options = &config.Options{}
	}

	return &Session{
		log:        log.With("component", "session"),
		controller: controller,
		options:    options,
		router:     mcp.NewRouter(log, mcp.SDKInstances(options.MCPServers)),
	}
}

// RegisterHandlers installs the permission callback and the mcp_message
// handler on the controller. It must be called before the controller reads
// its first frame.
func (s *Session) RegisterHandlers() {
	if s.options.CanUseTool != nil {
		s.controller.RegisterPermissionCallback(s.options.CanUseTool)
	}

	s.controller.RegisterHandler(SubtypeMCPMessage, s.handleMCPMessage)
}

// NeedsInitialization reports whether the session has callbacks the peer
// must learn about through initialize.
func (s *Session) NeedsInitialization() bool {
	return s.options.HasCallbacks()
}

// Initialize sends the initialize control request. Hook callbacks receive
// ids of the form hook_<n>, are registered with the controller and announced
// in the request's hooks object.
func (s *Session) Initialize(ctx context.Context) error {
	s.log.Debug("Sending initialize request")

	payload := map[string]any{"hooks": nil}
	if hooks := s.buildHooksConfig(); len(hooks) > 0 {
		payload["hooks"] = hooks
	}

	s.controller.SetInitPayload(payload)

	resp, err := s.controller.SendRequest(ctx, SubtypeInitialize, payload, s.InitializeTimeout())
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	s.initMu.Lock()
	s.initializationResult = resp.Payload()
	s.initMu.Unlock()

	s.log.Info("Session initialized", "sdk_mcp_servers", s.router.Len())

	return nil
}

// buildHooksConfig assigns callback ids and returns the wire form:
//
//	{"PreToolUse": [{"matcher": "Bash", "hookCallbackIds": ["hook_0"], "timeout": 5}]}
//
// Events are visited in sorted order so ids are stable across runs.
func (s *Session) buildHooksConfig() map[string]any {
	if len(s.options.Hooks) == 0 {
		return nil
	}

	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()

	hooksConfig := make(map[string]any, len(s.options.Hooks))

	for _, event := range slices.Sorted(maps.Keys(s.options.Hooks)) {
		matchers := s.options.Hooks[event]
		eventMatchers := make([]map[string]any, 0, len(matchers))

		for _, m := range matchers {
			if m == nil {
				continue
			}

			callbackIDs := make([]string, 0, len(m.Hooks))

			for _, fn := range m.Hooks {
				id := fmt.Sprintf("hook_%d", s.nextCallbackID)
				s.nextCallbackID++
				s.controller.RegisterHookCallback(id, fn)
				callbackIDs = append(callbackIDs, id)
			}

			matcherConfig := map[string]any{
				"matcher":         m.Matcher,
				"hookCallbackIds": callbackIDs,
			}

			if m.Timeout != nil {
				matcherConfig["timeout"] = *m.Timeout
			}

			eventMatchers = append(eventMatchers, matcherConfig)
		}

		if len(eventMatchers) > 0 {
			hooksConfig[string(event)] = eventMatchers
		}
	}

	return hooksConfig
}

// InitializeTimeout returns the initialize timeout from options, the
// environment, or the default control timeout.
func (s *Session) InitializeTimeout() time.Duration {
	if s.options.InitializeTimeout != nil && *s.options.InitializeTimeout > 0 {
		return *s.options.InitializeTimeout
	}

	return StreamCloseTimeout()
}

// StreamCloseTimeout returns CLAUDE_CODE_STREAM_CLOSE_TIMEOUT in seconds, or
// the default control timeout when it is unset or invalid.
func StreamCloseTimeout() time.Duration {
	if raw := os.Getenv(streamCloseTimeoutEnv); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return config.DefaultControlTimeout
}

// InitializationResult returns a copy of the peer's initialize response, or
// nil before Initialize succeeded.
func (s *Session) InitializationResult() map[string]any {
	s.initMu.RLock()
	defer s.initMu.RUnlock()

	if s.initializationResult == nil {
		return nil
	}

	return maps.Clone(s.initializationResult)
}

// SDKMCPServerCount returns the number of in-process MCP servers.
func (s *Session) SDKMCPServerCount() int {
	return s.router.Len()
}

func (s *Session) handleMCPMessage(ctx context.Context, req InboundRequest) (map[string]any, error) {
	msg, ok := req.(*MCPMessageRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T for %s", req, SubtypeMCPMessage)
	}

	return s.router.Handle(ctx, msg.ServerName, msg.Message)
}
