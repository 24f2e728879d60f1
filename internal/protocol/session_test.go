package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/hook"
	"github.com/wagiedev/claude-control-go/internal/mcp"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

func noopHook(name string, calls chan<- string) hook.Callback {
	return func(context.Context, hook.Input, *string, *hook.Context) (hook.JSONOutput, error) {
		calls <- name

		return nil, nil
	}
}

// startSession wires a session over a started controller.
func startSession(t *testing.T, opts *config.Options) (*Session, *Controller, *mockTransport) {
	t.Helper()

	controller, transport := startController(t, true)
	session := NewSession(discardLogger(), controller, opts)
	session.RegisterHandlers()

	return session, controller, transport
}

func TestSession_NeedsInitialization(t *testing.T) {
	tests := []struct {
		name string
		opts *config.Options
		want bool
	}{
		{name: "nil options", opts: nil, want: false},
		{name: "empty", opts: &config.Options{}, want: false},
		{
			name: "permission callback",
			opts: &config.Options{CanUseTool: func(
				context.Context, string, map[string]any, *permission.Context,
			) (permission.Result, error) {
				return &permission.ResultAllow{}, nil
			}},
			want: true,
		},
		{
			name: "hooks",
			opts: &config.Options{Hooks: map[hook.Event][]*hook.Matcher{
				hook.EventStop: {{Hooks: []hook.Callback{noopHook("stop", nil)}}},
			}},
			want: true,
		},
		{
			name: "sdk mcp server",
			opts: &config.Options{MCPServers: map[string]mcp.ServerConfig{
				"calc": &mcp.SdkServerConfig{Name: "calc", Instance: mcp.NewSDKServer("calc", "1.0.0")},
			}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession(discardLogger(), NewController(discardLogger(), newMockTransport(), true, 0), tt.opts)
			require.Equal(t, tt.want, session.NeedsInitialization())
		})
	}
}

func TestSession_InitializeRegistersHooks(t *testing.T) {
	calls := make(chan string, 4)
	bash := "Bash"
	timeout := 5.0

	session, controller, transport := startSession(t, &config.Options{
		Hooks: map[hook.Event][]*hook.Matcher{
			hook.EventStop: {
				{Hooks: []hook.Callback{noopHook("stop", calls)}},
			},
			hook.EventPreToolUse: {
				{Matcher: &bash, Timeout: &timeout, Hooks: []hook.Callback{noopHook("pre-a", calls), noopHook("pre-b", calls)}},
			},
		},
	})

	errCh := make(chan error, 1)

	go func() {
		errCh <- session.Initialize(context.Background())
	}()

	request := transport.nextSentJSON(t)
	require.Equal(t, map[string]any{
		"subtype": "initialize",
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"matcher": "Bash", "hookCallbackIds": []any{"hook_0", "hook_1"}, "timeout": 5.0},
			},
			"Stop": []any{
				map[string]any{"matcher": nil, "hookCallbackIds": []any{"hook_2"}},
			},
		},
	}, request["request"])

	require.Nil(t, session.InitializationResult())

	transport.inject(successResponse(request["request_id"].(string), map[string]any{
		"commands": []any{"/compact"},
	}))
	require.NoError(t, <-errCh)

	result := session.InitializationResult()
	require.Equal(t, map[string]any{"commands": []any{"/compact"}}, result)

	// Mutating the copy leaves the stored result alone.
	result["commands"] = nil
	require.Equal(t, []any{"/compact"}, session.InitializationResult()["commands"])

	// The generated ids route back to the right callbacks.
	transport.inject(controlRequest("cb1", map[string]any{
		"subtype":     "hook_callback",
		"callback_id": "hook_1",
		"input":       map[string]any{"hook_event_name": "PreToolUse", "tool_name": "Bash"},
	}))

	reply := transport.nextSentJSON(t)
	require.Equal(t, map[string]any{"continue": true}, reply["response"].(map[string]any)["response"])
	require.Equal(t, "pre-b", <-calls)

	// An inbound initialize sees the same hooks configuration.
	transport.inject(controlRequest("init-in", map[string]any{"subtype": "initialize"}))

	reply = transport.nextSentJSON(t)
	payload := reply["response"].(map[string]any)["response"].(map[string]any)
	require.Contains(t, payload["hooks"], "PreToolUse")

	require.Zero(t, controller.PendingCount())
}

func TestSession_InitializeWithoutHooksSendsNull(t *testing.T) {
	session, _, transport := startSession(t, &config.Options{})

	errCh := make(chan error, 1)

	go func() {
		errCh <- session.Initialize(context.Background())
	}()

	request := transport.nextSentJSON(t)
	require.Equal(t, map[string]any{"subtype": "initialize", "hooks": nil}, request["request"])

	transport.inject(successResponse(request["request_id"].(string), nil))
	require.NoError(t, <-errCh)
	require.Nil(t, session.InitializationResult())
}

func TestSession_InitializeTimeout(t *testing.T) {
	explicit := 3 * time.Second

	t.Run("explicit option", func(t *testing.T) {
		t.Setenv(streamCloseTimeoutEnv, "90")

		session := NewSession(discardLogger(), nil, &config.Options{InitializeTimeout: &explicit})
		require.Equal(t, explicit, session.InitializeTimeout())
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(streamCloseTimeoutEnv, "90")

		session := NewSession(discardLogger(), nil, &config.Options{})
		require.Equal(t, 90*time.Second, session.InitializeTimeout())
	})

	t.Run("invalid environment", func(t *testing.T) {
		t.Setenv(streamCloseTimeoutEnv, "soon")

		session := NewSession(discardLogger(), nil, &config.Options{})
		require.Equal(t, config.DefaultControlTimeout, session.InitializeTimeout())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(streamCloseTimeoutEnv, "")

		session := NewSession(discardLogger(), nil, nil)
		require.Equal(t, config.DefaultControlTimeout, session.InitializeTimeout())
	})
}

func TestSession_InitializeTimesOut(t *testing.T) {
	short := 20 * time.Millisecond

	session, controller, _ := startSession(t, &config.Options{InitializeTimeout: &short})

	err := session.Initialize(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "initialize")
	require.Zero(t, controller.PendingCount())
}

func TestSession_RoutesMCPMessages(t *testing.T) {
	server := mcp.NewSDKServer("calc", "1.2.0")
	server.AddTool(
		mcp.NewTool("echo", "echoes text", mcp.SimpleSchema(map[string]string{"text": "string"})),
		func(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args, err := mcp.ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return mcp.TextResult(text), nil
		},
	)

	session, _, transport := startSession(t, &config.Options{
		MCPServers: map[string]mcp.ServerConfig{
			"calc":   &mcp.SdkServerConfig{Name: "calc", Instance: server},
			"remote": &mcp.StdioServerConfig{Command: "remote-mcp"},
		},
	})

	require.Equal(t, 1, session.SDKMCPServerCount())

	transport.inject(controlRequest("m1", map[string]any{
		"subtype":     "mcp_message",
		"server_name": "calc",
		"message": map[string]any{
			"jsonrpc": "2.0",
			"id":      7.0,
			"method":  "tools/call",
			"params":  map[string]any{"name": "echo", "arguments": map[string]any{"text": "hi"}},
		},
	}))

	reply := transport.nextSentJSON(t)
	response := reply["response"].(map[string]any)
	require.Equal(t, "success", response["subtype"])
	require.Equal(t, map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      7.0,
			"result": map[string]any{
				"content": []any{map[string]any{"type": "text", "text": "hi"}},
			},
		},
	}, response["response"])

	transport.inject(controlRequest("m2", map[string]any{
		"subtype":     "mcp_message",
		"server_name": "remote",
		"message":     map[string]any{"jsonrpc": "2.0", "id": 8.0, "method": "tools/list"},
	}))

	reply = transport.nextSentJSON(t)
	rpc := reply["response"].(map[string]any)["response"].(map[string]any)["mcp_response"].(map[string]any)
	require.Equal(t, map[string]any{"code": -32600.0, "message": "MCP server not found: remote"}, rpc["error"])
}

func TestSession_PermissionCallbackWired(t *testing.T) {
	_, _, transport := startSession(t, &config.Options{
		CanUseTool: func(context.Context, string, map[string]any, *permission.Context) (permission.Result, error) {
			return &permission.ResultDeny{Message: "read only", Interrupt: true}, nil
		},
	})

	transport.inject(controlRequest("p1", map[string]any{
		"subtype":   "can_use_tool",
		"tool_name": "Write",
		"input":     map[string]any{"path": "/tmp/x"},
	}))

	require.JSONEq(t,
		`{"type":"control_response","response":{"subtype":"success","request_id":"p1","response":{"allow":false,"reason":"read only","interrupt":true}}}`,
		string(transport.nextSent(t)))
}

func TestSession_InitializationResult_ConcurrentReadWrite(t *testing.T) {
	// Run with: go test -race -run TestSession_InitializationResult_ConcurrentReadWrite.
	session := NewSession(discardLogger(), nil, nil)

	const (
		readers    = 10
		iterations = 1000
	)

	var wg sync.WaitGroup

	wg.Go(func() {
		for i := range iterations {
			session.initMu.Lock()
			session.initializationResult = map[string]any{"version": "1.0.0", "count": i}
			session.initMu.Unlock()
		}
	})

	for range readers {
		wg.Go(func() {
			for range iterations {
				if result := session.InitializationResult(); result != nil {
					_ = result["version"]
				}
			}
		})
	}

	wg.Wait()
}
