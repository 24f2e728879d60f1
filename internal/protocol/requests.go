package protocol

import (
	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

// Inbound control request subtypes.
const (
	SubtypeCanUseTool        = "can_use_tool"
	SubtypeInitialize        = "initialize"
	SubtypeInterrupt         = "interrupt"
	SubtypeSetPermissionMode = "set_permission_mode"
	SubtypeHookCallback      = "hook_callback"
	SubtypeMCPMessage        = "mcp_message"
)

// InboundRequest is a decoded control request sent by the peer. The concrete
// type is one of *CanUseToolRequest, *InitializeRequest, *InterruptRequest,
// *SetPermissionModeRequest, *HookCallbackRequest, *MCPMessageRequest or
// *UnknownRequest.
type InboundRequest interface {
	Subtype() string
	isInboundRequest()
}

// Compile-time verification that every variant implements InboundRequest.
var (
	_ InboundRequest = (*CanUseToolRequest)(nil)
	_ InboundRequest = (*InitializeRequest)(nil)
	_ InboundRequest = (*InterruptRequest)(nil)
	_ InboundRequest = (*SetPermissionModeRequest)(nil)
	_ InboundRequest = (*HookCallbackRequest)(nil)
	_ InboundRequest = (*MCPMessageRequest)(nil)
	_ InboundRequest = (*UnknownRequest)(nil)
)

// CanUseToolRequest asks whether a tool may run.
type CanUseToolRequest struct {
	ToolName    string
	Input       map[string]any
	Suggestions []*permission.Update
	BlockedPath *string
}

// InitializeRequest asks for the session's initialization payload.
type InitializeRequest struct {
	Hooks map[string]any
}

// InterruptRequest asks the session to stop the current turn.
type InterruptRequest struct{}

// SetPermissionModeRequest announces a permission mode change.
type SetPermissionModeRequest struct {
	Mode string
}

// HookCallbackRequest invokes a hook registered at initialize.
type HookCallbackRequest struct {
	CallbackID string
	Input      map[string]any
	ToolUseID  *string
}

// MCPMessageRequest carries a JSON-RPC message for an in-process MCP server.
type MCPMessageRequest struct {
	ServerName string
	Message    map[string]any
}

// UnknownRequest is any subtype this package does not recognize.
type UnknownRequest struct {
	Name string
	Raw  map[string]any
}

func (*CanUseToolRequest) Subtype() string        { return SubtypeCanUseTool }
func (*InitializeRequest) Subtype() string        { return SubtypeInitialize }
func (*InterruptRequest) Subtype() string         { return SubtypeInterrupt }
func (*SetPermissionModeRequest) Subtype() string { return SubtypeSetPermissionMode }
func (*HookCallbackRequest) Subtype() string      { return SubtypeHookCallback }
func (*MCPMessageRequest) Subtype() string        { return SubtypeMCPMessage }
func (r *UnknownRequest) Subtype() string         { return r.Name }

func (*CanUseToolRequest) isInboundRequest()        {}
func (*InitializeRequest) isInboundRequest()        {}
func (*InterruptRequest) isInboundRequest()         {}
func (*SetPermissionModeRequest) isInboundRequest() {}
func (*HookCallbackRequest) isInboundRequest()      {}
func (*MCPMessageRequest) isInboundRequest()        {}
func (*UnknownRequest) isInboundRequest()           {}

// ParseInboundRequest decodes the "request" object of a control_request
// frame. Missing required fields are reported as *errors.ProtocolError.
func ParseInboundRequest(body map[string]any) (InboundRequest, error) {
	subtype, _ := body["subtype"].(string)
	if subtype == "" {
		return nil, errors.NewProtocolError("control request missing subtype")
	}

	switch subtype {
	case SubtypeCanUseTool:
		toolName, _ := body["tool_name"].(string)
		if toolName == "" {
			return nil, errors.NewProtocolError("%s request missing tool_name", subtype)
		}

		input, _ := body["input"].(map[string]any)
		if input == nil {
			input = map[string]any{}
		}

		req := &CanUseToolRequest{
			ToolName:    toolName,
			Input:       input,
			Suggestions: permission.ParseSuggestions(body["permission_suggestions"]),
		}

		if path, ok := body["blocked_path"].(string); ok && path != "" {
			req.BlockedPath = &path
		}

		return req, nil

	case SubtypeInitialize:
		hooks, _ := body["hooks"].(map[string]any)

		return &InitializeRequest{Hooks: hooks}, nil

	case SubtypeInterrupt:
		return &InterruptRequest{}, nil

	case SubtypeSetPermissionMode:
		mode, _ := body["mode"].(string)
		if mode == "" {
			return nil, errors.NewProtocolError("%s request missing mode", subtype)
		}

		return &SetPermissionModeRequest{Mode: mode}, nil

	case SubtypeHookCallback:
		callbackID, _ := body["callback_id"].(string)
		if callbackID == "" {
			return nil, errors.NewProtocolError("%s request missing callback_id", subtype)
		}

		input, _ := body["input"].(map[string]any)

		req := &HookCallbackRequest{CallbackID: callbackID, Input: input}
		if id, ok := body["tool_use_id"].(string); ok && id != "" {
			req.ToolUseID = &id
		}

		return req, nil

	case SubtypeMCPMessage:
		serverName, _ := body["server_name"].(string)
		message, _ := body["message"].(map[string]any)

		if serverName == "" || message == nil {
			return nil, errors.NewProtocolError("%s request missing server_name or message", subtype)
		}

		return &MCPMessageRequest{ServerName: serverName, Message: message}, nil

	default:
		return &UnknownRequest{Name: subtype, Raw: body}, nil
	}
}
