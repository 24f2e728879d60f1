package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// JSON-RPC error codes used in MCP responses.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// protocolVersion is reported in initialize responses.
const protocolVersion = "2024-11-05"

// Router dispatches mcp_message payloads to in-process servers.
type Router struct {
	log     *slog.Logger
	mu      sync.RWMutex
	servers map[string]ServerInstance
}

// NewRouter creates a router over servers keyed by configured name.
func NewRouter(log *slog.Logger, servers map[string]ServerInstance) *Router {
	r := &Router{
		log:     log.With("component", "mcp_router"),
		servers: make(map[string]ServerInstance, len(servers)),
	}

	for name, server := range servers {
		r.servers[name] = server
	}

	return r
}

// Register adds or replaces a server.
func (r *Router) Register(name string, server ServerInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers[name] = server
}

// Len returns the number of registered servers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.servers)
}

// Handle answers one mcp_message request. The returned body has the shape
// {"mcp_response": <json-rpc message>}. JSON-RPC level failures are encoded
// in the response; the error return is reserved for malformed requests.
func (r *Router) Handle(ctx context.Context, serverName string, message map[string]any) (map[string]any, error) {
	if message == nil {
		return nil, fmt.Errorf("mcp_message for %q has no message", serverName)
	}

	method, _ := message["method"].(string)
	params, _ := message["params"].(map[string]any)
	id := normalizeID(message["id"])

	r.log.Debug("Routing MCP message", "server", serverName, "method", method)

	r.mu.RLock()
	server, ok := r.servers[serverName]
	r.mu.RUnlock()

	if !ok {
		return rpcError(id, codeInvalidRequest, "MCP server not found: "+serverName), nil
	}

	switch method {
	case "initialize":
		return rpcResult(id, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    server.Name(),
				"version": server.Version(),
			},
		}), nil

	case "notifications/initialized":
		return rpcResult(id, map[string]any{}), nil

	case "tools/list":
		return rpcResult(id, map[string]any{"tools": server.ListTools()}), nil

	case "tools/call":
		name, _ := params["name"].(string)
		if name == "" {
			return rpcError(id, codeInvalidParams, "Missing tool name in params"), nil
		}

		arguments, _ := params["arguments"].(map[string]any)

		result, err := server.CallTool(ctx, name, arguments)
		if err != nil {
			r.log.Warn("MCP tool call failed", "server", serverName, "tool", name, "error", err)

			return rpcError(id, codeInternalError, err.Error()), nil
		}

		return rpcResult(id, result), nil

	default:
		return rpcError(id, codeMethodNotFound, "Method not found: "+method), nil
	}
}

// normalizeID keeps integral ids integral after JSON decoding.
func normalizeID(id any) any {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}

	return id
}

func rpcResult(id any, result map[string]any) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"result":  result,
		},
	}
}

func rpcError(id any, code int, message string) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
	}
}
