package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// ServerType represents the type of MCP server.
type ServerType string

const (
	// ServerTypeStdio uses stdio for communication.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeSSE uses Server-Sent Events.
	ServerTypeSSE ServerType = "sse"
	// ServerTypeHTTP uses HTTP for communication.
	ServerTypeHTTP ServerType = "http"
	// ServerTypeSDK is served in-process over the control channel.
	ServerTypeSDK ServerType = "sdk"
)

// ServerConfig is the interface for MCP server configurations.
type ServerConfig interface {
	GetType() ServerType
}

// Compile-time verification that all MCP server config types implement ServerConfig.
var (
	_ ServerConfig = (*StdioServerConfig)(nil)
	_ ServerConfig = (*SSEServerConfig)(nil)
	_ ServerConfig = (*HTTPServerConfig)(nil)
	_ ServerConfig = (*SdkServerConfig)(nil)
)

// StdioServerConfig configures a stdio-based MCP server launched by the CLI.
type StdioServerConfig struct {
	Type    *ServerType       `json:"type,omitempty"` // Optional for backwards compatibility
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// GetType implements ServerConfig.
func (m *StdioServerConfig) GetType() ServerType {
	if m.Type != nil {
		return *m.Type
	}

	return ServerTypeStdio
}

// SSEServerConfig configures a Server-Sent Events MCP server.
type SSEServerConfig struct {
	Type    ServerType        `json:"type"` // "sse"
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (m *SSEServerConfig) GetType() ServerType { return m.Type }

// HTTPServerConfig configures an HTTP-based MCP server.
type HTTPServerConfig struct {
	Type    ServerType        `json:"type"` // "http"
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (m *HTTPServerConfig) GetType() ServerType { return m.Type }

// ServerInstance is implemented by servers answered in-process.
type ServerInstance interface {
	Name() string
	Version() string
	// ListTools returns the tools/list entries.
	ListTools() []map[string]any
	// CallTool executes a tool. Tool failures are reported inside the
	// result; the error is reserved for failures to run the tool at all.
	CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// SdkServerConfig configures an in-process MCP server.
type SdkServerConfig struct {
	Name     string         `json:"name"`
	Instance ServerInstance `json:"-"`
}

// GetType implements ServerConfig.
func (m *SdkServerConfig) GetType() ServerType { return ServerTypeSDK }

// MarshalJSON writes the form the CLI expects for SDK servers.
func (m *SdkServerConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"type": string(ServerTypeSDK), "name": m.Name})
}

// EncodeServers renders servers as the JSON document passed with --mcp-config.
func EncodeServers(servers map[string]ServerConfig) (string, error) {
	doc := map[string]any{"mcpServers": maps.Clone(servers)}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode mcp servers: %w", err)
	}

	return string(raw), nil
}

// SDKInstances returns the in-process servers keyed by configured name.
func SDKInstances(servers map[string]ServerConfig) map[string]ServerInstance {
	instances := make(map[string]ServerInstance, len(servers))

	for name, cfg := range servers {
		if sdk, ok := cfg.(*SdkServerConfig); ok && sdk.Instance != nil {
			instances[name] = sdk.Instance
		}
	}

	return instances
}
