package claudectl

import (
	internalmcp "github.com/wagiedev/claude-control-go/internal/mcp"
)

// MCP server configuration types.
type (
	// MCPServerConfig is implemented by every server configuration.
	MCPServerConfig = internalmcp.ServerConfig
	// MCPServerType names how a server is reached.
	MCPServerType = internalmcp.ServerType
	// MCPStdioServerConfig configures a server launched by the CLI.
	MCPStdioServerConfig = internalmcp.StdioServerConfig
	// MCPSSEServerConfig configures a Server-Sent Events server.
	MCPSSEServerConfig = internalmcp.SSEServerConfig
	// MCPHTTPServerConfig configures an HTTP server.
	MCPHTTPServerConfig = internalmcp.HTTPServerConfig
	// MCPSdkServerConfig configures a server answered in-process over the
	// control channel.
	MCPSdkServerConfig = internalmcp.SdkServerConfig
	// MCPServerInstance is implemented by in-process servers.
	MCPServerInstance = internalmcp.ServerInstance
)

const (
	MCPServerTypeStdio = internalmcp.ServerTypeStdio
	MCPServerTypeSSE   = internalmcp.ServerTypeSSE
	MCPServerTypeHTTP  = internalmcp.ServerTypeHTTP
	MCPServerTypeSDK   = internalmcp.ServerTypeSDK
)

// MCPToolName returns the name the CLI uses for a tool of an MCP server,
// suitable for WithAllowedTools.
func MCPToolName(server, tool string) string {
	return "mcp__" + server + "__" + tool
}

// CreateSdkMcpServer creates an in-process MCP server configuration.
//
// Its tools are listed and called through mcp_message control requests, so
// the server needs no process or socket of its own:
//
//	addTool := claudectl.NewSdkMcpTool("add", "Add two numbers",
//	    claudectl.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, req *claudectl.CallToolRequest) (*claudectl.CallToolResult, error) {
//	        args, _ := claudectl.ParseArguments(req)
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return claudectl.TextResult(fmt.Sprintf("Result: %v", a+b)), nil
//	    },
//	)
//
//	calculator := claudectl.CreateSdkMcpServer("calculator", "1.0.0", addTool)
//	client.Start(ctx, claudectl.WithSDKMCPServer(calculator))
//
// The name is the key under which the CLI addresses the server; tool names
// become mcp__<name>__<tool>.
func CreateSdkMcpServer(name, version string, tools ...*SdkMcpTool) *MCPSdkServerConfig {
	server := internalmcp.NewSDKServer(name, version)

	for _, tool := range tools {
		mcpTool := internalmcp.NewTool(tool.ToolName, tool.ToolDescription, tool.ToolSchema)
		mcpTool.Annotations = tool.ToolAnnotations
		server.AddTool(mcpTool, tool.ToolHandler)
	}

	return &MCPSdkServerConfig{
		Name:     name,
		Instance: server,
	}
}
