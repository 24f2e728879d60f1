package claudectl

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/claude-control-go/internal/mcp"
)

// MCP protocol types used by in-process tools.
type (
	// CallToolRequest is passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest
	// CallToolResult is returned by tool handlers.
	CallToolResult = mcp.CallToolResult
	// McpContent is one content block of a result.
	McpContent = mcp.Content
	// McpTextContent is a text content block.
	McpTextContent = mcp.TextContent
	// McpTool is a tool definition.
	McpTool = mcp.Tool
	// McpToolAnnotations carries hints such as ReadOnlyHint and DestructiveHint.
	McpToolAnnotations = mcp.ToolAnnotations
	// Schema is a JSON Schema for tool input.
	Schema = jsonschema.Schema
)

// SdkMcpToolHandler runs a tool call. Tool-level failures belong in the
// result (see ErrorResult); a returned error means the tool could not run.
type SdkMcpToolHandler = mcp.ToolHandler

// SdkMcpToolOption configures an SdkMcpTool.
type SdkMcpToolOption func(*SdkMcpTool)

// WithAnnotations attaches MCP tool annotations.
func WithAnnotations(annotations *McpToolAnnotations) SdkMcpToolOption {
	return func(t *SdkMcpTool) {
		t.ToolAnnotations = annotations
	}
}

// SdkMcpTool is a tool served by CreateSdkMcpServer.
type SdkMcpTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      *jsonschema.Schema
	ToolHandler     SdkMcpToolHandler
	ToolAnnotations *mcp.ToolAnnotations
}

// NewSdkMcpTool creates a tool definition.
//
//	echo := claudectl.NewSdkMcpTool("echo", "Echo the input",
//	    claudectl.SimpleSchema(map[string]string{"text": "string"}),
//	    func(ctx context.Context, req *claudectl.CallToolRequest) (*claudectl.CallToolResult, error) {
//	        args, err := claudectl.ParseArguments(req)
//	        if err != nil {
//	            return claudectl.ErrorResult(err.Error()), nil
//	        }
//	        return claudectl.TextResult(args["text"].(string)), nil
//	    },
//	    claudectl.WithAnnotations(&claudectl.McpToolAnnotations{ReadOnlyHint: true}),
//	)
func NewSdkMcpTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler SdkMcpToolHandler,
	opts ...SdkMcpToolOption,
) *SdkMcpTool {
	t := &SdkMcpTool{
		ToolName:        name,
		ToolDescription: description,
		ToolSchema:      inputSchema,
		ToolHandler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SimpleSchema builds an object schema from property types, all required.
//
// Go integer and float names map to "integer" and "number", "bool" to
// "boolean", "[]T" to an array of T, and "any" or "object" to "object".
// Anything else is a string.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult returns a result with one text block.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult returns a result flagged as a tool error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ParseArguments decodes the request arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}

// NewMcpTool creates an mcp.Tool for use with the MCP SDK directly.
func NewMcpTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return internalmcp.NewTool(name, description, inputSchema)
}
