package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Compile-time verification that SDKServer implements ServerInstance.
var _ ServerInstance = (*SDKServer)(nil)

// SDKServer is a tool registry answered over the control channel. Tools
// and handlers use the official MCP SDK types so they can be shared with
// servers that run over a real MCP transport.
type SDKServer struct {
	name    string
	version string
	mu      sync.RWMutex
	tools   map[string]registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewSDKServer creates an empty server.
func NewSDKServer(name, version string) *SDKServer {
	return &SDKServer{
		name:    name,
		version: version,
		tools:   make(map[string]registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *SDKServer) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = registeredTool{tool: tool, handler: handler}
}

// Name returns the server name.
func (s *SDKServer) Name() string { return s.name }

// Version returns the server version.
func (s *SDKServer) Version() string { return s.version }

// ToolNames returns the registered tool names in sorted order.
func (s *SDKServer) ToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.tools))
}

// ListTools returns tool metadata ordered by name.
func (s *SDKServer) ListTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := slices.Sorted(maps.Keys(s.tools))

	result := make([]map[string]any, 0, len(names))

	for _, name := range names {
		t := s.tools[name]
		entry := map[string]any{
			"name":        t.tool.Name,
			"description": t.tool.Description,
		}

		if schema, ok := toMap(t.tool.InputSchema); ok {
			entry["inputSchema"] = schema
		} else {
			entry["inputSchema"] = map[string]any{"type": "object"}
		}

		if t.tool.Annotations != nil {
			if annotations, ok := toMap(t.tool.Annotations); ok {
				entry["annotations"] = annotations
			}
		}

		result = append(result, entry)
	}

	return result
}

// CallTool runs a registered tool.
func (s *SDKServer) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return errorContent("Tool not found: " + name), nil
	}

	args, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode arguments for %s: %w", name, err)
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	})
	if err != nil {
		return errorContent("Tool execution failed: " + err.Error()), nil
	}

	return encodeResult(result), nil
}

func errorContent(text string) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": true,
	}
}

// encodeResult renders a CallToolResult in its JSON-RPC form.
func encodeResult(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{"type": "text", "text": v.Text})
		case *mcp.ImageContent:
			content = append(content, map[string]any{"type": "image", "data": v.Data, "mimeType": v.MIMEType})
		case *mcp.AudioContent:
			content = append(content, map[string]any{"type": "audio", "data": v.Data, "mimeType": v.MIMEType})
		case *mcp.ResourceLink:
			content = append(content, map[string]any{"type": "resource_link", "uri": v.URI, "name": v.Name})
		case *mcp.EmbeddedResource:
			if v.Resource != nil {
				content = append(content, map[string]any{
					"type": "resource",
					"resource": map[string]any{
						"uri":      v.Resource.URI,
						"mimeType": v.Resource.MIMEType,
						"text":     v.Resource.Text,
					},
				})
			}
		}
	}

	encoded := map[string]any{"content": content}

	if result.IsError {
		encoded["isError"] = true
	}

	if result.StructuredContent != nil {
		encoded["structuredContent"] = result.StructuredContent
	}

	return encoded
}

func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}

	return m, true
}

// SimpleSchema builds an object schema whose properties are all required.
//
// Input format: {"a": "float64", "b": "string", "tags": "[]string"}.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = schemaFor(goType)
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func schemaFor(goType string) *jsonschema.Schema {
	if item, ok := strings.CutPrefix(goType, "[]"); ok && item != "" {
		return &jsonschema.Schema{Type: "array", Items: schemaFor(item)}
	}

	switch goType {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// NewTool creates an mcp.Tool.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// ErrorResult creates a CallToolResult flagged as an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: message}}, IsError: true}
}

// ParseArguments decodes CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}

	return args, nil
}
