// Package mcp serves in-process Model Context Protocol servers over the
// control channel.
//
// The CLI reaches SDK servers through mcp_message control requests that carry
// a JSON-RPC message and the target server name. Router resolves the server
// and answers initialize, notifications/initialized, tools/list and
// tools/call. Tools are declared with the official MCP Go SDK types.
package mcp
