// Package client implements the interactive Client for multi-turn control
// sessions.
//
// A Client owns one duplex transport in streaming mode. Unlike the one-shot
// Query() function, Client supports:
//   - Multi-turn conversations over a single subprocess
//   - Interruption of the current turn
//   - Runtime configuration changes (model, permission mode)
//   - Permission, hook and SDK MCP callbacks answered over the control channel
//
// The Client delegates control traffic to the protocol package and runs its
// own goroutine converting ordinary frames into messages.
package client
