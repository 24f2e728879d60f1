// Package subprocess implements the framed byte transports: one that owns a
// CLI subprocess and one over any caller-supplied duplex stream. Both write
// newline-terminated JSON under a mutex and expose a single-pass frame
// sequence decoded by package framing.
package subprocess
