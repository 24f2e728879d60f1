// Package cli locates the Claude CLI binary and synthesizes the command line
// and environment it is launched with.
//
// Discovery searches in the following order:
//  1. Explicit path in Config.CliPath (if provided)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// Arguments and environment are derived from config.Options:
//
//	args := cli.BuildArgs("prompt", options, isStreaming)
//	env := cli.BuildEnvironment(options)
package cli
