package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/mcp"
)

// Version is reported to the CLI as CLAUDE_AGENT_SDK_VERSION.
const Version = "0.1.0"

// BuildArgs constructs the CLI command arguments.
//
// When isStreaming is true, uses --input-format stream-json and omits the prompt
// from command line arguments (prompt comes via stdin instead).
func BuildArgs(prompt string, options *config.Options, isStreaming bool) []string {
	if options == nil {
		options = &config.Options{}
	}

	args := []string{
		"--output-format", "stream-json",
		"--verbose",
	}

	if options.SystemPrompt != "" {
		args = append(args, "--system-prompt", options.SystemPrompt)
	}

	if len(options.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(options.AllowedTools, ","))
	}

	if len(options.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(options.DisallowedTools, ","))
	}

	if options.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(options.MaxTurns))
	}

	if options.Model != "" {
		args = append(args, "--model", options.Model)
	}

	promptTool := options.PermissionPromptToolName
	if promptTool == "" && options.CanUseTool != nil {
		promptTool = "stdio"
	}

	if promptTool != "" {
		args = append(args, "--permission-prompt-tool", promptTool)
	}

	if options.PermissionMode != "" {
		args = append(args, "--permission-mode", config.NormalizePermissionMode(options.PermissionMode))
	}

	if options.ContinueConversation {
		args = append(args, "--continue")
	}

	if options.Resume != "" {
		args = append(args, "--resume", options.Resume)
	}

	if len(options.MCPServers) > 0 {
		if encoded, err := mcp.EncodeServers(options.MCPServers); err == nil {
			args = append(args, "--mcp-config", encoded)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(options.ExtraArgs)) {
		if value := options.ExtraArgs[key]; value != nil {
			args = append(args, "--"+key, *value)
		} else {
			args = append(args, "--"+key)
		}
	}

	if isStreaming {
		args = append(args, "--input-format", "stream-json")
	} else {
		args = append(args, "--print", "--", prompt)
	}

	return args
}

// BuildEnvironment constructs the environment for the CLI process: the
// parent environment, then the caller's overrides, then the SDK markers.
// The entrypoint marker comes from the options only.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	if options != nil {
		for _, key := range slices.Sorted(maps.Keys(options.Env)) {
			env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
		}
	}

	env = append(env,
		"CLAUDE_CODE_ENTRYPOINT="+options.EffectiveEntrypoint(),
		"CLAUDE_AGENT_SDK_VERSION="+Version,
	)

	return env
}
