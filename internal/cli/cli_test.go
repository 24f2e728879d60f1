package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/claude-control-go/internal/config"
	"github.com/wagiedev/claude-control-go/internal/errors"
	"github.com/wagiedev/claude-control-go/internal/mcp"
	"github.com/wagiedev/claude-control-go/internal/permission"
)

// flagValue returns the argument following flag, or "" when absent.
func flagValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}

	return args[idx+1]
}

// envValue returns the last assignment of key, matching exec.Cmd semantics.
func envValue(env []string, key string) string {
	value := ""

	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			value = v
		}
	}

	return value
}

func TestDiscover_ExplicitPathNotFound(t *testing.T) {
	_, err := Discover(&Config{CliPath: "/nonexistent/path/to/claude"})

	require.Error(t, err)
	require.IsType(t, &errors.CLINotFoundError{}, err)
	require.Equal(t, []string{"/nonexistent/path/to/claude"}, err.(*errors.CLINotFoundError).SearchedPaths)
}

func TestDiscover_ExplicitPathIsDirectory(t *testing.T) {
	_, err := Discover(&Config{CliPath: t.TempDir()})

	require.IsType(t, &errors.CLINotFoundError{}, err)
}

func TestDiscover_ExplicitPath(t *testing.T) {
	fakeCLI := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(fakeCLI, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	path, err := Discover(&Config{CliPath: fakeCLI})

	require.NoError(t, err)
	require.Equal(t, fakeCLI, path)
}

func TestDiscover_SearchesPath(t *testing.T) {
	dir := t.TempDir()
	fakeCLI := filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(fakeCLI, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	t.Setenv("PATH", dir)

	path, err := Discover(nil)

	require.NoError(t, err)
	require.Equal(t, fakeCLI, path)
}

func TestBuildArgs_OneShot(t *testing.T) {
	args := BuildArgs("hello", &config.Options{}, false)

	require.Equal(t, []string{
		"--output-format", "stream-json",
		"--verbose",
		"--print", "--", "hello",
	}, args)
}

func TestBuildArgs_Streaming(t *testing.T) {
	args := BuildArgs("ignored", nil, true)

	require.Equal(t, "stream-json", flagValue(args, "--input-format"))
	require.NotContains(t, args, "--print")
	require.NotContains(t, args, "ignored")
}

func TestBuildArgs_WithOptions(t *testing.T) {
	options := &config.Options{
		SystemPrompt:         "be terse",
		Model:                "claude-sonnet-4-5",
		MaxTurns:             4,
		PermissionMode:       "acceptAll",
		AllowedTools:         []string{"Read", "Grep"},
		DisallowedTools:      []string{"Bash"},
		Resume:               "sess-9",
		ContinueConversation: true,
	}

	args := BuildArgs("hi", options, false)

	require.Equal(t, "be terse", flagValue(args, "--system-prompt"))
	require.Equal(t, "claude-sonnet-4-5", flagValue(args, "--model"))
	require.Equal(t, "4", flagValue(args, "--max-turns"))
	require.Equal(t, "bypassPermissions", flagValue(args, "--permission-mode"))
	require.Equal(t, "Read,Grep", flagValue(args, "--allowedTools"))
	require.Equal(t, "Bash", flagValue(args, "--disallowedTools"))
	require.Equal(t, "sess-9", flagValue(args, "--resume"))
	require.Contains(t, args, "--continue")
	require.NotContains(t, args, "--permission-prompt-tool")
}

func TestBuildArgs_PermissionPromptTool(t *testing.T) {
	callback := func(context.Context, string, map[string]any, *permission.Context) (permission.Result, error) {
		return &permission.ResultAllow{}, nil
	}

	args := BuildArgs("", &config.Options{CanUseTool: callback}, true)
	require.Equal(t, "stdio", flagValue(args, "--permission-prompt-tool"))

	args = BuildArgs("", &config.Options{CanUseTool: callback, PermissionPromptToolName: "mcp__auth__prompt"}, true)
	require.Equal(t, "mcp__auth__prompt", flagValue(args, "--permission-prompt-tool"))
}

func TestBuildArgs_WithMCPServers(t *testing.T) {
	options := &config.Options{
		MCPServers: map[string]mcp.ServerConfig{
			"calc": &mcp.SdkServerConfig{Name: "calc", Instance: mcp.NewSDKServer("calc", "1.0.0")},
		},
	}

	raw := flagValue(BuildArgs("", options, true), "--mcp-config")
	require.NotEmpty(t, raw)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, map[string]any{
		"mcpServers": map[string]any{
			"calc": map[string]any{"type": "sdk", "name": "calc"},
		},
	}, doc)
}

func TestBuildArgs_WithExtraArgsSorted(t *testing.T) {
	value := "debug"
	options := &config.Options{
		ExtraArgs: map[string]*string{
			"log-level": &value,
			"dry-run":   nil,
		},
	}

	args := BuildArgs("x", options, false)

	dry := slices.Index(args, "--dry-run")
	level := slices.Index(args, "--log-level")
	require.GreaterOrEqual(t, dry, 0)
	require.Greater(t, level, dry)
	require.Equal(t, "debug", args[level+1])
	require.Equal(t, []string{"--print", "--", "x"}, args[len(args)-3:])
}

func TestBuildEnvironment(t *testing.T) {
	t.Setenv("CLAUDE_CONTROL_TEST_PARENT", "inherited")

	env := BuildEnvironment(&config.Options{
		Env:        map[string]string{"FOO": "bar"},
		Entrypoint: "sdk-embedded",
	})

	require.Equal(t, "inherited", envValue(env, "CLAUDE_CONTROL_TEST_PARENT"))
	require.Equal(t, "bar", envValue(env, "FOO"))
	require.Equal(t, "sdk-embedded", envValue(env, "CLAUDE_CODE_ENTRYPOINT"))
	require.Equal(t, Version, envValue(env, "CLAUDE_AGENT_SDK_VERSION"))
}

func TestBuildEnvironment_DefaultEntrypointDoesNotTouchParent(t *testing.T) {
	t.Setenv("CLAUDE_CODE_ENTRYPOINT", "parent-value")

	env := BuildEnvironment(nil)

	require.Equal(t, config.DefaultEntrypoint, envValue(env, "CLAUDE_CODE_ENTRYPOINT"))
	require.Equal(t, "parent-value", os.Getenv("CLAUDE_CODE_ENTRYPOINT"))
}
