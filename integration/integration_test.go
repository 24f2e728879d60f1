//go:build integration

package integration

import (
	"errors"
	"strings"
	"testing"

	claudectl "github.com/wagiedev/claude-control-go"
)

// skipIfCLINotInstalled skips the test if the error indicates the CLI is not found.
func skipIfCLINotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*claudectl.CLINotFoundError](err); ok {
		t.Skip("Claude CLI not installed")
	}
}

// contains42 checks if a string contains "42" in various formats.
func contains42(s string) bool {
	lower := strings.ToLower(s)

	return strings.Contains(lower, "42") ||
		strings.Contains(lower, "forty-two") ||
		strings.Contains(lower, "forty two")
}

// baseOptions keeps integration runs cheap.
func baseOptions(extra ...claudectl.Option) []claudectl.Option {
	return append([]claudectl.Option{
		claudectl.WithModel("haiku"),
		claudectl.WithMaxTurns(1),
	}, extra...)
}
