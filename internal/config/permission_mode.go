package config

// Permission modes accepted by the CLI.
const (
	PermissionModeDefault           = "default"
	PermissionModeAcceptEdits       = "acceptEdits"
	PermissionModePlan              = "plan"
	PermissionModeBypassPermissions = "bypassPermissions"
	PermissionModeDontAsk           = "dontAsk"
)

// NormalizePermissionMode maps legacy permission mode names to current CLI values.
//
// Legacy mappings:
//   - "acceptAll" -> "bypassPermissions"
//   - "prompt" -> "default"
func NormalizePermissionMode(mode string) string {
	switch mode {
	case "acceptAll":
		return PermissionModeBypassPermissions
	case "prompt":
		return PermissionModeDefault
	default:
		return mode
	}
}
