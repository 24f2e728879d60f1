// Package permission provides the tool-permission callback and its decision types.
package permission

import (
	"context"
	"fmt"
)

// Mode represents different permission handling modes.
type Mode string

const (
	// ModeDefault uses standard permission prompts.
	ModeDefault Mode = "default"
	// ModeAcceptEdits automatically accepts file edits.
	ModeAcceptEdits Mode = "acceptEdits"
	// ModePlan enables plan mode for implementation planning.
	ModePlan Mode = "plan"
	// ModeBypassPermissions bypasses all permission checks.
	ModeBypassPermissions Mode = "bypassPermissions"
)

// UpdateType represents the type of permission update.
type UpdateType string

const (
	// UpdateTypeAddRules adds new permission rules.
	UpdateTypeAddRules UpdateType = "addRules"
	// UpdateTypeReplaceRules replaces existing permission rules.
	UpdateTypeReplaceRules UpdateType = "replaceRules"
	// UpdateTypeRemoveRules removes permission rules.
	UpdateTypeRemoveRules UpdateType = "removeRules"
	// UpdateTypeSetMode sets the permission mode.
	UpdateTypeSetMode UpdateType = "setMode"
	// UpdateTypeAddDirectories adds accessible directories.
	UpdateTypeAddDirectories UpdateType = "addDirectories"
	// UpdateTypeRemoveDirectories removes accessible directories.
	UpdateTypeRemoveDirectories UpdateType = "removeDirectories"
)

// UpdateDestination represents where permission updates are stored.
type UpdateDestination string

const (
	// UpdateDestUserSettings stores in user-level settings.
	UpdateDestUserSettings UpdateDestination = "userSettings"
	// UpdateDestProjectSettings stores in project-level settings.
	UpdateDestProjectSettings UpdateDestination = "projectSettings"
	// UpdateDestLocalSettings stores in local-level settings.
	UpdateDestLocalSettings UpdateDestination = "localSettings"
	// UpdateDestSession stores in the current session only.
	UpdateDestSession UpdateDestination = "session"
)

// Behavior represents the permission behavior for a rule.
type Behavior string

const (
	// BehaviorAllow automatically allows the operation.
	BehaviorAllow Behavior = "allow"
	// BehaviorDeny automatically denies the operation.
	BehaviorDeny Behavior = "deny"
	// BehaviorAsk prompts the user for permission.
	BehaviorAsk Behavior = "ask"
)

// RuleValue represents a permission rule.
type RuleValue struct {
	ToolName    string
	RuleContent *string
}

// Update represents a permission update, either suggested by the CLI or
// returned with an allow decision.
type Update struct {
	Type        UpdateType
	Rules       []*RuleValue
	Behavior    *Behavior
	Mode        *Mode
	Directories []string
	Destination *UpdateDestination
}

// ToDict converts the Update to its wire form.
func (p *Update) ToDict() map[string]any {
	result := make(map[string]any, 6)
	result["type"] = string(p.Type)

	if p.Destination != nil {
		result["destination"] = string(*p.Destination)
	}

	if len(p.Rules) > 0 {
		rules := make([]map[string]any, len(p.Rules))
		for i, rule := range p.Rules {
			ruleMap := map[string]any{
				"toolName": rule.ToolName,
			}
			if rule.RuleContent != nil {
				ruleMap["ruleContent"] = *rule.RuleContent
			}

			rules[i] = ruleMap
		}

		result["rules"] = rules
	}

	if p.Behavior != nil {
		result["behavior"] = string(*p.Behavior)
	}

	if p.Mode != nil {
		result["mode"] = string(*p.Mode)
	}

	if len(p.Directories) > 0 {
		result["directories"] = p.Directories
	}

	return result
}

// ParseUpdate decodes the wire form produced by ToDict.
func ParseUpdate(data map[string]any) (*Update, error) {
	updateType, ok := data["type"].(string)
	if !ok || updateType == "" {
		return nil, fmt.Errorf("permission update: missing type")
	}

	update := &Update{Type: UpdateType(updateType)}

	if dest, ok := data["destination"].(string); ok {
		d := UpdateDestination(dest)
		update.Destination = &d
	}

	if behavior, ok := data["behavior"].(string); ok {
		b := Behavior(behavior)
		update.Behavior = &b
	}

	if mode, ok := data["mode"].(string); ok {
		m := Mode(mode)
		update.Mode = &m
	}

	if rules, ok := data["rules"].([]any); ok {
		for _, raw := range rules {
			ruleMap, ok := raw.(map[string]any)
			if !ok {
				continue
			}

			rule := &RuleValue{}
			rule.ToolName, _ = ruleMap["toolName"].(string)

			if content, ok := ruleMap["ruleContent"].(string); ok {
				rule.RuleContent = &content
			}

			update.Rules = append(update.Rules, rule)
		}
	}

	if dirs, ok := data["directories"].([]any); ok {
		for _, raw := range dirs {
			if dir, ok := raw.(string); ok {
				update.Directories = append(update.Directories, dir)
			}
		}
	}

	return update, nil
}

// ParseSuggestions decodes a permission_suggestions array, skipping entries
// that are not valid updates.
func ParseSuggestions(raw any) []*Update {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	suggestions := make([]*Update, 0, len(items))

	for _, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if update, err := ParseUpdate(data); err == nil {
			suggestions = append(suggestions, update)
		}
	}

	return suggestions
}

// Context provides context for tool permission callbacks.
type Context struct {
	Suggestions []*Update // Permission update suggestions from CLI
	BlockedPath *string   // Path that triggered the request, if any
}

// Result is a permission decision: *ResultAllow or *ResultDeny.
type Result interface {
	GetBehavior() string
	// Payload returns the control response body for this decision.
	Payload() map[string]any
	isResult()
}

// Compile-time verification that permission result types implement Result.
var (
	_ Result = (*ResultAllow)(nil)
	_ Result = (*ResultDeny)(nil)
)

// ResultAllow represents an allow decision.
type ResultAllow struct {
	UpdatedInput       map[string]any // Replacement input parameters
	UpdatedPermissions []*Update      // Permission updates to apply
}

// GetBehavior implements Result.
func (p *ResultAllow) GetBehavior() string { return string(BehaviorAllow) }

// Payload implements Result. A nil decision has no payload.
func (p *ResultAllow) Payload() map[string]any {
	if p == nil {
		return nil
	}

	payload := map[string]any{"allow": true}

	if p.UpdatedInput != nil {
		payload["input"] = p.UpdatedInput
	}

	if len(p.UpdatedPermissions) > 0 {
		updates := make([]map[string]any, len(p.UpdatedPermissions))
		for i, update := range p.UpdatedPermissions {
			updates[i] = update.ToDict()
		}

		payload["updatedPermissions"] = updates
	}

	return payload
}

func (*ResultAllow) isResult() {}

// ResultDeny represents a deny decision.
type ResultDeny struct {
	Message   string // Reason for denial
	Interrupt bool   // Whether to interrupt the session
}

// GetBehavior implements Result.
func (p *ResultDeny) GetBehavior() string { return string(BehaviorDeny) }

// Payload implements Result. A nil decision has no payload.
func (p *ResultDeny) Payload() map[string]any {
	if p == nil {
		return nil
	}

	payload := map[string]any{"allow": false, "reason": p.Message}

	if p.Interrupt {
		payload["interrupt"] = true
	}

	return payload
}

func (*ResultDeny) isResult() {}

// Callback is called before each tool use for permission checking.
type Callback func(
	ctx context.Context,
	toolName string,
	input map[string]any,
	permCtx *Context,
) (Result, error)
