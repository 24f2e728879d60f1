package message

import (
	"fmt"

	"github.com/wagiedev/claude-control-go/internal/errors"
)

// Block type constants.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock is one block of a user or assistant message.
type ContentBlock interface {
	BlockType() string
}

var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*ThinkingBlock)(nil)
	_ ContentBlock = (*ToolUseBlock)(nil)
	_ ContentBlock = (*ToolResultBlock)(nil)
)

// TextBlock contains plain text content.
type TextBlock struct {
	Text string
}

// BlockType implements ContentBlock.
func (*TextBlock) BlockType() string { return BlockTypeText }

// ThinkingBlock contains the model's reasoning and its signature.
type ThinkingBlock struct {
	Thinking  string
	Signature string
}

// BlockType implements ContentBlock.
func (*ThinkingBlock) BlockType() string { return BlockTypeThinking }

// ToolUseBlock is a tool invocation.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

// BlockType implements ContentBlock.
func (*ToolUseBlock) BlockType() string { return BlockTypeToolUse }

// ToolResultBlock is the outcome of a tool invocation. String content is
// surfaced as a single TextBlock.
type ToolResultBlock struct {
	ToolUseID string
	Content   []ContentBlock
	IsError   *bool
}

// BlockType implements ContentBlock.
func (*ToolResultBlock) BlockType() string { return BlockTypeToolResult }

// Content decodes the content blocks of a user or assistant message.
// Plain string content becomes a single TextBlock. A malformed block or an
// unknown block type yields a *errors.MessageParseError.
func (m *Message) Content() ([]ContentBlock, error) {
	if m.Type != TypeUser && m.Type != TypeAssistant {
		return nil, fmt.Errorf("message type %q has no content", m.Type)
	}

	inner, ok := m.Data["message"].(map[string]any)
	if !ok {
		return nil, m.parseError(fmt.Errorf("missing or invalid 'message' field"))
	}

	blocks, err := parseContent(inner["content"])
	if err != nil {
		return nil, m.parseError(err)
	}

	return blocks, nil
}

// Model returns the model that produced an assistant message, if present.
func (m *Message) Model() string {
	inner, _ := m.Data["message"].(map[string]any)
	model, _ := inner["model"].(string)

	return model
}

// ParentToolUseID returns the tool use a subagent message belongs to.
func (m *Message) ParentToolUseID() *string {
	id, ok := m.Data["parent_tool_use_id"].(string)
	if !ok {
		return nil
	}

	return &id
}

func (m *Message) parseError(err error) error {
	return &errors.MessageParseError{Message: err.Error(), Err: err, Data: m.Data}
}

func parseContent(content any) ([]ContentBlock, error) {
	switch content := content.(type) {
	case string:
		return []ContentBlock{&TextBlock{Text: content}}, nil

	case []any:
		blocks := make([]ContentBlock, 0, len(content))

		for i, raw := range content {
			block, err := parseContentBlock(raw)
			if err != nil {
				return nil, fmt.Errorf("content block %d: %w", i, err)
			}

			blocks = append(blocks, block)
		}

		return blocks, nil

	default:
		return nil, fmt.Errorf("missing or invalid 'content' field")
	}
}

func parseContentBlock(raw any) (ContentBlock, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("content block must be an object")
	}

	blockType, ok := obj["type"].(string)
	if !ok {
		return nil, fmt.Errorf("content block missing 'type' field")
	}

	switch blockType {
	case BlockTypeText:
		text, err := requireString(obj, blockType, "text")
		if err != nil {
			return nil, err
		}

		return &TextBlock{Text: text}, nil

	case BlockTypeThinking:
		thinking, err := requireString(obj, blockType, "thinking")
		if err != nil {
			return nil, err
		}

		signature, err := requireString(obj, blockType, "signature")
		if err != nil {
			return nil, err
		}

		return &ThinkingBlock{Thinking: thinking, Signature: signature}, nil

	case BlockTypeToolUse:
		id, err := requireString(obj, blockType, "id")
		if err != nil {
			return nil, err
		}

		name, err := requireString(obj, blockType, "name")
		if err != nil {
			return nil, err
		}

		input, ok := obj["input"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool_use block missing 'input' field")
		}

		return &ToolUseBlock{ID: id, Name: name, Input: input}, nil

	case BlockTypeToolResult:
		toolUseID, err := requireString(obj, blockType, "tool_use_id")
		if err != nil {
			return nil, err
		}

		block := &ToolResultBlock{ToolUseID: toolUseID}

		if isError, ok := obj["is_error"].(bool); ok {
			block.IsError = &isError
		}

		if content, ok := obj["content"]; ok && content != nil {
			if block.Content, err = parseContent(content); err != nil {
				return nil, fmt.Errorf("tool_result content: %w", err)
			}
		}

		return block, nil

	default:
		return nil, fmt.Errorf("unknown content block type: %s", blockType)
	}
}

func requireString(obj map[string]any, blockType, field string) (string, error) {
	value, ok := obj[field].(string)
	if !ok {
		return "", fmt.Errorf("%s block missing '%s' field", blockType, field)
	}

	return value, nil
}
