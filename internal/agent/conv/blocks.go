package conv

import "encoding/json"

// Block is one content block inside a message. The concrete types mirror
// the Anthropic Messages wire protocol: text, tool_use, tool_result,
// thinking, redacted_thinking, image.
type Block interface {
	// BlockType returns the wire discriminator for this block.
	BlockType() string
}

// TextBlock is plain assistant or user text.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) BlockType() string { return "text" }

// ToolUseBlock is a tool invocation requested by the model.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock carries the outcome of one tool invocation back to the
// model. Content holds text and/or image blocks; IsError marks failures.
type ToolResultBlock struct {
	ToolUseID string  `json:"tool_use_id"`
	Content   []Block `json:"content"`
	IsError   bool    `json:"is_error,omitempty"`
}

func (ToolResultBlock) BlockType() string { return "tool_result" }

// ThinkingBlock is extended-thinking output. The signature must be echoed
// back verbatim on subsequent requests or the API rejects the turn.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

func (ThinkingBlock) BlockType() string { return "thinking" }

// RedactedThinkingBlock is thinking content the API withheld. Opaque; must
// round-trip unchanged.
type RedactedThinkingBlock struct {
	Data string `json:"data,omitempty"`
}

func (RedactedThinkingBlock) BlockType() string { return "redacted_thinking" }

// ImageBlock is an inline image, typically a screenshot inside a tool
// result. Data is raw bytes; the JSON codec base64-encodes it.
type ImageBlock struct {
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

func (ImageBlock) BlockType() string { return "image" }
