package conv

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// The wire codec uses a "type" discriminator per block, matching the
// Anthropic content block encoding. The session store round-trips the log
// through this codec.

type blockEnvelope struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string            `json:"tool_use_id,omitempty"`
	Content   []json.RawMessage `json:"content,omitempty"`
	IsError   bool              `json:"is_error,omitempty"`

	// thinking / redacted_thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	Data      string `json:"data,omitempty"`

	// image
	MediaType string `json:"media_type,omitempty"`
}

// MarshalBlock encodes a single block with its type discriminator.
func MarshalBlock(b Block) ([]byte, error) {
	env := blockEnvelope{Type: b.BlockType()}
	switch v := b.(type) {
	case TextBlock:
		env.Text = v.Text
	case ToolUseBlock:
		env.ID = v.ID
		env.Name = v.Name
		env.Input = v.Input
	case ToolResultBlock:
		env.ToolUseID = v.ToolUseID
		env.IsError = v.IsError
		for _, inner := range v.Content {
			data, err := MarshalBlock(inner)
			if err != nil {
				return nil, err
			}
			env.Content = append(env.Content, data)
		}
	case ThinkingBlock:
		env.Thinking = v.Thinking
		env.Signature = v.Signature
	case RedactedThinkingBlock:
		env.Data = v.Data
	case ImageBlock:
		env.MediaType = v.MediaType
		env.Data = base64.StdEncoding.EncodeToString(v.Data)
	default:
		return nil, fmt.Errorf("unsupported block type %T", b)
	}
	return json.Marshal(env)
}

// UnmarshalBlock decodes a single block. Unknown discriminators are an
// error: a log that has picked up foreign block types must not round-trip
// silently.
func UnmarshalBlock(data []byte) (Block, error) {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "text":
		return TextBlock{Text: env.Text}, nil
	case "tool_use":
		return ToolUseBlock{ID: env.ID, Name: env.Name, Input: env.Input}, nil
	case "tool_result":
		result := ToolResultBlock{ToolUseID: env.ToolUseID, IsError: env.IsError}
		for _, raw := range env.Content {
			inner, err := UnmarshalBlock(raw)
			if err != nil {
				return nil, err
			}
			result.Content = append(result.Content, inner)
		}
		return result, nil
	case "thinking":
		return ThinkingBlock{Thinking: env.Thinking, Signature: env.Signature}, nil
	case "redacted_thinking":
		return RedactedThinkingBlock{Data: env.Data}, nil
	case "image":
		raw, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return nil, fmt.Errorf("image block: %w", err)
		}
		return ImageBlock{MediaType: env.MediaType, Data: raw}, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", env.Type)
	}
}

// MarshalContent encodes a block slice as a JSON array.
func MarshalContent(blocks []Block) ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(blocks))
	for _, b := range blocks {
		data, err := MarshalBlock(b)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
	}
	return json.Marshal(parts)
}

// UnmarshalContent decodes a JSON array of blocks.
func UnmarshalContent(data []byte) ([]Block, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(parts))
	for _, raw := range parts {
		b, err := UnmarshalBlock(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
