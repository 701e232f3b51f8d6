// Package conv defines the conversation data model: messages made of typed
// content blocks, matching the Anthropic Messages protocol. The runner owns
// the log; everything else reads it.
package conv

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks synthetic summary messages produced by the
	// context pruner. The provider adapter folds these into the system
	// prompt; they never reach the API as a message role.
	RoleSystem Role = "system"
)

// Message is one turn in the conversation. Content is never empty for a
// message that enters the log.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// NewUserText builds a user message with a single text block.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{TextBlock{Text: text}}}
}

// NewToolResults builds the user-role message that carries tool results
// back to the model. Block order must match the ToolUse order of the
// preceding assistant message.
func NewToolResults(results []ToolResultBlock) Message {
	blocks := make([]Block, len(results))
	for i := range results {
		blocks[i] = results[i]
	}
	return Message{Role: RoleUser, Content: blocks}
}

// Text returns the message's text blocks concatenated.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the message's tool_use blocks in order.
func (m *Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, b := range m.Content {
		if u, ok := b.(ToolUseBlock); ok {
			uses = append(uses, u)
		}
	}
	return uses
}

// ToolResults returns the message's tool_result blocks in order.
func (m *Message) ToolResults() []ToolResultBlock {
	var results []ToolResultBlock
	for _, b := range m.Content {
		if r, ok := b.(ToolResultBlock); ok {
			results = append(results, r)
		}
	}
	return results
}

// CloneLog deep-copies a message log. Block values are immutable except for
// the slices they sit in, so copying the block slices is sufficient for the
// runner's snapshot guarantees.
func CloneLog(log []Message) []Message {
	out := make([]Message, len(log))
	for i, m := range log {
		out[i] = Message{Role: m.Role, Content: cloneBlocks(m.Content)}
	}
	return out
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		if tr, ok := b.(ToolResultBlock); ok {
			tr.Content = cloneBlocks(tr.Content)
			out[i] = tr
			continue
		}
		out[i] = b
	}
	return out
}

// ToolCallSummary renders a compact "name(key: value, ...)" description of
// a tool invocation for logs and pruning headers.
func ToolCallSummary(u ToolUseBlock) string {
	summary := u.Name
	var input map[string]any
	if json.Unmarshal(u.Input, &input) == nil {
		var parts []string
		for _, key := range []string{"action", "command", "path", "url", "query"} {
			if v, ok := input[key].(string); ok {
				if len(v) > 60 {
					v = v[:60] + "…"
				}
				parts = append(parts, key+": "+v)
			}
		}
		if len(parts) > 0 {
			summary += "(" + strings.Join(parts, ", ") + ")"
		}
	}
	return summary
}
