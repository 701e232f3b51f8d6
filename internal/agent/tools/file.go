package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileMaxRead = 100000

// FileTool reads, writes, and edits files on the local filesystem.
type FileTool struct{}

type fileInput struct {
	Action    string `json:"action"`
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	OldString string `json:"old_string,omitempty"`
	NewString string `json:"new_string,omitempty"`
}

// NewFileTool creates the file tool.
func NewFileTool() *FileTool {
	return &FileTool{}
}

func (t *FileTool) Name() string { return "file" }

func (t *FileTool) Description() string {
	return `File operations.

Actions:
- read: return the file contents (truncated past 100000 chars)
- write: create or overwrite a file with content
- edit: replace one occurrence of old_string with new_string`
}

func (t *FileTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["read", "write", "edit"]},
			"path": {"type": "string"},
			"content": {"type": "string"},
			"old_string": {"type": "string"},
			"new_string": {"type": "string"}
		},
		"required": ["action", "path"]
	}`)
}

func (t *FileTool) Invoke(_ context.Context, input json.RawMessage) (*ToolOutcome, error) {
	var in fileInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid file input: %w", err)
	}
	if in.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	switch in.Action {
	case "read":
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, err
		}
		content := string(data)
		if len(content) > fileMaxRead {
			content = content[:fileMaxRead] + "\n…(truncated)"
		}
		return &ToolOutcome{Output: content}, nil

	case "write":
		if err := os.MkdirAll(filepath.Dir(in.Path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(in.Path, []byte(in.Content), 0o644); err != nil {
			return nil, err
		}
		return &ToolOutcome{Output: fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path)}, nil

	case "edit":
		if in.OldString == "" {
			return nil, fmt.Errorf("old_string is required for edit")
		}
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, err
		}
		content := string(data)
		count := strings.Count(content, in.OldString)
		if count == 0 {
			return nil, fmt.Errorf("old_string not found in %s", in.Path)
		}
		if count > 1 {
			return nil, fmt.Errorf("old_string occurs %d times in %s, must be unique", count, in.Path)
		}
		content = strings.Replace(content, in.OldString, in.NewString, 1)
		if err := os.WriteFile(in.Path, []byte(content), 0o644); err != nil {
			return nil, err
		}
		return &ToolOutcome{Output: fmt.Sprintf("edited %s", in.Path)}, nil

	default:
		return nil, fmt.Errorf("unknown file action %q", in.Action)
	}
}
