package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const (
	shellDefaultTimeout = 60 * time.Second
	shellMaxOutput      = 30000
)

// ShellTool runs a command through the system shell and captures combined
// output. Long output is truncated head-first so the tail (usually the
// error) survives.
type ShellTool struct {
	timeout time.Duration
}

type shellInput struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// NewShellTool creates the shell tool with the default per-command timeout.
func NewShellTool() *ShellTool {
	return &ShellTool{timeout: shellDefaultTimeout}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return `Run a shell command and return its combined stdout/stderr.

Commands run with a timeout (default 60s, override with timeout_seconds).
Output longer than 30000 characters is truncated from the start.`
}

func (t *ShellTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "The command to run"},
			"timeout_seconds": {"type": "integer", "description": "Optional timeout override in seconds"}
		},
		"required": ["command"]
	}`)
}

func (t *ShellTool) Invoke(ctx context.Context, input json.RawMessage) (*ToolOutcome, error) {
	var in shellInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid shell input: %w", err)
	}
	if strings.TrimSpace(in.Command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	timeout := t.timeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", in.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", in.Command)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()

	output := truncateHead(buf.String(), shellMaxOutput)

	if ctx.Err() == context.DeadlineExceeded {
		return &ToolOutcome{
			Error: fmt.Sprintf("command timed out after %s\n%s", timeout, output),
		}, nil
	}
	if err != nil {
		return &ToolOutcome{
			Error: fmt.Sprintf("command failed: %v\n%s", err, output),
		}, nil
	}
	if output == "" {
		output = "(no output)"
	}
	return &ToolOutcome{Output: output}, nil
}

// truncateHead keeps the last max characters of s, marking the cut.
func truncateHead(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…(output truncated)…\n" + s[len(s)-max:]
}
