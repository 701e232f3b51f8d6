package conv

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestBlockCodecRoundTrip(t *testing.T) {
	blocks := []Block{
		TextBlock{Text: "Taking a look now."},
		ToolUseBlock{ID: "tu_1", Name: "shell", Input: json.RawMessage(`{"command":"ls"}`)},
		ToolResultBlock{
			ToolUseID: "tu_1",
			Content: []Block{
				TextBlock{Text: "main.go"},
				ImageBlock{MediaType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
			},
		},
		ThinkingBlock{Thinking: "the user wants a listing", Signature: "sig=="},
		RedactedThinkingBlock{Data: "opaque"},
	}

	data, err := MarshalContent(blocks)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := UnmarshalContent(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(blocks) {
		t.Fatalf("expected %d blocks, got %d", len(blocks), len(decoded))
	}

	tr, ok := decoded[2].(ToolResultBlock)
	if !ok {
		t.Fatalf("block 2: expected ToolResultBlock, got %T", decoded[2])
	}
	if tr.ToolUseID != "tu_1" || len(tr.Content) != 2 {
		t.Fatalf("tool result lost content: %+v", tr)
	}
	img, ok := tr.Content[1].(ImageBlock)
	if !ok {
		t.Fatalf("nested block: expected ImageBlock, got %T", tr.Content[1])
	}
	if !bytes.Equal(img.Data, []byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Fatal("image bytes corrupted in round trip")
	}

	th, ok := decoded[3].(ThinkingBlock)
	if !ok || th.Signature != "sig==" {
		t.Fatalf("thinking signature must round-trip, got %+v", decoded[3])
	}
}

func TestUnmarshalBlockRejectsUnknownType(t *testing.T) {
	if _, err := UnmarshalBlock([]byte(`{"type":"video","data":"x"}`)); err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestMessageHelpers(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []Block{
			TextBlock{Text: "Running "},
			ToolUseBlock{ID: "a", Name: "shell", Input: json.RawMessage(`{"command":"uname"}`)},
			TextBlock{Text: "now."},
			ToolUseBlock{ID: "b", Name: "file", Input: json.RawMessage(`{"path":"/etc/hosts"}`)},
		},
	}

	if got := msg.Text(); got != "Running now." {
		t.Fatalf("Text() = %q", got)
	}
	uses := msg.ToolUses()
	if len(uses) != 2 || uses[0].ID != "a" || uses[1].ID != "b" {
		t.Fatalf("ToolUses() order wrong: %+v", uses)
	}
}

func TestToolCallSummary(t *testing.T) {
	u := ToolUseBlock{
		Name:  "shell",
		Input: json.RawMessage(`{"command":"git status","background":false}`),
	}
	s := ToolCallSummary(u)
	if !strings.Contains(s, "shell") || !strings.Contains(s, "git status") {
		t.Fatalf("summary missing fields: %s", s)
	}
}

func TestCloneLogIsDeep(t *testing.T) {
	log := []Message{
		{Role: RoleUser, Content: []Block{
			ToolResultBlock{ToolUseID: "x", Content: []Block{TextBlock{Text: "out"}}},
		}},
	}
	cloned := CloneLog(log)

	tr := cloned[0].Content[0].(ToolResultBlock)
	tr.Content[0] = TextBlock{Text: "mutated"}

	orig := log[0].Content[0].(ToolResultBlock)
	if orig.Content[0].(TextBlock).Text != "out" {
		t.Fatal("CloneLog shared nested content slices")
	}
}
