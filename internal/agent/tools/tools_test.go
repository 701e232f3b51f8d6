package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	invoke func(ctx context.Context, input json.RawMessage) (*ToolOutcome, error)
}

func (s *stubTool) Name() string             { return s.name }
func (s *stubTool) Description() string      { return "stub " + s.name }
func (s *stubTool) Schema() json.RawMessage  { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Invoke(ctx context.Context, input json.RawMessage) (*ToolOutcome, error) {
	if s.invoke == nil {
		return &ToolOutcome{Output: "ok"}, nil
	}
	return s.invoke(ctx, input)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "shell"}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := r.Register(&stubTool{name: "shell"})
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if dup.Name != "shell" {
		t.Fatalf("wrong name in error: %s", dup.Name)
	}
}

func TestReplaceOverwrites(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "a"}); err != nil {
		t.Fatal(err)
	}
	replacement := &stubTool{name: "a", invoke: func(context.Context, json.RawMessage) (*ToolOutcome, error) {
		return &ToolOutcome{Output: "replaced"}, nil
	}}
	r.Replace(replacement)

	out, err := r.Invoke(context.Background(), "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Output != "replaced" {
		t.Fatalf("expected replacement to run, got %q", out.Output)
	}
	if len(r.Names()) != 1 {
		t.Fatal("replace must not duplicate the name in the order")
	}
}

func TestDescribeStableOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}

	first := r.Describe()
	second := r.Describe()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Describe must be idempotent")
	}

	names := make([]string, len(first))
	for i, d := range first {
		names[i] = d.Name
	}
	if !reflect.DeepEqual(names, []string{"zulu", "alpha", "mike"}) {
		t.Fatalf("insertion order not preserved: %v", names)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "missing_tool", nil)
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if unknown.Name != "missing_tool" {
		t.Fatalf("wrong name: %s", unknown.Name)
	}
}

func TestInvokeConvertsHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Replace(&stubTool{name: "broken", invoke: func(context.Context, json.RawMessage) (*ToolOutcome, error) {
		return nil, errors.New("disk on fire")
	}})

	out, err := r.Invoke(context.Background(), "broken", nil)
	if err != nil {
		t.Fatalf("handler errors must not propagate: %v", err)
	}
	if out.Error != "disk on fire" {
		t.Fatalf("expected error outcome, got %+v", out)
	}
}

func TestInvokeRecoversFromPanic(t *testing.T) {
	r := NewRegistry()
	r.Replace(&stubTool{name: "panicky", invoke: func(context.Context, json.RawMessage) (*ToolOutcome, error) {
		panic("index out of range")
	}})

	out, err := r.Invoke(context.Background(), "panicky", nil)
	if err != nil {
		t.Fatalf("panics must not propagate: %v", err)
	}
	if !strings.Contains(out.Error, "index out of range") {
		t.Fatalf("panic message lost: %+v", out)
	}
}

func TestOutcomeIsEmpty(t *testing.T) {
	empty := &ToolOutcome{}
	if !empty.IsEmpty() {
		t.Fatal("zero outcome should be empty")
	}
	if (&ToolOutcome{Annotation: "note"}).IsEmpty() {
		t.Fatal("annotation-only outcome is not empty")
	}
	if (&ToolOutcome{Payload: []byte{1}}).IsEmpty() {
		t.Fatal("payload-only outcome is not empty")
	}
}

func TestOutcomeMerge(t *testing.T) {
	a := &ToolOutcome{Output: "one ", Payload: []byte{1}, PayloadMediaType: "image/png"}
	b := &ToolOutcome{Output: "two", Error: "warn"}

	merged, err := a.Merge(b)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Output != "one two" || merged.Error != "warn" {
		t.Fatalf("text fields should concatenate: %+v", merged)
	}
	if len(merged.Payload) != 1 || merged.PayloadMediaType != "image/png" {
		t.Fatalf("payload should carry over: %+v", merged)
	}

	_, err = a.Merge(&ToolOutcome{Payload: []byte{2}})
	if !errors.Is(err, ErrConflictingPayloads) {
		t.Fatalf("expected ErrConflictingPayloads, got %v", err)
	}
}

func TestShellToolRunsCommand(t *testing.T) {
	tool := NewShellTool()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"command":"echo hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Output, "hello") {
		t.Fatalf("unexpected output: %q", out.Output)
	}
}

func TestShellToolFailureIsErrorOutcome(t *testing.T) {
	tool := NewShellTool()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"command":"exit 3"}`))
	if err != nil {
		t.Fatalf("command failure should be an error outcome, not a Go error: %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected error outcome for non-zero exit")
	}
}

func TestFileToolRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	tool := NewFileTool()

	write, _ := json.Marshal(fileInput{Action: "write", Path: path, Content: "alpha beta"})
	if _, err := tool.Invoke(context.Background(), write); err != nil {
		t.Fatal(err)
	}

	edit, _ := json.Marshal(fileInput{Action: "edit", Path: path, OldString: "beta", NewString: "gamma"})
	if _, err := tool.Invoke(context.Background(), edit); err != nil {
		t.Fatal(err)
	}

	read, _ := json.Marshal(fileInput{Action: "read", Path: path})
	out, err := tool.Invoke(context.Background(), read)
	if err != nil {
		t.Fatal(err)
	}
	if out.Output != "alpha gamma" {
		t.Fatalf("unexpected contents: %q", out.Output)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "alpha gamma" {
		t.Fatalf("file on disk: %q", data)
	}
}

func TestFileToolEditRequiresUnique(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dup.txt")
	os.WriteFile(path, []byte("x x"), 0o644)

	tool := NewFileTool()
	edit, _ := json.Marshal(fileInput{Action: "edit", Path: path, OldString: "x", NewString: "y"})
	if _, err := tool.Invoke(context.Background(), edit); err == nil {
		t.Fatal("ambiguous edit must fail")
	}
}
