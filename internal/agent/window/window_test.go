package window

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/droverhq/drover/internal/agent/conv"
)

func imageResult(toolUseID string, images int) conv.Message {
	blocks := []conv.Block{conv.TextBlock{Text: "captured"}}
	for i := 0; i < images; i++ {
		blocks = append(blocks, conv.ImageBlock{MediaType: "image/png", Data: []byte{byte(i)}})
	}
	return conv.Message{
		Role: conv.RoleUser,
		Content: []conv.Block{
			conv.ToolResultBlock{ToolUseID: toolUseID, Content: blocks},
		},
	}
}

func nonImageBlockCount(log []conv.Message) int {
	n := 0
	var walk func(blocks []conv.Block)
	walk = func(blocks []conv.Block) {
		for _, b := range blocks {
			if tr, ok := b.(conv.ToolResultBlock); ok {
				walk(tr.Content)
				continue
			}
			if _, isImage := b.(conv.ImageBlock); !isImage {
				n++
			}
		}
	}
	for i := range log {
		walk(log[i].Content)
	}
	return n
}

func TestRetainRecentImages_ChunkRoundsToZero(t *testing.T) {
	// 12 images total across 3 results, keep 5: toRemove=7, rounded down
	// to a multiple of 10 -> 0 removed.
	log := []conv.Message{
		imageResult("t1", 4),
		imageResult("t2", 3),
		imageResult("t3", 5),
	}
	removed := RetainRecentImages(log, 5, 10)
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
	if got := countImages(log); got != 12 {
		t.Fatalf("expected 12 images remaining, got %d", got)
	}
}

func TestRetainRecentImages_EvictsOldestFirst(t *testing.T) {
	// 12 images, keep 1: toRemove=11 -> 10 removed, 2 remain.
	log := []conv.Message{
		imageResult("t1", 4),
		imageResult("t2", 3),
		imageResult("t3", 5),
	}
	before := nonImageBlockCount(log)

	removed := RetainRecentImages(log, 1, 10)
	if removed != 10 {
		t.Fatalf("expected 10 removed, got %d", removed)
	}
	if got := countImages(log); got != 2 {
		t.Fatalf("expected 2 images remaining, got %d", got)
	}

	// The survivors must be the newest: the last 2 in the last result.
	for i := 0; i < 2; i++ {
		tr := log[i].Content[0].(conv.ToolResultBlock)
		for _, b := range tr.Content {
			if _, isImage := b.(conv.ImageBlock); isImage {
				t.Fatalf("message %d should have no images left", i)
			}
		}
	}

	// Non-image content is untouched.
	if after := nonImageBlockCount(log); after != before {
		t.Fatalf("non-image blocks changed: %d -> %d", before, after)
	}
}

func TestRetainRecentImages_DisabledWhenNegative(t *testing.T) {
	log := []conv.Message{imageResult("t1", 20)}
	if removed := RetainRecentImages(log, -1, 10); removed != 0 {
		t.Fatalf("negative keep must disable the policy, removed %d", removed)
	}
}

func TestRetainRecentImages_ExactMultiple(t *testing.T) {
	log := []conv.Message{imageResult("t1", 25)}
	removed := RetainRecentImages(log, 5, 10)
	if removed != 20 {
		t.Fatalf("expected 20 removed, got %d", removed)
	}
	if got := countImages(log); got != 5 {
		t.Fatalf("expected 5 remaining, got %d", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	log := []conv.Message{
		{Role: conv.RoleUser, Content: []conv.Block{conv.TextBlock{Text: strings.Repeat("a", 400)}}},
	}
	if got := EstimateTokens(log); got != 100 {
		t.Fatalf("expected 100 tokens, got %d", got)
	}
}

func TestPrunerNoOpUnderThreshold(t *testing.T) {
	p := NewPruner(DefaultPruneConfig())
	log := []conv.Message{
		conv.NewUserText("hello"),
		{Role: conv.RoleAssistant, Content: []conv.Block{conv.TextBlock{Text: "hi"}}},
	}
	pruned := p.Prune(log)
	if len(pruned) != 2 {
		t.Fatalf("expected no-op, got %d messages", len(pruned))
	}
}

func TestPrunerSummarizesOlderSegment(t *testing.T) {
	cfg := DefaultPruneConfig()
	cfg.MaxMessages = 10
	cfg.RetainRecent = 3
	cfg.SummaryInterval = 5
	p := NewPruner(cfg)

	var log []conv.Message
	for i := 0; i < 20; i++ {
		role := conv.RoleUser
		if i%2 == 1 {
			role = conv.RoleAssistant
		}
		log = append(log, conv.Message{Role: role, Content: []conv.Block{
			conv.TextBlock{Text: strings.Repeat("word ", 10)},
		}})
	}

	pruned := p.Prune(log)
	// 1 summary + 3 recent
	if len(pruned) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(pruned))
	}
	if pruned[0].Role != conv.RoleSystem {
		t.Fatalf("first message should be the synthetic summary, got role %s", pruned[0].Role)
	}
	if !strings.Contains(pruned[0].Text(), "summary") {
		t.Fatalf("summary header missing: %q", pruned[0].Text())
	}
	for i := 0; i < 3; i++ {
		if pruned[1+i].Text() != log[17+i].Text() {
			t.Fatal("recent messages must survive verbatim")
		}
	}
}

func TestPrunerKeepsImportantMessages(t *testing.T) {
	cfg := DefaultPruneConfig()
	cfg.MaxMessages = 5
	cfg.RetainRecent = 2
	cfg.SummaryInterval = 50 // force the importance path
	p := NewPruner(cfg)

	log := []conv.Message{
		conv.NewUserText("set up the project"),                         // 0: first, kept
		{Role: conv.RoleAssistant, Content: []conv.Block{conv.TextBlock{Text: "ok"}}}, // 1: dropped
		conv.NewUserText("which database should we use?"),              // 2: question, kept
		{Role: conv.RoleAssistant, Content: []conv.Block{conv.TextBlock{Text: "sqlite"}}}, // 3: successor, kept
		conv.NewUserText("fine"),                                       // 4: dropped
		conv.NewUserText("decision: sqlite with WAL"),                  // 5: keyword, kept
		conv.NewUserText("latest one"),                                 // recent
		{Role: conv.RoleAssistant, Content: []conv.Block{conv.TextBlock{Text: "done"}}}, // recent
	}

	pruned := p.Prune(log)

	texts := make([]string, 0, len(pruned))
	for i := range pruned {
		texts = append(texts, pruned[i].Text())
	}
	joined := strings.Join(texts, "|")

	for _, want := range []string{"set up the project", "which database", "sqlite", "decision:", "latest one", "done"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("pruned log missing %q: %v", want, texts)
		}
	}
	if strings.Contains(joined, "|fine|") {
		t.Fatal("unimportant message should have been dropped")
	}
}

func TestPrunerNeverStrandsToolPairs(t *testing.T) {
	cfg := DefaultPruneConfig()
	cfg.MaxMessages = 3
	cfg.RetainRecent = 2
	cfg.SummaryInterval = 50
	p := NewPruner(cfg)

	// The tool_use sits in the older segment (and is not important), its
	// result in the retained tail. Pruning must not leave the orphan.
	log := []conv.Message{
		conv.NewUserText("start"),
		{Role: conv.RoleAssistant, Content: []conv.Block{
			conv.ToolUseBlock{ID: "tu_9", Name: "shell", Input: json.RawMessage(`{}`)},
		}},
		conv.NewToolResults([]conv.ToolResultBlock{
			{ToolUseID: "tu_9", Content: []conv.Block{conv.TextBlock{Text: "out"}}},
		}),
		{Role: conv.RoleAssistant, Content: []conv.Block{conv.TextBlock{Text: "done"}}},
	}

	pruned := p.Prune(log)

	useIDs := make(map[string]bool)
	for i := range pruned {
		for _, u := range pruned[i].ToolUses() {
			useIDs[u.ID] = true
		}
	}
	for i := range pruned {
		for _, r := range pruned[i].ToolResults() {
			if !useIDs[r.ToolUseID] {
				t.Fatalf("stranded tool_result %s after pruning", r.ToolUseID)
			}
		}
	}
}

func TestRepairPairingDropsBothSides(t *testing.T) {
	log := []conv.Message{
		{Role: conv.RoleAssistant, Content: []conv.Block{
			conv.ToolUseBlock{ID: "a", Name: "shell", Input: json.RawMessage(`{}`)},
		}},
		conv.NewToolResults([]conv.ToolResultBlock{
			{ToolUseID: "b", Content: []conv.Block{conv.TextBlock{Text: "orphan"}}},
		}),
	}
	repaired := repairPairing(log)
	if len(repaired) != 0 {
		t.Fatalf("both orphaned messages should be dropped, got %d", len(repaired))
	}
}
