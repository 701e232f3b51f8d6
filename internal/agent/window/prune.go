package window

import (
	"fmt"
	"strings"

	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/logging"
)

// Token estimation constants. The chars-per-token heuristic is a coarse,
// replaceable policy, not a real tokenizer; it only needs to get the log
// under the threshold. Image tokens are estimated from payload size.
const (
	CharsPerTokenEstimate = 4
	imageCharEstimate     = 8000
)

// PruneConfig holds the knobs for the token-budget pruner.
type PruneConfig struct {
	MaxContextTokens int     `yaml:"max_context_tokens"` // model context budget (default 200000)
	PruneThreshold   float64 `yaml:"prune_threshold"`    // prune when estimate exceeds this fraction (default 0.8)
	MaxMessages      int     `yaml:"max_messages"`       // prune when message count exceeds this (default 120)
	RetainRecent     int     `yaml:"retain_recent"`      // most recent messages kept verbatim (default 5)
	SummaryInterval  int     `yaml:"summary_interval"`   // older segment collapses to a summary at this size (default 20)
	ImportantMin     int     `yaml:"important_min"`      // text length that marks a message important (default 200)
	SummarySnippet   int     `yaml:"summary_snippet"`    // chars kept per message in the summary (default 150)
}

// DefaultPruneConfig returns the pruner defaults.
func DefaultPruneConfig() PruneConfig {
	return PruneConfig{
		MaxContextTokens: 200000,
		PruneThreshold:   0.8,
		MaxMessages:      120,
		RetainRecent:     5,
		SummaryInterval:  20,
		ImportantMin:     200,
		SummarySnippet:   150,
	}
}

// decisionKeywords flag messages that record outcomes worth keeping.
var decisionKeywords = []string{"decision", "decided", "plan", "next steps", "agreed"}

// Pruner applies lossy, best-effort compaction to the older portion of the
// log while keeping recent turns verbatim. It never strands one half of a
// tool_use / tool_result pair.
type Pruner struct {
	cfg PruneConfig
}

// NewPruner builds a pruner, filling zero-valued config fields with
// defaults.
func NewPruner(cfg PruneConfig) *Pruner {
	def := DefaultPruneConfig()
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = def.MaxContextTokens
	}
	if cfg.PruneThreshold <= 0 {
		cfg.PruneThreshold = def.PruneThreshold
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.RetainRecent <= 0 {
		cfg.RetainRecent = def.RetainRecent
	}
	if cfg.SummaryInterval <= 0 {
		cfg.SummaryInterval = def.SummaryInterval
	}
	if cfg.ImportantMin <= 0 {
		cfg.ImportantMin = def.ImportantMin
	}
	if cfg.SummarySnippet <= 0 {
		cfg.SummarySnippet = def.SummarySnippet
	}
	return &Pruner{cfg: cfg}
}

// EstimateTokens returns the chars/4 token estimate for the log.
func EstimateTokens(log []conv.Message) int {
	chars := 0
	for i := range log {
		chars += estimateMessageChars(&log[i])
	}
	return chars / CharsPerTokenEstimate
}

func estimateMessageChars(msg *conv.Message) int {
	chars := 0
	var walk func(blocks []conv.Block)
	walk = func(blocks []conv.Block) {
		for _, b := range blocks {
			switch v := b.(type) {
			case conv.TextBlock:
				chars += len(v.Text)
			case conv.ToolUseBlock:
				chars += len(v.Name) + len(v.Input)
			case conv.ToolResultBlock:
				walk(v.Content)
			case conv.ThinkingBlock:
				chars += len(v.Thinking)
			case conv.ImageBlock:
				chars += imageCharEstimate
			}
		}
	}
	walk(msg.Content)
	return chars
}

// ShouldPrune reports whether the log has crossed either trigger.
func (p *Pruner) ShouldPrune(log []conv.Message) bool {
	if len(log) > p.cfg.MaxMessages {
		return true
	}
	limit := int(float64(p.cfg.MaxContextTokens) * p.cfg.PruneThreshold)
	return EstimateTokens(log) > limit
}

// Prune returns the compacted log, or the input unchanged when neither
// trigger has fired. The last RetainRecent messages survive
// verbatim. The older segment either collapses into one synthetic summary
// message (when it is at least SummaryInterval messages long) or is
// filtered down to the task framing plus heuristically important messages.
func (p *Pruner) Prune(log []conv.Message) []conv.Message {
	if !p.ShouldPrune(log) {
		return log
	}
	if len(log) <= p.cfg.RetainRecent {
		return log
	}

	cut := len(log) - p.cfg.RetainRecent
	older := log[:cut]
	recent := log[cut:]

	var pruned []conv.Message
	if len(older) >= p.cfg.SummaryInterval {
		pruned = append(pruned, p.summarize(older))
	} else {
		pruned = append(pruned, p.filterImportant(older)...)
	}
	pruned = append(pruned, recent...)

	pruned = repairPairing(pruned)
	logging.Infof("[window] pruned log: %d -> %d messages (~%d tokens)",
		len(log), len(pruned), EstimateTokens(pruned))
	return pruned
}

// summarize collapses the older segment into a single system-role message
// of role-prefixed, truncated per-message text.
func (p *Pruner) summarize(older []conv.Message) conv.Message {
	var sb strings.Builder
	sb.WriteString("[Earlier conversation summary]\n")
	for i := range older {
		text := strings.TrimSpace(older[i].Text())
		if text == "" {
			continue
		}
		if len(text) > p.cfg.SummarySnippet {
			text = text[:p.cfg.SummarySnippet] + "..."
		}
		fmt.Fprintf(&sb, "%s: %s\n", older[i].Role, text)
	}
	return conv.Message{
		Role:    conv.RoleSystem,
		Content: []conv.Block{conv.TextBlock{Text: sb.String()}},
	}
}

// filterImportant keeps the first message of the older segment (usually the
// task framing) plus anything the importance heuristic flags: long text, a
// question (kept together with its immediate successor), or a decision
// keyword.
func (p *Pruner) filterImportant(older []conv.Message) []conv.Message {
	keep := make(map[int]bool, len(older))
	keep[0] = true
	for i := range older {
		text := older[i].Text()
		if len(text) > p.cfg.ImportantMin {
			keep[i] = true
			continue
		}
		if strings.Contains(text, "?") {
			keep[i] = true
			if i+1 < len(older) {
				keep[i+1] = true
			}
			continue
		}
		lower := strings.ToLower(text)
		for _, kw := range decisionKeywords {
			if strings.Contains(lower, kw) {
				keep[i] = true
				break
			}
		}
	}

	var kept []conv.Message
	for i := range older {
		if keep[i] {
			kept = append(kept, older[i])
		}
	}
	return kept
}

// repairPairing drops stranded halves of tool_use / tool_result pairs. A
// tool_result whose tool_use was pruned away (or vice versa) would be
// rejected by the API, so orphans on either side are removed; messages left
// with no content are dropped entirely.
func repairPairing(log []conv.Message) []conv.Message {
	useIDs := make(map[string]bool)
	resultIDs := make(map[string]bool)
	for i := range log {
		for _, b := range log[i].Content {
			switch v := b.(type) {
			case conv.ToolUseBlock:
				useIDs[v.ID] = true
			case conv.ToolResultBlock:
				resultIDs[v.ToolUseID] = true
			}
		}
	}

	out := make([]conv.Message, 0, len(log))
	for i := range log {
		var kept []conv.Block
		for _, b := range log[i].Content {
			switch v := b.(type) {
			case conv.ToolUseBlock:
				if !resultIDs[v.ID] {
					continue
				}
			case conv.ToolResultBlock:
				if !useIDs[v.ToolUseID] {
					continue
				}
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			continue
		}
		log[i].Content = kept
		out = append(out, log[i])
	}
	return out
}
