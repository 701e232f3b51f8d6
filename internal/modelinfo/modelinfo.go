// Package modelinfo holds the capability catalog for Anthropic models:
// context windows, output ceilings, and extended-thinking support. The
// built-in table covers current models; a models.yaml overlay in the data
// directory can extend or override it without a rebuild.
package modelinfo

import (
	"strings"
	"sync"
)

// Capabilities describes what a model can do and how big it is.
type Capabilities struct {
	ID                         string `yaml:"id"`
	DisplayName                string `yaml:"displayName,omitempty"`
	ContextWindow              int    `yaml:"contextWindow"`
	MaxOutputTokens            int    `yaml:"maxOutputTokens"`
	SupportsThinking           bool   `yaml:"supportsThinking"`
	SupportsInterleavedThinking bool  `yaml:"supportsInterleavedThinking"`
	RecommendedThinkingBudget  int    `yaml:"recommendedThinkingBudget,omitempty"`
}

// Fallback values applied when a model is not in the catalog.
const (
	DefaultContextWindow   = 200000
	DefaultMaxOutputTokens = 8192
)

// builtin is the compiled-in catalog. The overlay file can override any
// entry by ID or add models that shipped after this build.
var builtin = []Capabilities{
	{
		ID:                          "claude-opus-4-1",
		DisplayName:                 "Claude Opus 4.1",
		ContextWindow:               200000,
		MaxOutputTokens:             32000,
		SupportsThinking:            true,
		SupportsInterleavedThinking: true,
		RecommendedThinkingBudget:   16000,
	},
	{
		ID:                          "claude-sonnet-4-5",
		DisplayName:                 "Claude Sonnet 4.5",
		ContextWindow:               200000,
		MaxOutputTokens:             64000,
		SupportsThinking:            true,
		SupportsInterleavedThinking: true,
		RecommendedThinkingBudget:   10000,
	},
	{
		ID:                          "claude-sonnet-4-0",
		DisplayName:                 "Claude Sonnet 4",
		ContextWindow:               200000,
		MaxOutputTokens:             64000,
		SupportsThinking:            true,
		SupportsInterleavedThinking: true,
		RecommendedThinkingBudget:   10000,
	},
	{
		ID:                          "claude-haiku-4-5",
		DisplayName:                 "Claude Haiku 4.5",
		ContextWindow:               200000,
		MaxOutputTokens:             64000,
		SupportsThinking:            true,
		SupportsInterleavedThinking: false,
		RecommendedThinkingBudget:   5000,
	},
	{
		ID:              "claude-3-5-haiku",
		DisplayName:     "Claude 3.5 Haiku",
		ContextWindow:   200000,
		MaxOutputTokens: 8192,
	},
}

// Catalog resolves model IDs to capabilities. Lookups tolerate dated
// release suffixes, so "claude-sonnet-4-5-20250929" matches the
// "claude-sonnet-4-5" entry.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Capabilities
	order   []string
}

// NewCatalog returns a catalog seeded with the built-in table.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]Capabilities)}
	for _, caps := range builtin {
		c.put(caps)
	}
	return c
}

func (c *Catalog) put(caps Capabilities) {
	if _, seen := c.entries[caps.ID]; !seen {
		c.order = append(c.order, caps.ID)
	}
	c.entries[caps.ID] = caps
}

// Lookup returns the capabilities for a model ID. The second return is
// false when the model is unknown and the caller got conservative defaults.
func (c *Catalog) Lookup(model string) (Capabilities, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if caps, ok := c.entries[model]; ok {
		return caps, true
	}
	// Dated releases carry the catalog ID as a prefix.
	for _, id := range c.order {
		if strings.HasPrefix(model, id+"-") {
			return c.entries[id], true
		}
	}
	return Capabilities{
		ID:              model,
		ContextWindow:   DefaultContextWindow,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}, false
}

// Models lists catalog entries in declaration order.
func (c *Catalog) Models() []Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Capabilities, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// merge applies overlay entries on top of the current catalog.
func (c *Catalog) merge(overlay []Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, caps := range overlay {
		if caps.ID == "" {
			continue
		}
		c.put(caps)
	}
}
