// Package window keeps the conversation log within size bounds before each
// outbound request. Two independent policies: fine-grained image retention
// applied every iteration, and coarse token-budget pruning applied when a
// threshold is crossed.
package window

import (
	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/logging"
)

// DefaultMinRemovalChunk batches image evictions so repeated requests keep
// a stable prefix for the provider's prompt cache. Evicting one image per
// turn would invalidate the cache on every request.
const DefaultMinRemovalChunk = 10

// RetainRecentImages evicts the oldest images nested in tool_result blocks
// so that at most keep remain, removing in multiples of minRemovalChunk.
// Eviction order is strictly chronological across the whole log. Sibling
// text and annotation blocks are never touched. keep < 0 disables the
// policy. Returns the number of images removed.
func RetainRecentImages(log []conv.Message, keep, minRemovalChunk int) int {
	if keep < 0 {
		return 0
	}
	if minRemovalChunk <= 0 {
		minRemovalChunk = 1
	}

	total := countImages(log)
	toRemove := total - keep
	if toRemove <= 0 {
		return 0
	}
	toRemove -= toRemove % minRemovalChunk
	if toRemove == 0 {
		return 0
	}

	removed := 0
	for mi := range log {
		for ci, block := range log[mi].Content {
			tr, ok := block.(conv.ToolResultBlock)
			if !ok {
				continue
			}
			kept := tr.Content[:0:0]
			for _, inner := range tr.Content {
				if _, isImage := inner.(conv.ImageBlock); isImage && removed < toRemove {
					removed++
					continue
				}
				kept = append(kept, inner)
			}
			if len(kept) != len(tr.Content) {
				tr.Content = kept
				log[mi].Content[ci] = tr
			}
		}
		if removed == toRemove {
			break
		}
	}

	if removed > 0 {
		logging.Infof("[window] evicted %d of %d images (keeping %d)", removed, total, total-removed)
	}
	return removed
}

func countImages(log []conv.Message) int {
	n := 0
	for mi := range log {
		for _, block := range log[mi].Content {
			tr, ok := block.(conv.ToolResultBlock)
			if !ok {
				continue
			}
			for _, inner := range tr.Content {
				if _, isImage := inner.(conv.ImageBlock); isImage {
					n++
				}
			}
		}
	}
	return n
}
