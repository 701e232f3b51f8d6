// Package ai is the provider boundary. It defines the request/response
// types the runner speaks and the Anthropic adapter that carries them
// over the Messages API.
package ai

import (
	"context"

	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/agent/tools"
)

// BudgetRecommended asks the adapter to use the model's recommended
// thinking budget instead of an explicit token count.
const BudgetRecommended = -1

// ThinkingParams controls extended thinking for one request.
type ThinkingParams struct {
	Enabled      bool
	BudgetTokens int
	Interleaved  bool
}

// Params are the sampling parameters for a single request. The runner
// re-reads them every iteration, so changes apply mid-conversation.
type Params struct {
	Model          string
	MaxTokens      int
	TimeoutSeconds int
	Thinking       ThinkingParams
}

// Request is one createMessage call: the full conversation so far plus
// the tool advertisements and sampling parameters.
type Request struct {
	System   string
	Messages []conv.Message
	Tools    []tools.Descriptor
	Params   Params
}

// ResponseMeta carries provider bookkeeping for logging and accounting.
type ResponseMeta struct {
	RequestID    string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Response is the assistant turn as returned by the provider.
type Response struct {
	Content    []conv.Block
	StopReason string
	Meta       ResponseMeta
}

// Client sends one conversation snapshot and returns one assistant turn.
type Client interface {
	CreateMessage(ctx context.Context, req *Request) (*Response, error)
}
