// Package runner drives the agent loop: send the conversation, execute
// the tool calls the model makes, feed results back, repeat until the
// model answers with no tool calls.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/droverhq/drover/internal/agent/ai"
	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/agent/tools"
	"github.com/droverhq/drover/internal/agent/window"
	"github.com/droverhq/drover/internal/logging"
)

// DefaultMaxIterations bounds one Run. Each iteration is one model
// request plus its tool dispatches.
const DefaultMaxIterations = 100

var (
	// ErrBusy is returned when Run is called while another Run is in
	// flight on the same Runner.
	ErrBusy = errors.New("runner: a run is already in progress")

	// ErrMaxIterations is returned when the model keeps calling tools
	// past the iteration cap.
	ErrMaxIterations = errors.New("runner: reached maximum iterations")
)

// State describes what the runner is doing right now.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingModel State = "awaiting_model"
	StateRunningTools  State = "running_tools"
)

// Callbacks let the caller observe a run as it progresses. All callbacks
// are optional and are invoked from the Run goroutine.
type Callbacks struct {
	// OnAssistantContent fires once per model response with the full
	// assistant content, thinking and tool_use blocks included.
	OnAssistantContent func(blocks []conv.Block)

	// OnToolOutcome fires after each tool invocation. It is skipped for
	// outcomes with nothing to report.
	OnToolOutcome func(name string, outcome *tools.ToolOutcome)

	// OnResponseMeta fires once per model response with usage and
	// request bookkeeping.
	OnResponseMeta func(meta ai.ResponseMeta)
}

// Config holds the per-runner settings that are not sampling parameters.
type Config struct {
	SystemPrompt  string
	MaxIterations int

	// ImageRetainCount is how many recent tool-result images survive
	// window maintenance. Zero or negative disables eviction entirely.
	ImageRetainCount int

	// ImageRemovalChunk rounds eviction down to a multiple of this, so
	// the preserved prefix stays stable across requests. Zero means the
	// window package default.
	ImageRemovalChunk int

	Prune window.PruneConfig
}

// Runner owns one conversation log and runs the loop over it. A Runner
// admits one Run at a time; sampling parameters may be changed between
// or during runs and take effect on the next iteration.
type Runner struct {
	client   ai.Client
	registry *tools.Registry
	pruner   *window.Pruner
	cfg      Config

	runMu sync.Mutex // held for the duration of one Run

	mu     sync.Mutex // guards log, params, state
	log    []conv.Message
	params ai.Params
	state  State
}

// New builds a runner. The registry may be empty; the model then has no
// tools to call and every run finishes in one iteration.
func New(client ai.Client, registry *tools.Registry, cfg Config, params ai.Params) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ImageRetainCount <= 0 {
		cfg.ImageRetainCount = -1
	}
	if cfg.ImageRemovalChunk <= 0 {
		cfg.ImageRemovalChunk = window.DefaultMinRemovalChunk
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Runner{
		client:   client,
		registry: registry,
		pruner:   window.NewPruner(cfg.Prune),
		cfg:      cfg,
		params:   params,
		state:    StateIdle,
	}
}

// AppendUserTurn appends a user text message to the log.
func (r *Runner) AppendUserTurn(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, conv.NewUserText(text))
}

// LoadLog replaces the conversation log, typically when resuming a
// persisted session. Must not be called during a run.
func (r *Runner) LoadLog(log []conv.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = conv.CloneLog(log)
}

// Reset clears the conversation log.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}

// Log returns a deep copy of the conversation log.
func (r *Runner) Log() []conv.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return conv.CloneLog(r.log)
}

// State reports the runner's current activity.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetParams replaces the sampling parameters. The change applies from
// the next iteration, including mid-run.
func (r *Runner) SetParams(p ai.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = p
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes the loop until the model stops calling tools, the
// iteration cap is hit, or an error occurs. It returns a copy of the
// log in every case; on provider errors the log is exactly as it was
// before the failed request, so the caller can retry by calling Run
// again.
func (r *Runner) Run(ctx context.Context, cb Callbacks) ([]conv.Message, error) {
	if !r.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer r.runMu.Unlock()

	r.setState(StateAwaitingModel)
	defer r.setState(StateIdle)

	for iter := 0; iter < r.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return r.Log(), err
		}

		r.mu.Lock()
		params := r.params
		window.RetainRecentImages(r.log, r.cfg.ImageRetainCount, r.cfg.ImageRemovalChunk)
		r.log = r.pruner.Prune(r.log)
		snapshot := conv.CloneLog(r.log)
		r.mu.Unlock()

		r.setState(StateAwaitingModel)
		resp, err := r.client.CreateMessage(ctx, &ai.Request{
			System:   r.cfg.SystemPrompt,
			Messages: snapshot,
			Tools:    r.registry.Describe(),
			Params:   params,
		})
		if err != nil {
			return r.Log(), err
		}
		if cb.OnResponseMeta != nil {
			cb.OnResponseMeta(resp.Meta)
		}

		assistant := conv.Message{Role: conv.RoleAssistant, Content: resp.Content}
		r.mu.Lock()
		r.log = append(r.log, assistant)
		r.mu.Unlock()
		if cb.OnAssistantContent != nil {
			cb.OnAssistantContent(assistant.Content)
		}

		uses := assistant.ToolUses()
		if len(uses) == 0 {
			return r.Log(), nil
		}

		r.setState(StateRunningTools)
		results := make([]conv.ToolResultBlock, 0, len(uses))
		for _, use := range uses {
			results = append(results, r.dispatch(ctx, use, cb))
		}

		r.mu.Lock()
		r.log = append(r.log, conv.NewToolResults(results))
		r.mu.Unlock()
	}

	logging.Warnf("runner: stopping after %d iterations", r.cfg.MaxIterations)
	return r.Log(), ErrMaxIterations
}

// dispatch runs one tool call and renders its outcome as a tool_result
// block. Tool failures never abort the run; they go back to the model
// as error results.
func (r *Runner) dispatch(ctx context.Context, use conv.ToolUseBlock, cb Callbacks) conv.ToolResultBlock {
	outcome, err := r.registry.Invoke(ctx, use.Name, use.Input)
	if err != nil {
		var unknown *tools.UnknownToolError
		if errors.As(err, &unknown) {
			logging.Warnf("runner: model called unknown tool %s", use.Name)
			return conv.ToolResultBlock{
				ToolUseID: use.ID,
				IsError:   true,
				Content:   []conv.Block{conv.TextBlock{Text: fmt.Sprintf("Tool %s is invalid", use.Name)}},
			}
		}
		return conv.ToolResultBlock{
			ToolUseID: use.ID,
			IsError:   true,
			Content:   []conv.Block{conv.TextBlock{Text: err.Error()}},
		}
	}

	if outcome.IsEmpty() {
		// Pairing still requires a result block, even an empty one.
		return conv.ToolResultBlock{ToolUseID: use.ID, Content: []conv.Block{}}
	}
	if cb.OnToolOutcome != nil {
		cb.OnToolOutcome(use.Name, outcome)
	}
	logging.Debugf("runner: %s -> %d output chars, %d payload bytes",
		conv.ToolCallSummary(use), len(outcome.Output), len(outcome.Payload))
	return renderOutcome(use.ID, outcome)
}

// renderOutcome maps a tool outcome onto result blocks. An error outcome
// becomes a sole error text; otherwise output text, then the binary
// payload as an image, then the annotation wrapped as system guidance.
func renderOutcome(toolUseID string, outcome *tools.ToolOutcome) conv.ToolResultBlock {
	if outcome.Error != "" {
		return conv.ToolResultBlock{
			ToolUseID: toolUseID,
			IsError:   true,
			Content:   []conv.Block{conv.TextBlock{Text: outcome.Error}},
		}
	}

	var blocks []conv.Block
	if outcome.Output != "" {
		blocks = append(blocks, conv.TextBlock{Text: outcome.Output})
	}
	if len(outcome.Payload) > 0 {
		blocks = append(blocks, conv.ImageBlock{
			MediaType: outcome.PayloadMediaType,
			Data:      outcome.Payload,
		})
	}
	if outcome.Annotation != "" {
		blocks = append(blocks, conv.TextBlock{Text: "<system>" + outcome.Annotation + "</system>"})
	}
	return conv.ToolResultBlock{ToolUseID: toolUseID, Content: blocks}
}
