package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/agent/tools"
	"github.com/droverhq/drover/internal/logging"
	"github.com/droverhq/drover/internal/modelinfo"
)

const interleavedThinkingBeta = "interleaved-thinking-2025-05-14"

// AnthropicClient implements Client over the official SDK with the
// non-streaming Messages endpoint.
type AnthropicClient struct {
	client  anthropic.Client
	catalog *modelinfo.Catalog
}

// NewAnthropicClient builds an adapter. The catalog gates thinking
// support and supplies output ceilings per model.
func NewAnthropicClient(apiKey string, catalog *modelinfo.Catalog) *AnthropicClient {
	if catalog == nil {
		catalog = modelinfo.NewCatalog()
	}
	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		catalog: catalog,
	}
}

// CreateMessage sends the conversation and returns one assistant turn.
// Errors are classified as TimeoutError or ProviderError; in both cases
// the caller's log is untouched and the request can be replayed.
func (c *AnthropicClient) CreateMessage(ctx context.Context, req *Request) (*Response, error) {
	total := requestTimeout(req.Params.TimeoutSeconds)
	caps, known := c.catalog.Lookup(req.Params.Model)
	if !known {
		logging.Warnf("ai: model %s not in catalog, using defaults", req.Params.Model)
	}

	params, betas := c.buildParams(req, caps)

	ctx, cancel := context.WithTimeout(ctx, total)
	defer cancel()

	opts := []option.RequestOption{
		option.WithHTTPClient(httpClientFor(total)),
	}
	for _, beta := range betas {
		opts = append(opts, option.WithHeaderAdd("anthropic-beta", beta))
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, classify(err, total)
	}

	resp := &Response{
		Content:    decodeContent(msg.Content),
		StopReason: string(msg.StopReason),
		Meta: ResponseMeta{
			RequestID:    msg.ID,
			Model:        string(msg.Model),
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	logging.Debugf("ai: %s stop=%s in=%d out=%d elapsed=%s",
		resp.Meta.Model, resp.StopReason, resp.Meta.InputTokens, resp.Meta.OutputTokens,
		time.Since(start).Round(time.Millisecond))
	return resp, nil
}

// buildParams assembles the SDK request, resolving max tokens and the
// thinking configuration against the model's capabilities.
func (c *AnthropicClient) buildParams(req *Request, caps modelinfo.Capabilities) (anthropic.MessageNewParams, []string) {
	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = caps.MaxOutputTokens
	}

	var betas []string
	var thinking *anthropic.ThinkingConfigParamUnion

	if req.Params.Thinking.Enabled {
		if !caps.SupportsThinking {
			logging.Warnf("ai: model %s does not support thinking, ignoring", req.Params.Model)
		} else {
			budget := req.Params.Thinking.BudgetTokens
			if budget == BudgetRecommended || budget <= 0 {
				budget = caps.RecommendedThinkingBudget
			}
			if req.Params.Thinking.Interleaved && caps.SupportsInterleavedThinking {
				// With interleaved thinking max_tokens may exceed the
				// output ceiling, up to the context window.
				betas = append(betas, interleavedThinkingBeta)
				if maxTokens > caps.ContextWindow {
					maxTokens = caps.ContextWindow
				}
			} else {
				if maxTokens > caps.MaxOutputTokens {
					maxTokens = caps.MaxOutputTokens
				}
				// The budget must leave room for the visible answer.
				if budget >= maxTokens {
					budget = maxTokens - 1
				}
			}
			if budget > 0 {
				cfg := anthropic.ThinkingConfigParamOfEnabled(int64(budget))
				thinking = &cfg
			}
		}
	} else if maxTokens > caps.MaxOutputTokens {
		maxTokens = caps.MaxOutputTokens
	}

	system, messages := encodeConversation(req.System, req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Params.Model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if thinking != nil {
		params.Thinking = *thinking
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	return params, betas
}

// httpClientFor builds a transport whose header deadline follows the
// per-request timeout while connect and write stay fixed.
func httpClientFor(total time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			TLSHandshakeTimeout:   ConnectTimeout,
			ResponseHeaderTimeout: ReadTimeout(total),
			ExpectContinueTimeout: WriteTimeout,
		},
	}
}

// encodeTools converts registry descriptors to the SDK's tool params.
func encodeTools(descs []tools.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		var schema map[string]any
		if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
			logging.Warnf("ai: bad schema for tool %s: %v", d.Name, err)
			continue
		}
		tool := anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		}
		if required, ok := schema["required"].([]any); ok {
			names := make([]string, 0, len(required))
			for _, r := range required {
				if s, ok := r.(string); ok {
					names = append(names, s)
				}
			}
			tool.InputSchema.Required = names
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return out
}

// encodeConversation converts the log to SDK messages. System-role
// messages (compaction summaries) have no wire equivalent, so they fold
// into the system prompt in order.
func encodeConversation(system string, msgs []conv.Message) (string, []anthropic.MessageParam) {
	var systemParts []string
	if system != "" {
		systemParts = append(systemParts, system)
	}

	var out []anthropic.MessageParam
	for _, m := range msgs {
		switch m.Role {
		case conv.RoleSystem:
			if text := m.Text(); text != "" {
				systemParts = append(systemParts, text)
			}
		case conv.RoleUser:
			if blocks := encodeBlocks(m.Content); len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case conv.RoleAssistant:
			if blocks := encodeBlocks(m.Content); len(blocks) > 0 {
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			}
		}
	}
	return strings.Join(systemParts, "\n\n"), out
}

func encodeBlocks(blocks []conv.Block) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch block := b.(type) {
		case conv.TextBlock:
			if block.Text == "" {
				continue
			}
			out = append(out, anthropic.NewTextBlock(block.Text))
		case conv.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(block.Input, &input); err != nil {
				input = map[string]any{}
			}
			out = append(out, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    block.ID,
					Name:  block.Name,
					Input: input,
				},
			})
		case conv.ToolResultBlock:
			out = append(out, encodeToolResult(block))
		case conv.ThinkingBlock:
			out = append(out, anthropic.ContentBlockParamUnion{
				OfThinking: &anthropic.ThinkingBlockParam{
					Thinking:  block.Thinking,
					Signature: block.Signature,
				},
			})
		case conv.RedactedThinkingBlock:
			out = append(out, anthropic.ContentBlockParamUnion{
				OfRedactedThinking: &anthropic.RedactedThinkingBlockParam{
					Data: block.Data,
				},
			})
		case conv.ImageBlock:
			out = append(out, anthropic.NewImageBlockBase64(
				block.MediaType,
				base64.StdEncoding.EncodeToString(block.Data),
			))
		}
	}
	return out
}

func encodeToolResult(block conv.ToolResultBlock) anthropic.ContentBlockParamUnion {
	result := anthropic.ToolResultBlockParam{ToolUseID: block.ToolUseID}
	if block.IsError {
		result.IsError = anthropic.Bool(true)
	}
	for _, inner := range block.Content {
		switch ib := inner.(type) {
		case conv.TextBlock:
			result.Content = append(result.Content, anthropic.ToolResultBlockParamContentUnion{
				OfText: &anthropic.TextBlockParam{Text: ib.Text},
			})
		case conv.ImageBlock:
			result.Content = append(result.Content, anthropic.ToolResultBlockParamContentUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfBase64: &anthropic.Base64ImageSourceParam{
							Data:      base64.StdEncoding.EncodeToString(ib.Data),
							MediaType: anthropic.Base64ImageSourceMediaType(ib.MediaType),
						},
					},
				},
			})
		}
	}
	return anthropic.ContentBlockParamUnion{OfToolResult: &result}
}

// decodeContent converts SDK response blocks back to log blocks.
func decodeContent(blocks []anthropic.ContentBlockUnion) []conv.Block {
	out := make([]conv.Block, 0, len(blocks))
	for _, b := range blocks {
		switch block := b.AsAny().(type) {
		case anthropic.TextBlock:
			out = append(out, conv.TextBlock{Text: block.Text})
		case anthropic.ToolUseBlock:
			out = append(out, conv.ToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: json.RawMessage(block.Input),
			})
		case anthropic.ThinkingBlock:
			out = append(out, conv.ThinkingBlock{
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		case anthropic.RedactedThinkingBlock:
			out = append(out, conv.RedactedThinkingBlock{Data: block.Data})
		default:
			logging.Warnf("ai: dropping unsupported response block %T", block)
		}
	}
	return out
}
