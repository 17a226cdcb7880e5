// Copyright 2026 The Sheetloom Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package anthropic adapts Claude's Messages API to the LLMProvider
// contract, built on the official anthropic-sdk-go client.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/winkovo0818/ai-data-analyst/pkg/llm"
	"github.com/winkovo0818/ai-data-analyst/pkg/types"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultMaxTokens bounds a single completion.
	DefaultMaxTokens = 4096
	// DefaultTemperature is Claude's default sampling temperature.
	DefaultTemperature = 1.0
	// DefaultTimeout bounds a single Messages API call.
	DefaultTimeout = 60 * time.Second
)

var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

// DefaultRateLimiterConfig is conservative enough for Claude's standard
// tier while still letting a single agent session make steady progress.
func DefaultRateLimiterConfig() llm.RateLimiterConfig {
	return llm.RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,
		TokensPerMinute:   80000,
		BurstCapacity:     3,
		MinDelay:          200 * time.Millisecond,
		MaxRetries:        5,
		RetryBackoff:      1 * time.Second,
		QueueTimeout:      5 * time.Minute,
	}
}

func sharedRateLimiter(cfg llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		globalRateLimiter = llm.NewRateLimiter(cfg)
	})
	return globalRateLimiter
}

// Config configures Client.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	RateLimiterConfig  llm.RateLimiterConfig
	DisableRateLimiter bool
}

// Client implements types.LLMProvider and types.StreamingLLMProvider
// against Claude's Messages API.
type Client struct {
	sdk         sdk.Client
	model       string
	maxTokens   int64
	temperature float64
	rateLimiter *llm.RateLimiter
	toolNameMap map[string]string
}

var _ types.LLMProvider = (*Client)(nil)
var _ types.StreamingLLMProvider = (*Client)(nil)

// NewClient builds a Client, filling in defaults and environment
// fallbacks the way the rest of the factory package expects.
func NewClient(config Config) *Client {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	model := config.Model
	if model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			model = envModel
		} else {
			model = DefaultModel
		}
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}

	var rateLimiter *llm.RateLimiter
	if !config.DisableRateLimiter {
		rlConfig := config.RateLimiterConfig
		if rlConfig.RequestsPerSecond == 0 {
			rlConfig = DefaultRateLimiterConfig()
		}
		rateLimiter = sharedRateLimiter(rlConfig)
	}

	return &Client{
		sdk:         sdk.NewClient(opts...),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
		rateLimiter: rateLimiter,
		toolNameMap: make(map[string]string),
	}
}

func (c *Client) Name() string  { return "anthropic" }
func (c *Client) Model() string { return c.model }

// Chat sends one non-streaming turn to Claude.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []types.ToolDeclaration) (*types.LLMResponse, error) {
	params := c.buildParams(messages, tools)

	resp, err := c.callAPI(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.convertResponse(resp), nil
}

// ChatStream streams the assistant's text content to cb as it arrives,
// and returns the same aggregate LLMResponse Chat would have produced
// (including any tool calls, which providers do not usefully stream).
func (c *Client) ChatStream(ctx context.Context, messages []types.Message, tools []types.ToolDeclaration, cb types.TokenCallback) (*types.LLMResponse, error) {
	params := c.buildParams(messages, tools)

	call := func(ctx context.Context) (interface{}, error) {
		return c.streamOnce(ctx, params, cb)
	}

	var result interface{}
	var err error
	if c.rateLimiter != nil {
		result, err = c.rateLimiter.Do(ctx, call)
	} else {
		result, err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result.(*types.LLMResponse), nil
}

func (c *Client) streamOnce(ctx context.Context, params sdk.MessageNewParams, cb types.TokenCallback) (*types.LLMResponse, error) {
	stream := c.sdk.Messages.NewStreaming(ctx, params)

	var textContent string
	var stopReason string
	var usage sdk.Usage

	type pendingToolCall struct {
		id         string
		name       string
		inputJSON  string
	}
	pending := map[int64]*pendingToolCall{}
	var order []int64

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			usage = start.Message.Usage
		case "content_block_start":
			blockStart := event.AsContentBlockStart()
			if tu := blockStart.ContentBlock.AsToolUse(); tu.ID != "" {
				pending[blockStart.Index] = &pendingToolCall{id: tu.ID, name: tu.Name}
				order = append(order, blockStart.Index)
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			if delta.Delta.Text != "" {
				textContent += delta.Delta.Text
				if cb != nil {
					cb(delta.Delta.Text)
				}
			}
			if delta.Delta.PartialJSON != "" {
				if tc, ok := pending[delta.Index]; ok {
					tc.inputJSON += delta.Delta.PartialJSON
				}
			}
		case "message_delta":
			md := event.AsMessageDelta()
			stopReason = string(md.Delta.StopReason)
			usage.OutputTokens = md.Usage.OutputTokens
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	toolCalls := make([]types.ToolCall, 0, len(order))
	for _, idx := range order {
		tc := pending[idx]
		var input map[string]interface{}
		if tc.inputJSON != "" {
			if err := json.Unmarshal([]byte(tc.inputJSON), &input); err != nil {
				input = map[string]interface{}{}
			}
		}
		toolCalls = append(toolCalls, types.ToolCall{
			ID:    tc.id,
			Name:  llm.ReverseToolName(c.toolNameMap, tc.name),
			Input: input,
		})
	}

	cost, costUnknown := c.calculateCost(int(usage.InputTokens), int(usage.OutputTokens), int(usage.CacheReadInputTokens), int(usage.CacheCreationInputTokens))
	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(usage.InputTokens + usage.OutputTokens)
	}

	return &types.LLMResponse{
		Content:    textContent,
		ToolCalls:  toolCalls,
		StopReason: stopReason,
		Usage: types.Usage{
			InputTokens:  int(usage.InputTokens),
			OutputTokens: int(usage.OutputTokens),
			TotalTokens:  int(usage.InputTokens + usage.OutputTokens),
			CostUSD:      cost,
			CostUnknown:  costUnknown,
		},
	}, nil
}

func (c *Client) buildParams(messages []types.Message, tools []types.ToolDeclaration) sdk.MessageNewParams {
	var systemPrompt string
	msgs := make([]sdk.MessageParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += m.Content
		case "user":
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "assistant":
			blocks := []sdk.ContentBlockParamUnion{}
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input, _ := json.Marshal(tc.Input)
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, json.RawMessage(input), llm.SanitizeToolName(tc.Name)))
			}
			msgs = append(msgs, sdk.NewAssistantMessage(blocks...))
		case "tool":
			var payload string
			isErr := false
			if m.ToolResult != nil {
				if m.ToolResult.Success {
					encoded, _ := json.Marshal(m.ToolResult.Payload)
					payload = string(encoded)
				} else {
					payload = m.ToolResult.Error
					isErr = true
				}
			}
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, payload, isErr)))
		}
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    msgs,
		Temperature: sdk.Opt(c.temperature),
	}

	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{
			{Text: systemPrompt, CacheControl: sdk.NewCacheControlEphemeralParam()},
		}
	}

	if len(tools) > 0 {
		params.Tools = c.convertTools(tools)
	}

	return params
}

func (c *Client) convertTools(tools []types.ToolDeclaration) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for i, t := range tools {
		sanitized := llm.SanitizeToolName(t.Name)
		c.toolNameMap[sanitized] = t.Name

		props, _ := t.InputSchema["properties"].(map[string]interface{})
		var required []string
		if req, ok := t.InputSchema["required"].([]string); ok {
			required = req
		} else if req, ok := t.InputSchema["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}

		toolParam := sdk.ToolParam{
			Name:        sanitized,
			Description: sdk.Opt(t.Description),
			InputSchema: sdk.ToolInputSchemaParam{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		}
		// Cache the tool list after the last entry: the schemas rarely
		// change within a session and are worth caching alongside the
		// system prompt.
		if i == len(tools)-1 {
			toolParam.CacheControl = sdk.NewCacheControlEphemeralParam()
		}
		out = append(out, sdk.ToolUnionParam{OfTool: &toolParam})
	}
	return out
}

func (c *Client) convertResponse(resp *sdk.Message) *types.LLMResponse {
	var content string
	var toolCalls []types.ToolCall

	for _, blk := range resp.Content {
		if text := blk.AsText(); text.Text != "" {
			content += text.Text
		}
		if tu := blk.AsToolUse(); tu.ID != "" {
			var input map[string]interface{}
			_ = json.Unmarshal(tu.Input, &input)
			toolCalls = append(toolCalls, types.ToolCall{
				ID:    tu.ID,
				Name:  llm.ReverseToolName(c.toolNameMap, tu.Name),
				Input: input,
			})
		}
	}

	cost, costUnknown := c.calculateCost(int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), int(resp.Usage.CacheReadInputTokens), int(resp.Usage.CacheCreationInputTokens))
	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	}

	return &types.LLMResponse{
		Content:    content,
		ToolCalls:  toolCalls,
		StopReason: string(resp.StopReason),
		Usage: types.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
			CostUSD:      cost,
			CostUnknown:  costUnknown,
		},
	}
}

func (c *Client) callAPI(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	call := func(ctx context.Context) (interface{}, error) {
		return c.sdk.Messages.New(ctx, params)
	}

	if c.rateLimiter == nil {
		resp, err := call(ctx)
		if err != nil {
			return nil, err
		}
		return resp.(*sdk.Message), nil
	}

	result, err := c.rateLimiter.Do(ctx, call)
	if err != nil {
		return nil, err
	}
	return result.(*sdk.Message), nil
}

// calculateCost prices a completion against the published per-model rate
// card. Cache writes cost 1.25x the input rate, cache reads 0.10x. Models
// we don't recognize report costUnknown rather than guessing a price.
func (c *Client) calculateCost(inputTokens, outputTokens, cacheReadTokens, cacheCreationTokens int) (cost float64, costUnknown bool) {
	var inputPricePerM, outputPricePerM float64

	switch c.model {
	case "claude-sonnet-4-5-20250929", "claude-sonnet-4-5", "claude-3-5-sonnet-20241022", "claude-3-5-sonnet-20240620", "claude-3-5-sonnet-latest":
		inputPricePerM, outputPricePerM = 3.0, 15.0
	case "claude-opus-4-1-20250805", "claude-opus-4-1", "claude-3-opus-20240229", "claude-3-opus-latest":
		inputPricePerM, outputPricePerM = 15.0, 75.0
	case "claude-3-5-haiku-20241022", "claude-3-5-haiku-latest", "claude-3-haiku-20240307":
		inputPricePerM, outputPricePerM = 0.8, 4.0
	default:
		return 0, true
	}

	inputCost := float64(inputTokens) / 1_000_000 * inputPricePerM
	outputCost := float64(outputTokens) / 1_000_000 * outputPricePerM
	cacheWriteCost := float64(cacheCreationTokens) / 1_000_000 * inputPricePerM * 1.25
	cacheReadCost := float64(cacheReadTokens) / 1_000_000 * inputPricePerM * 0.10

	return inputCost + outputCost + cacheWriteCost + cacheReadCost, false
}
