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

// Package openai adapts OpenAI's chat completions API to the LLMProvider
// contract. No Go SDK for this API appears anywhere in the reference
// corpus, so the client speaks the wire format directly over net/http,
// the way the corpus itself does it.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/winkovo0818/ai-data-analyst/pkg/llm"
	"github.com/winkovo0818/ai-data-analyst/pkg/types"
)

var (
	globalRateLimiter     *llm.RateLimiter
	globalRateLimiterOnce sync.Once
)

const (
	DefaultModel       = "gpt-4o"
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0
)

// Config configures Client.
type Config struct {
	APIKey            string
	Model             string
	Endpoint          string
	Timeout           time.Duration
	MaxTokens         int
	Temperature       float64
	RateLimiterConfig llm.RateLimiterConfig
}

// Client implements types.LLMProvider and types.StreamingLLMProvider
// against OpenAI's chat completions endpoint.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	rateLimiter *llm.RateLimiter
}

var _ types.LLMProvider = (*Client)(nil)
var _ types.StreamingLLMProvider = (*Client)(nil)

// NewClient creates a Client, filling in defaults and environment
// fallbacks.
func NewClient(config Config) *Client {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Model == "" {
		if envModel := os.Getenv("OPENAI_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("OPENAI_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}

	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.RequestsPerSecond == 0 {
		config.RateLimiterConfig = llm.DefaultRateLimiterConfig()
	}
	if config.RateLimiterConfig.Enabled {
		rateLimiter = getOrCreateGlobalRateLimiter(config.RateLimiterConfig)
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		rateLimiter: rateLimiter,
		httpClient:  &http.Client{Timeout: config.Timeout},
	}
}

func getOrCreateGlobalRateLimiter(config llm.RateLimiterConfig) *llm.RateLimiter {
	globalRateLimiterOnce.Do(func() {
		globalRateLimiter = llm.NewRateLimiter(config)
	})
	return globalRateLimiter
}

func (c *Client) Name() string  { return "openai" }
func (c *Client) Model() string { return c.model }

// Chat sends one non-streaming turn to OpenAI.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []types.ToolDeclaration) (*types.LLMResponse, error) {
	req := &ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.convertMessages(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if apiTools := c.convertTools(tools); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	return c.convertResponse(resp), nil
}

func (c *Client) convertMessages(messages []types.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system", "user":
			out = append(out, ChatMessage{Role: msg.Role, Content: msg.Content})

		case "assistant":
			apiMsg := ChatMessage{Role: "assistant"}
			if msg.Content != "" {
				apiMsg.Content = msg.Content
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Input)
				if err != nil {
					argsJSON = []byte("{}")
				}
				apiMsg.ToolCalls = append(apiMsg.ToolCalls, ToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: FunctionCall{Name: tc.Name, Arguments: string(argsJSON)},
				})
			}
			out = append(out, apiMsg)

		case "tool":
			content := ""
			if msg.ToolResult != nil {
				if msg.ToolResult.Success {
					encoded, _ := json.Marshal(msg.ToolResult.Payload)
					content = string(encoded)
				} else {
					content = msg.ToolResult.Error
				}
			}
			out = append(out, ChatMessage{Role: "tool", Content: content, ToolCallID: msg.ToolCallID})
		}
	}
	return out
}

func (c *Client) convertTools(tools []types.ToolDeclaration) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func (c *Client) convertResponse(resp *ChatCompletionResponse) *types.LLMResponse {
	cost, costUnknown := c.calculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	llmResp := &types.LLMResponse{
		Usage: types.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
			CostUSD:      cost,
			CostUnknown:  costUnknown,
		},
	}

	if len(resp.Choices) == 0 {
		return llmResp
	}

	choice := resp.Choices[0]
	llmResp.StopReason = mapFinishReason(choice.FinishReason)

	if str, ok := choice.Message.Content.(string); ok {
		llmResp.Content = str
	}

	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			input = map[string]interface{}{}
		}
		llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	return llmResp
}

func mapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	default:
		return reason
	}
}

// calculateCost prices a completion against a small per-model table.
// Models not listed return costUnknown=true rather than silently
// guessing a price.
func (c *Client) calculateCost(inputTokens, outputTokens int) (cost float64, costUnknown bool) {
	var inputPerM, outputPerM float64

	switch c.model {
	case "gpt-4o":
		inputPerM, outputPerM = 2.50, 10.00
	case "gpt-4o-mini":
		inputPerM, outputPerM = 0.15, 0.60
	case "gpt-4-turbo", "gpt-4-turbo-preview":
		inputPerM, outputPerM = 10.00, 30.00
	case "gpt-4", "gpt-4-0613":
		inputPerM, outputPerM = 30.00, 60.00
	case "gpt-3.5-turbo", "gpt-3.5-turbo-0125":
		inputPerM, outputPerM = 0.50, 1.50
	case "o1-preview":
		inputPerM, outputPerM = 15.00, 60.00
	case "o1-mini":
		inputPerM, outputPerM = 3.00, 12.00
	default:
		return 0, true
	}

	return float64(inputTokens)*inputPerM/1_000_000 + float64(outputTokens)*outputPerM/1_000_000, false
}

// ChatStream streams OpenAI's SSE chat completion chunks to cb.
func (c *Client) ChatStream(ctx context.Context, messages []types.Message, tools []types.ToolDeclaration, cb types.TokenCallback) (*types.LLMResponse, error) {
	req := &ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.convertMessages(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
	}
	if apiTools := c.convertTools(tools); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.doHTTP(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("openai stream error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var contentBuffer strings.Builder
	usage := types.Usage{}
	var finishReason string
	toolCallMap := make(map[int]*types.ToolCall)
	argBuffers := make(map[int]string)
	var order []int

	scanner := bufio.NewScanner(httpResp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonData := strings.TrimPrefix(line, "data: ")
		if jsonData == "[DONE]" {
			break
		}

		var chunk ChatCompletionStreamChunk
		if err := json.Unmarshal([]byte(jsonData), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]

			if str, ok := choice.Delta.Content.(string); ok && str != "" {
				contentBuffer.WriteString(str)
				if cb != nil {
					cb(str)
				}
			}

			for _, tcDelta := range choice.Delta.ToolCalls {
				idx := tcDelta.Index
				if _, exists := toolCallMap[idx]; !exists {
					toolCallMap[idx] = &types.ToolCall{ID: tcDelta.ID, Name: tcDelta.Function.Name}
					order = append(order, idx)
				}
				if tcDelta.Function.Arguments != "" {
					argBuffers[idx] += tcDelta.Function.Arguments
				}
			}

			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}

		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
			usage.TotalTokens = chunk.Usage.TotalTokens
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	toolCalls := make([]types.ToolCall, 0, len(order))
	for _, idx := range order {
		tc := toolCallMap[idx]
		if argsStr := argBuffers[idx]; argsStr != "" {
			var input map[string]interface{}
			if err := json.Unmarshal([]byte(argsStr), &input); err == nil {
				tc.Input = input
			}
		}
		toolCalls = append(toolCalls, *tc)
	}

	if usage.TotalTokens == 0 {
		// The stream's final chunk sometimes omits usage entirely; fall
		// back to an estimate rather than leaving it at zero.
		usage.OutputTokens = llm.GetTokenCounter().CountTokens(contentBuffer.String())
		usage.TotalTokens = usage.OutputTokens
	}
	usage.CostUSD, usage.CostUnknown = c.calculateCost(usage.InputTokens, usage.OutputTokens)

	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(int64(usage.InputTokens + usage.OutputTokens))
	}

	return &types.LLMResponse{
		Content:    contentBuffer.String(),
		StopReason: mapFinishReason(finishReason),
		Usage:      usage,
		ToolCalls:  toolCalls,
	}, nil
}

func (c *Client) doHTTP(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.rateLimiter == nil {
		return c.httpClient.Do(req)
	}
	result, err := c.rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	return result.(*http.Response), nil
}

func (c *Client) callAPI(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.doHTTP(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("openai api error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	return &resp, nil
}
