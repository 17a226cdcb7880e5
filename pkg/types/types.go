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

// Package types contains shared types used across the agent, llm and
// shuttle packages. Keeping them here breaks the import cycle that would
// otherwise exist between pkg/agent (which needs shuttle.Tool) and pkg/llm
// (which needs the message/tool-call shapes agent also needs).
package types

import (
	"context"
	"sync"
	"time"
)

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// Message is a single entry in the conversation history the Agent Loop
// carries between turns.
type Message struct {
	Role      string // system, user, assistant, tool
	Content   string
	ToolCalls []ToolCall

	// ToolCallID links a tool-role message back to the ToolCall it answers.
	ToolCallID string
	ToolResult *ToolResult

	Timestamp  time.Time
	TokenCount int
	CostUSD    float64
}

// ToolResult is the outcome of executing a ToolCall, carried in a
// tool-role Message so the LLM can see it on the next turn.
type ToolResult struct {
	CallID    string
	Success   bool
	Payload   interface{}
	ErrorCode string
	Error     string
}

// Usage tracks LLM token usage and cost for a single completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
	CostUnknown  bool
}

// LLMResponse is what an LLM Adapter call returns: either a terminal
// textual answer, or one or more tool calls.
type LLMResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// ToolDeclaration is the provider-agnostic shape of a tool the LLM may
// call, derived from a shuttle.Tool's name/description/schema.
type ToolDeclaration struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// TokenCallback is invoked for each streamed chunk of an LLM response.
type TokenCallback func(chunk string)

// LLMProvider is the capability set any LLM backend must expose: a flat
// interface rather than a provider class hierarchy.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDeclaration) (*LLMResponse, error)
	Name() string
	Model() string
}

// StreamingLLMProvider extends LLMProvider with token streaming.
// Providers that cannot stream simply don't implement it; the Agent Loop
// falls back to a synthetic single "full answer" chunk.
type StreamingLLMProvider interface {
	LLMProvider
	ChatStream(ctx context.Context, messages []Message, tools []ToolDeclaration, cb TokenCallback) (*LLMResponse, error)
}

// SupportsStreaming reports whether provider implements StreamingLLMProvider.
func SupportsStreaming(provider LLMProvider) bool {
	_, ok := provider.(StreamingLLMProvider)
	return ok
}

// Session holds the message sequence and accumulated cost/token counters
// for a single /analyze invocation. Thread-safe: the Agent Loop appends
// from one goroutine per request, but the HTTP layer may read counters
// concurrently for logging.
type Session struct {
	mu sync.RWMutex

	ID        string
	DatasetID string
	Messages  []Message

	CreatedAt time.Time
	UpdatedAt time.Time

	TotalCostUSD float64
	TotalTokens  int
}

// NewSession creates an empty session.
func NewSession(id, datasetID string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		DatasetID: datasetID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message and updates the running cost/token totals.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.TotalCostUSD += msg.CostUSD
	s.TotalTokens += msg.TokenCount
}

// GetMessages returns a copy of the conversation history.
func (s *Session) GetMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Totals returns the accumulated cost and token counters.
func (s *Session) Totals() (costUSD float64, tokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TotalCostUSD, s.TotalTokens
}
