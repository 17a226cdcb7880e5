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
package agent

import (
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/query"
	"github.com/winkovo0818/ai-data-analyst/pkg/visualization"
)

// EventType names one of the eight events the loop publishes.
type EventType string

const (
	EventStart       EventType = "start"
	EventStepStart   EventType = "step_start"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventAnswerChunk EventType = "answer_chunk"
	EventHeartbeat   EventType = "heartbeat"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is one entry in the loop's lazy, finite, non-restartable
// event stream. Only the fields relevant to Type are populated;
// pkg/server's SSE handler marshals the whole struct's non-zero fields
// into the event's JSON payload.
type Event struct {
	Type EventType

	// start
	TraceID string `json:"trace_id,omitempty"`

	// step_start
	Step     int `json:"step,omitempty"`
	MaxSteps int `json:"max_steps,omitempty"`

	// tool_call / tool_result
	Tool       string `json:"tool,omitempty"`
	ArgsDigest string `json:"args_digest,omitempty"`
	Success    bool   `json:"success,omitempty"`
	LatencyMs  int64  `json:"latency_ms,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`

	// answer_chunk
	Content string `json:"content,omitempty"`

	// complete / error
	Answer  string                       `json:"answer,omitempty"`
	Tables  []*query.Table               `json:"tables,omitempty"`
	Charts  []*visualization.ChartOutput `json:"charts,omitempty"`
	Trace   *observability.Trace         `json:"trace,omitempty"`
	Message string                       `json:"message,omitempty"`
}

// Response is the full AnalysisResponse returned by Run (the
// non-streaming counterpart of draining a RunStream channel to its
// terminal event).
type Response struct {
	Answer    string
	ErrorCode string
	Tables    []*query.Table
	Charts    []*visualization.ChartOutput
	Trace     *observability.Trace
}
