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

// Package observability accumulates the per-step trace of one analysis
// behind a small Tracer interface, with an
// in-memory implementation for the single-process case and a
// modernc.org/sqlite-backed implementation for durable post-mortem.
package observability

import "time"

// TraceStep is one append-only record within a trace.
type TraceStep struct {
	StepIndex  int
	ToolName   string
	ArgsDigest string
	LatencyMs  int64
	RowCount   *int
	Tokens     *int
	CostUSD    *float64
	Success    bool
	ErrorCode  string
}

// Trace is the ordered record of one analysis, keyed by TraceID.
type Trace struct {
	TraceID   string
	StartedAt time.Time
	EndedAt   time.Time
	Steps     []TraceStep
}

// TotalSteps returns len(Steps), the invariant checked against MAX_STEPS
// for post-mortem replay.
func (t *Trace) TotalSteps() int {
	return len(t.Steps)
}

// DurationMs returns the elapsed time between StartTrace and EndTrace
// (or now, if still open).
func (t *Trace) DurationMs() int64 {
	end := t.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(t.StartedAt).Milliseconds()
}
