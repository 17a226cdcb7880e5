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

// Package agent implements the Agent Loop: the bounded
// iteration of LLM call -> tool dispatch -> result append, terminating
// in a textual answer or one of the taxonomy's terminal error codes.
package agent

import "time"

// Config carries the hard budgets of the loop, loaded by
// pkg/config and passed to NewLoop.
type Config struct {
	MaxSteps     int
	Deadline     time.Duration
	MaxRows      int
	QueryTimeout time.Duration

	// CostCeiling is optional; zero disables it and the trace simply
	// reports actual spend with no cap.
	CostCeiling float64

	// HeartbeatInterval is how often the loop emits a keepalive
	// heartbeat event while a run is in flight, independent of step
	// progress, so long-lived transports (SSE) don't idle-timeout
	// during a slow tool call or LLM round trip.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the loop's default budgets.
func DefaultConfig() Config {
	return Config{
		MaxSteps:          8,
		Deadline:          60 * time.Second,
		MaxRows:           10000,
		QueryTimeout:      30 * time.Second,
		CostCeiling:       0,
		HeartbeatInterval: 15 * time.Second,
	}
}

// maxConsecutiveToolFailures caps repeated QUERY_FAILED retries of the
// same tool before the loop gives up and answers with partial evidence
// (the loop's retry policy).
const maxConsecutiveToolFailures = 2

// providerRetryBackoffs are the exponential backoff delays for a
// provider error (network/5xx), one bounded retry per call
// (the agent loop's step/time budget).
var providerRetryBackoffs = []time.Duration{250 * time.Millisecond, 1 * time.Second}
