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
package shuttle

import (
	"context"
	"time"
)

// Executor mediates between the LLM and the backend components:
// lookup, validate, invoke with a timeout, and hand back a Result
// with ExecutionTimeMs filled in. One Executor is shared by every
// request; the most-recent-Table pointer a `plot` call needs lives in
// the request's context instead (see WithScratch), so this struct holds
// no per-request state and is safe under concurrent /analyze calls.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a tool executor bound to a registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up toolName, validates params against its schema, and
// runs it under ctx. Unknown tools return UNKNOWN_TOOL; the call never
// panics back into the Agent Loop — every tool-level failure, including
// a per-call timeout (QUERY_TIMEOUT), is expressed as a Result with a
// structured Error. Only cancellation of the caller's ctx returns a
// non-nil error, since that represents the run being cancelled out from
// under the loop rather than a tool-level failure. Nil params are
// treated as an empty argument object.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}, timeout time.Duration) (*Result, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return &Result{
			Success: false,
			Error:   &Error{Code: "UNKNOWN_TOOL", Message: "no such tool: " + toolName},
		}, nil
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	if err := ValidateArgs(tool.InputSchema(), params); err != nil {
		return &Result{
			Success: false,
			Error:   &Error{Code: "BAD_TOOL_ARGS", Message: err.Error()},
		}, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := tool.Execute(runCtx, params)
	elapsed := time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return &Result{
				Success:         false,
				Error:           &Error{Code: "QUERY_TIMEOUT", Message: err.Error()},
				ExecutionTimeMs: elapsed.Milliseconds(),
			}, nil
		}
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return &Result{
			Success:         false,
			Error:           &Error{Code: "QUERY_FAILED", Message: err.Error()},
			ExecutionTimeMs: elapsed.Milliseconds(),
		}, nil
	}

	if result == nil {
		result = &Result{Success: true}
	}
	result.ExecutionTimeMs = elapsed.Milliseconds()

	if toolName == "run_query" && result.Success {
		if scratch := scratchFromContext(ctx); scratch != nil {
			scratch.set(result.Data)
		}
	}

	return result, nil
}
