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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFakeTool struct{}

func (t *failingFakeTool) Name() string            { return "failing" }
func (t *failingFakeTool) Description() string      { return "fake" }
func (t *failingFakeTool) InputSchema() *JSONSchema  { return nil }
func (t *failingFakeTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	return nil, errors.New("boom")
}

type slowFakeTool struct{}

func (t *slowFakeTool) Name() string           { return "slow" }
func (t *slowFakeTool) Description() string     { return "fake" }
func (t *slowFakeTool) InputSchema() *JSONSchema { return nil }
func (t *slowFakeTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return &Result{Success: true}, nil
	}
}

type requiredArgsFakeTool struct{}

func (t *requiredArgsFakeTool) Name() string        { return "needs_args" }
func (t *requiredArgsFakeTool) Description() string  { return "fake" }
func (t *requiredArgsFakeTool) InputSchema() *JSONSchema {
	return NewObjectSchema("args", map[string]*JSONSchema{"dataset_id": NewStringSchema("id")}, []string{"dataset_id"})
}
func (t *requiredArgsFakeTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	return &Result{Success: true}, nil
}

func TestExecutorReturnsUnknownToolError(t *testing.T) {
	executor := NewExecutor(NewRegistry())

	result, err := executor.Execute(context.Background(), "nope", nil, 0)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "UNKNOWN_TOOL", result.Error.Code)
}

func TestExecutorReturnsBadToolArgsOnSchemaViolation(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&requiredArgsFakeTool{})
	executor := NewExecutor(reg)

	result, err := executor.Execute(context.Background(), "needs_args", map[string]interface{}{}, 0)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "BAD_TOOL_ARGS", result.Error.Code)
}

func TestExecutorWrapsToolErrorAsQueryFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&failingFakeTool{})
	executor := NewExecutor(reg)

	result, err := executor.Execute(context.Background(), "failing", nil, 0)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "QUERY_FAILED", result.Error.Code)
}

func TestExecutorReturnsQueryTimeoutWhenDeadlineExceeded(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&slowFakeTool{})
	executor := NewExecutor(reg)

	result, err := executor.Execute(context.Background(), "slow", nil, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "QUERY_TIMEOUT", result.Error.Code)
}

func TestExecutorPropagatesOuterCancellationAsError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&slowFakeTool{})
	executor := NewExecutor(reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, "slow", nil, 0)
	assert.Error(t, err)
}

func TestExecutorFillsExecutionTimeOnSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoFakeTool{})
	executor := NewExecutor(reg)

	result, err := executor.Execute(context.Background(), "echo", nil, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))
}
