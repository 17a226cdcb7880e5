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
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTracer keeps every trace in process memory. Good enough for the
// single-process case; traces are lost on restart.
type MemoryTracer struct {
	mu     sync.RWMutex
	traces map[string]*Trace
}

// NewMemoryTracer creates an empty in-memory tracer.
func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{traces: make(map[string]*Trace)}
}

func (t *MemoryTracer) StartTrace(ctx context.Context) string {
	traceID := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.traces[traceID] = &Trace{
		TraceID:   traceID,
		StartedAt: time.Now(),
	}
	return traceID
}

func (t *MemoryTracer) RecordStep(ctx context.Context, traceID string, step TraceStep) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trace, ok := t.traces[traceID]
	if !ok {
		return
	}
	trace.Steps = append(trace.Steps, step)
}

func (t *MemoryTracer) EndTrace(ctx context.Context, traceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trace, ok := t.traces[traceID]
	if !ok {
		return
	}
	trace.EndedAt = time.Now()
}

func (t *MemoryTracer) GetTrace(ctx context.Context, traceID string) (*Trace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	trace, ok := t.traces[traceID]
	if !ok {
		return nil, false
	}

	cloned := *trace
	cloned.Steps = make([]TraceStep, len(trace.Steps))
	copy(cloned.Steps, trace.Steps)
	return &cloned, true
}

var _ Tracer = (*MemoryTracer)(nil)
