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

import "context"

// Tracer records the steps of one analysis, keyed by trace_id
// Steps are append-only and owned by a single trace_id.
//
// Thread-safe: RecordStep may be called from the Agent Loop's own
// goroutine only (one trace per request), but GetTrace may be read
// concurrently for a status endpoint or test assertion.
type Tracer interface {
	// StartTrace begins a new trace and returns its id.
	StartTrace(ctx context.Context) string

	// RecordStep appends a step to an existing trace. Unknown trace ids
	// are ignored (the caller has nothing to attach the step to).
	RecordStep(ctx context.Context, traceID string, step TraceStep)

	// EndTrace marks a trace as complete, fixing its EndedAt.
	EndTrace(ctx context.Context, traceID string)

	// GetTrace retrieves a trace by id.
	GetTrace(ctx context.Context, traceID string) (*Trace, bool)
}
