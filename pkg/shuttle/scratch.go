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

import "context"

// lastTableScratch holds the most recently produced run_query Table for
// the duration of one request, so a later plot call in the same loop can
// reference it without the LLM re-sending the data. The pointer is local
// to one request and never shared.
type lastTableScratch struct {
	table interface{}
}

func (s *lastTableScratch) set(table interface{}) { s.table = table }
func (s *lastTableScratch) get() interface{}       { return s.table }

type scratchKey struct{}

// WithScratch attaches a fresh, request-scoped last-table slot to ctx.
// The Agent Loop calls this once per run, before dispatching any tool
// calls, so a singleton Executor can serve many concurrent requests
// without their query results bleeding into each other.
func WithScratch(ctx context.Context) context.Context {
	return context.WithValue(ctx, scratchKey{}, &lastTableScratch{})
}

// LastTableFromContext returns the most recent run_query result recorded
// against ctx's request scope, or nil if none has run yet or ctx was
// never wrapped with WithScratch.
func LastTableFromContext(ctx context.Context) interface{} {
	s, ok := ctx.Value(scratchKey{}).(*lastTableScratch)
	if !ok {
		return nil
	}
	return s.get()
}

func scratchFromContext(ctx context.Context) *lastTableScratch {
	s, _ := ctx.Value(scratchKey{}).(*lastTableScratch)
	return s
}
