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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/query"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/types"
	"github.com/winkovo0818/ai-data-analyst/pkg/visualization"
)

// state is one of the six states of the Agent Loop's state machine, plus
// its two terminal branches.
type state int

const (
	stateInit state = iota
	stateThinking
	stateDispatch
	stateToolRun
	stateAnswering
	stateDone
	stateFailed
	stateBudgetExhausted
)

// Loop drives the prompt<->tool cycle. One Loop is stateless
// and safe to reuse across requests; all per-request state lives in the
// run created by Run/RunStream.
type Loop struct {
	provider types.LLMProvider
	registry *shuttle.Registry
	executor *shuttle.Executor
	tracer   observability.Tracer
	datasets *dataset.Registry
	config   Config
	logger   *zap.Logger
}

// NewLoop wires the Agent Loop to its collaborators: the LLM Adapter
// proposes the next action, the Tool Executor dispatches tool calls,
// which in turn validates arguments and invokes the backend engines.
func NewLoop(provider types.LLMProvider, registry *shuttle.Registry, executor *shuttle.Executor, tracer observability.Tracer, datasets *dataset.Registry, config Config, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		provider: provider,
		registry: registry,
		executor: executor,
		tracer:   tracer,
		datasets: datasets,
		config:   config,
		logger:   logger,
	}
}

// run carries the per-request mutable state: session/turn counters,
// narrowed to the 6-state machine.
type run struct {
	loop *Loop

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan Event
	traceID string
	step    int
	session *types.Session

	tables []*query.Table
	charts []*visualization.ChartOutput

	// consecutiveFailures tracks repeated QUERY_FAILED for the same tool
	// capped at two consecutive failures of the same tool.
	consecutiveFailures map[string]int

	// pendingCalls/pendingAnswer carry think()'s result across to the
	// DISPATCH/ANSWERING states without widening the public Event shape.
	pendingCalls    []types.ToolCall
	pendingAnswer   string
	exhaustedReason string

	// stepUsage is the token/cost usage of the assistant turn that
	// produced pendingCalls, so runTool can attribute it to the
	// TraceStep the tool calls it triggered.
	stepUsage types.Usage

	startedAt time.Time
}

// RunStream starts one analysis and returns a channel of events. The
// channel is closed after the terminal `complete` or `error` event.
// Cancelling ctx aborts the in-flight suspension point and emits
// `error{CANCELLED}`; running past config.Deadline instead synthesizes
// a best-effort `complete{BUDGET_EXHAUSTED}` from whatever was found.
func (l *Loop) RunStream(ctx context.Context, question, datasetID string) <-chan Event {
	runCtx, cancel := context.WithTimeout(ctx, l.config.Deadline)
	runCtx = shuttle.WithScratch(runCtx)
	events := make(chan Event, 16)

	r := &run{
		loop:                l,
		ctx:                 runCtx,
		cancel:              cancel,
		events:              events,
		consecutiveFailures: make(map[string]int),
		startedAt:           time.Now(),
	}

	go r.execute(question, datasetID)
	return events
}

// Run drains RunStream to its terminal event and assembles the full
// AnalysisResponse for `POST /analyze`.
func (l *Loop) Run(ctx context.Context, question, datasetID string) *Response {
	var resp Response
	for ev := range l.RunStream(ctx, question, datasetID) {
		switch ev.Type {
		case EventComplete:
			resp = Response{Answer: ev.Answer, ErrorCode: ev.ErrorCode, Tables: ev.Tables, Charts: ev.Charts, Trace: ev.Trace}
		case EventError:
			resp = Response{Answer: ev.Message, ErrorCode: ev.ErrorCode, Tables: ev.Tables, Charts: ev.Charts, Trace: ev.Trace}
		}
	}
	return &resp
}

func (r *run) execute(question, datasetID string) {
	defer r.cancel()

	stopHeartbeat := make(chan struct{})
	heartbeatDone := make(chan struct{})
	go r.heartbeatLoop(stopHeartbeat, heartbeatDone)
	defer func() {
		close(stopHeartbeat)
		<-heartbeatDone
		close(r.events)
	}()

	r.traceID = r.loop.tracer.StartTrace(r.ctx)
	defer r.loop.tracer.EndTrace(r.ctx, r.traceID)

	r.emit(Event{Type: EventStart, TraceID: r.traceID})

	var ds *dataset.Dataset
	if datasetID != "" {
		var err error
		ds, err = r.loop.datasets.Get(datasetID)
		if err != nil {
			r.fail("DATASET_NOT_FOUND", err.Error())
			return
		}
	}

	r.session = types.NewSession(r.traceID, datasetID)
	r.session.AddMessage(types.Message{Role: "system", Content: systemPrompt(ds), Timestamp: time.Now()})
	r.session.AddMessage(types.Message{Role: "user", Content: userTurn(question, datasetID), Timestamp: time.Now()})

	st := stateInit
	for {
		select {
		case <-r.ctx.Done():
			// context.WithTimeout backs both the caller's ctx and our
			// own Deadline (RunStream), so DeadlineExceeded means we
			// ran out of wall-clock budget ourselves: answer with
			// whatever was found. Anything else is the caller walking
			// away.
			if r.ctx.Err() == context.DeadlineExceeded {
				r.synthesizeUnderBudget()
			} else {
				r.handleCancellation()
			}
			return
		default:
		}

		switch st {
		case stateInit:
			st = stateThinking
		case stateThinking:
			st = r.think()
		case stateDispatch:
			st = r.dispatch()
		case stateToolRun:
			if r.exhaustedReason != "" {
				r.pendingAnswer = r.summarizeWithFailureNote()
				st = stateAnswering
				continue
			}
			st = stateThinking
		case stateAnswering:
			r.answer()
			st = stateDone
		case stateBudgetExhausted:
			r.synthesizeUnderBudget()
			st = stateDone
		case stateFailed, stateDone:
			return
		}
	}
}

// think is the THINKING state: call the LLM Adapter with current
// messages and tool declarations.
func (r *run) think() state {
	if r.step >= r.loop.config.MaxSteps || r.budgetExceeded() || r.deadlineExceeded() {
		return stateBudgetExhausted
	}

	r.step++
	r.emit(Event{Type: EventStepStart, Step: r.step, MaxSteps: r.loop.config.MaxSteps})

	tools := r.toolDeclarations()
	resp, err := r.callProviderWithRetry(tools)
	if err != nil {
		r.fail("LLM_ERROR", err.Error())
		return stateFailed
	}

	r.stepUsage = resp.Usage
	assistantMsg := types.Message{
		Role:       "assistant",
		Content:    resp.Content,
		ToolCalls:  resp.ToolCalls,
		Timestamp:  time.Now(),
		TokenCount: resp.Usage.TotalTokens,
		CostUSD:    resp.Usage.CostUSD,
	}
	r.session.AddMessage(assistantMsg)

	if len(resp.ToolCalls) == 0 {
		r.pendingAnswer = resp.Content
		return stateAnswering
	}

	r.pendingCalls = resp.ToolCalls
	return stateDispatch
}

// budgetExceeded checks the cost ceiling against the session's running
// total rather than re-summing messages on every call.
func (r *run) budgetExceeded() bool {
	if r.loop.config.CostCeiling <= 0 {
		return false
	}
	costUSD, _ := r.session.Totals()
	return costUSD >= r.loop.config.CostCeiling
}

// deadlineExceeded reports whether this run has been alive at least as
// long as the configured wall-clock deadline. Checked proactively here
// so a run transitions to BUDGET_EXHAUSTED and synthesizes a
// best-effort answer before the hard context timeout backing RunStream
// fires and falls through to the execute loop's ctx.Done() branch.
func (r *run) deadlineExceeded() bool {
	return time.Since(r.startedAt) >= r.loop.config.Deadline
}

// callProviderWithRetry implements the bounded provider-error retry of
// one bounded retry per call with exponential backoff (250 ms, 1 s);
// a further failure terminates the request.
func (r *run) callProviderWithRetry(tools []types.ToolDeclaration) (*types.LLMResponse, error) {
	resp, err := r.callProviderOnce(tools)
	if err == nil {
		return resp, nil
	}

	for _, backoff := range providerRetryBackoffs {
		select {
		case <-r.ctx.Done():
			return nil, r.ctx.Err()
		case <-time.After(backoff):
		}
		resp, err = r.callProviderOnce(tools)
		if err == nil {
			return resp, nil
		}
	}
	return nil, err
}

// callProviderOnce calls the LLM Adapter once. When it implements
// types.StreamingLLMProvider, the response text streams out as
// answer_chunk events as it arrives instead of the single synthetic
// chunk answer() falls back to for non-streaming providers.
func (r *run) callProviderOnce(tools []types.ToolDeclaration) (*types.LLMResponse, error) {
	messages := r.session.GetMessages()
	if !types.SupportsStreaming(r.loop.provider) {
		return r.loop.provider.Chat(r.ctx, messages, tools)
	}
	streaming := r.loop.provider.(types.StreamingLLMProvider)
	return streaming.ChatStream(r.ctx, messages, tools, func(chunk string) {
		r.emit(Event{Type: EventAnswerChunk, Content: chunk})
	})
}

// nonRecoverableError reports a tool failure that cannot be handed back
// to the LLM to self-correct: DATASET_NOT_FOUND and UNKNOWN_TOOL are
// non-recoverable within the loop and terminate the request.
type nonRecoverableError struct {
	Code    string
	Message string
}

func (e *nonRecoverableError) Error() string { return e.Code + ": " + e.Message }

// dispatch is the DISPATCH state: forward each tool invocation to the
// Tool Executor.
func (r *run) dispatch() state {
	for _, call := range r.pendingCalls {
		if err := r.runTool(call); err != nil {
			if nre, ok := err.(*nonRecoverableError); ok {
				r.fail(nre.Code, nre.Message)
			} else {
				r.fail("CANCELLED", err.Error())
			}
			return stateFailed
		}
	}
	r.pendingCalls = nil
	return stateToolRun
}

func (r *run) runTool(call types.ToolCall) error {
	digest := argsDigest(call.Input)
	r.emit(Event{Type: EventToolCall, Tool: call.Name, ArgsDigest: digest})

	start := time.Now()
	result, err := r.loop.executor.Execute(r.ctx, call.Name, call.Input, r.loop.config.QueryTimeout)
	latency := time.Since(start)

	if err != nil {
		// Only a cancelled suspension point returns a non-nil error
		// (pkg/shuttle.Executor's contract).
		return err
	}

	step := observability.TraceStep{
		StepIndex:  r.step,
		ToolName:   call.Name,
		ArgsDigest: digest,
		LatencyMs:  latency.Milliseconds(),
		Success:    result.Success,
	}
	if result.Error != nil {
		step.ErrorCode = result.Error.Code
	}
	if table, ok := result.Data.(*query.Table); ok {
		rowCount := table.RowCount
		step.RowCount = &rowCount
	}
	tokens := r.stepUsage.TotalTokens
	step.Tokens = &tokens
	if !r.stepUsage.CostUnknown {
		cost := r.stepUsage.CostUSD
		step.CostUSD = &cost
	}
	r.loop.tracer.RecordStep(r.ctx, r.traceID, step)

	r.emit(Event{
		Type:      EventToolResult,
		Tool:      call.Name,
		Success:   result.Success,
		LatencyMs: latency.Milliseconds(),
		ErrorCode: step.ErrorCode,
	})

	toolMsg := types.Message{
		Role:       "tool",
		ToolCallID: call.ID,
		Timestamp:  time.Now(),
	}

	if result.Success {
		delete(r.consecutiveFailures, call.Name)
		r.collectOutputs(call.Name, result.Data)
		toolMsg.ToolResult = &types.ToolResult{CallID: call.ID, Success: true, Payload: result.Data}
	} else {
		code := result.Error.Code
		if code == "UNKNOWN_TOOL" || code == "DATASET_NOT_FOUND" {
			return &nonRecoverableError{Code: code, Message: result.Error.Message}
		}
		if code == "QUERY_FAILED" {
			r.consecutiveFailures[call.Name]++
			if r.consecutiveFailures[call.Name] > maxConsecutiveToolFailures {
				r.exhaustedReason = fmt.Sprintf("repeated %s failures calling %s", code, call.Name)
			}
		}
		toolMsg.ToolResult = &types.ToolResult{
			CallID:    call.ID,
			Success:   false,
			ErrorCode: code,
			Error:     result.Error.Message,
		}
	}

	r.session.AddMessage(toolMsg)
	return nil
}

// collectOutputs records a run_query Table or a plot ChartOutput so the
// final response can report "tables: [last K query tables], charts: [all
// plots produced].
func (r *run) collectOutputs(toolName string, data interface{}) {
	switch toolName {
	case "run_query":
		if table, ok := data.(*query.Table); ok {
			r.tables = append(r.tables, table)
		}
	case "plot":
		if chart, ok := data.(*visualization.ChartOutput); ok {
			r.charts = append(r.charts, chart)
		}
	}
}

// answer is the ANSWERING state: stream the final textual answer and
// emit `complete`.
func (r *run) answer() {
	trace, _ := r.loop.tracer.GetTrace(r.ctx, r.traceID)
	if !types.SupportsStreaming(r.loop.provider) {
		r.emit(Event{Type: EventAnswerChunk, Content: r.pendingAnswer})
	}
	r.emit(Event{
		Type:   EventComplete,
		Answer: r.pendingAnswer,
		Tables: r.lastKTables(3),
		Charts: r.charts,
		Trace:  trace,
	})
}

// synthesizeUnderBudget asks the LLM for a best-effort answer from
// partial findings when the step/time/cost budget is exhausted, then
// terminates with BUDGET_EXHAUSTED.
func (r *run) synthesizeUnderBudget() {
	r.session.AddMessage(types.Message{Role: "user", Content: budgetExhaustedPrompt, Timestamp: time.Now()})

	answer := "Unable to produce a complete answer within the allotted steps."
	resp, err := r.loop.provider.Chat(r.ctx, r.session.GetMessages(), nil)
	if err == nil && resp.Content != "" {
		answer = resp.Content
	}

	trace, _ := r.loop.tracer.GetTrace(r.ctx, r.traceID)
	r.emit(Event{
		Type:      EventComplete,
		Answer:    answer,
		ErrorCode: "BUDGET_EXHAUSTED",
		Tables:    r.lastKTables(3),
		Charts:    r.charts,
		Trace:     trace,
	})
}

// summarizeWithFailureNote implements the QUERY_FAILED cap: after
// repeated failures the loop answers with the accumulated evidence and
// notes the failure.
func (r *run) summarizeWithFailureNote() string {
	note := fmt.Sprintf("Tool calls stopped early: %s. Summarize the findings gathered "+
		"so far and note that this part of the question could not be fully answered.", r.exhaustedReason)
	r.session.AddMessage(types.Message{Role: "user", Content: note, Timestamp: time.Now()})

	resp, err := r.loop.provider.Chat(r.ctx, r.session.GetMessages(), nil)
	if err != nil || resp.Content == "" {
		return "Unable to complete part of the analysis: " + r.exhaustedReason
	}
	return resp.Content
}

// heartbeatLoop emits a periodic keepalive event for the duration of the
// run, independent of step progress, so a subscriber sitting behind a
// proxy with its own idle timeout sees traffic during a slow tool call
// or LLM round trip. Stops on stop, run cancellation, or a non-positive
// HeartbeatInterval (which disables heartbeats entirely).
func (r *run) heartbeatLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if r.loop.config.HeartbeatInterval <= 0 {
		return
	}

	ticker := time.NewTicker(r.loop.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.emit(Event{Type: EventHeartbeat})
		}
	}
}

func (r *run) handleCancellation() {
	trace, _ := r.loop.tracer.GetTrace(r.ctx, r.traceID)
	r.emit(Event{Type: EventError, ErrorCode: "CANCELLED", Message: "analysis cancelled", Trace: trace})
}

func (r *run) fail(code, message string) {
	trace, _ := r.loop.tracer.GetTrace(r.ctx, r.traceID)
	r.emit(Event{Type: EventError, ErrorCode: code, Message: message, Trace: trace})
}

// emit delivers ev without blocking forever on a reader that has walked
// away. A plain `select { case r.events<-ev: case <-ctx.Done(): }` would
// let Go's random case selection drop ev even when the buffered channel
// still has room, any time ctx happens to already be cancelled; trying
// the non-blocking send first means a cancellation never loses an event
// the buffer could still hold.
func (r *run) emit(ev Event) {
	select {
	case r.events <- ev:
		return
	default:
	}
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func (r *run) lastKTables(k int) []*query.Table {
	if len(r.tables) <= k {
		return r.tables
	}
	return r.tables[len(r.tables)-k:]
}

// toolDeclarations converts the registered shuttle.Tool set into the
// provider-agnostic shape the LLM Adapter expects.
func (r *run) toolDeclarations() []types.ToolDeclaration {
	tools := r.loop.registry.ListTools()
	decls := make([]types.ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, types.ToolDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema().ToMap(),
		})
	}
	return decls
}

// argsDigest produces the TraceStep.ArgsDigest: a stable hash of the
// call arguments, never the raw values (which may contain sensitive
// data from the dataset itself).
func argsDigest(args map[string]interface{}) string {
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
