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

// Package storage provides a modernc.org/sqlite-backed Tracer for
// durable post-mortem analysis, selectable via config the same way the
// config selects between an in-memory and a durable tracer.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

// SQLiteTracer persists traces and their steps to an embedded SQLite
// database so a trace can be inspected after the process that produced it
// has exited.
type SQLiteTracer struct {
	db *sql.DB
}

// Open opens (or creates) the trace database at path and ensures its
// schema exists.
func Open(path string) (*SQLiteTracer, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}

	t := &SQLiteTracer{db: db}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// NewWithDB wraps an already-open handle, for sharing one database file
// with the analytical store and the dataset registry.
func NewWithDB(db *sql.DB) (*SQLiteTracer, error) {
	t := &SQLiteTracer{db: db}
	if err := t.initSchema(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SQLiteTracer) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS traces (
		trace_id   TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at   INTEGER
	);

	CREATE TABLE IF NOT EXISTS trace_steps (
		trace_id    TEXT NOT NULL,
		step_index  INTEGER NOT NULL,
		tool_name   TEXT NOT NULL,
		args_digest TEXT NOT NULL,
		latency_ms  INTEGER NOT NULL,
		row_count   INTEGER,
		tokens      INTEGER,
		cost_usd    REAL,
		success     INTEGER NOT NULL,
		error_code  TEXT,
		PRIMARY KEY (trace_id, step_index)
	);
	`
	_, err := t.db.Exec(schema)
	return err
}

func (t *SQLiteTracer) StartTrace(ctx context.Context) string {
	traceID := uuid.NewString()
	// Best-effort: a trace row that fails to insert still gets an id back
	// so the Agent Loop can proceed; RecordStep degrades to a no-op for it.
	_, _ = t.db.ExecContext(ctx, `INSERT INTO traces (trace_id, started_at) VALUES (?, ?)`,
		traceID, time.Now().UnixMilli())
	return traceID
}

func (t *SQLiteTracer) RecordStep(ctx context.Context, traceID string, step observability.TraceStep) {
	_, _ = t.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trace_steps
			(trace_id, step_index, tool_name, args_digest, latency_ms, row_count, tokens, cost_usd, success, error_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		traceID, step.StepIndex, step.ToolName, step.ArgsDigest, step.LatencyMs,
		nullableInt(step.RowCount), nullableInt(step.Tokens), nullableFloat(step.CostUSD),
		boolToInt(step.Success), step.ErrorCode)
}

func (t *SQLiteTracer) EndTrace(ctx context.Context, traceID string) {
	_, _ = t.db.ExecContext(ctx, `UPDATE traces SET ended_at = ? WHERE trace_id = ?`,
		time.Now().UnixMilli(), traceID)
}

func (t *SQLiteTracer) GetTrace(ctx context.Context, traceID string) (*observability.Trace, bool) {
	var startedAt int64
	var endedAt sql.NullInt64
	err := t.db.QueryRowContext(ctx, `SELECT started_at, ended_at FROM traces WHERE trace_id = ?`, traceID).
		Scan(&startedAt, &endedAt)
	if err != nil {
		return nil, false
	}

	trace := &observability.Trace{
		TraceID:   traceID,
		StartedAt: time.UnixMilli(startedAt),
	}
	if endedAt.Valid {
		trace.EndedAt = time.UnixMilli(endedAt.Int64)
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT step_index, tool_name, args_digest, latency_ms, row_count, tokens, cost_usd, success, error_code
		FROM trace_steps WHERE trace_id = ? ORDER BY step_index ASC`, traceID)
	if err != nil {
		return trace, true
	}
	defer rows.Close()

	for rows.Next() {
		var step observability.TraceStep
		var rowCount, tokens sql.NullInt64
		var cost sql.NullFloat64
		var success int
		if err := rows.Scan(&step.StepIndex, &step.ToolName, &step.ArgsDigest, &step.LatencyMs,
			&rowCount, &tokens, &cost, &success, &step.ErrorCode); err != nil {
			continue
		}
		if rowCount.Valid {
			v := int(rowCount.Int64)
			step.RowCount = &v
		}
		if tokens.Valid {
			v := int(tokens.Int64)
			step.Tokens = &v
		}
		if cost.Valid {
			v := cost.Float64
			step.CostUSD = &v
		}
		step.Success = success != 0
		trace.Steps = append(trace.Steps, step)
	}

	return trace, true
}

// Close releases the underlying database handle.
func (t *SQLiteTracer) Close() error {
	return t.db.Close()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ observability.Tracer = (*SQLiteTracer)(nil)
