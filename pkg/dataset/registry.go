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
package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

// Registry maps dataset_id to stored table + schema + summary stats.
// Column schemas are immutable once published, so reads
// of an already-registered dataset take no lock; only `register` (and
// TTL-driven eviction) takes the exclusive lock.
type Registry struct {
	db  *sql.DB
	ttl time.Duration

	mu       sync.RWMutex
	datasets map[string]*Dataset
}

// NewRegistry creates a registry backed by db. ttl<=0 disables
// age-based garbage collection.
func NewRegistry(db *sql.DB, ttl time.Duration) (*Registry, error) {
	r := &Registry{db: db, ttl: ttl, datasets: make(map[string]*Dataset)}
	if err := r.initMetadataTable(); err != nil {
		return nil, err
	}
	if err := r.loadExisting(); err != nil {
		return nil, err
	}
	if ttl > 0 {
		go r.gcLoop()
	}
	return r, nil
}

func (r *Registry) initMetadataTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_registry (
			dataset_id    TEXT PRIMARY KEY,
			table_name    TEXT NOT NULL,
			schema_json   TEXT NOT NULL,
			row_count     INTEGER NOT NULL,
			registered_at INTEGER NOT NULL
		)
	`)
	return err
}

func (r *Registry) loadExisting() error {
	rows, err := r.db.Query(`SELECT dataset_id, table_name, schema_json, row_count, registered_at FROM dataset_registry`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, table, schemaJSON string
		var rowCount, registeredAt int64
		if err := rows.Scan(&id, &table, &schemaJSON, &rowCount, &registeredAt); err != nil {
			return err
		}
		var schema Schema
		if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
			return err
		}
		r.datasets[id] = &Dataset{
			ID:           id,
			TableName:    table,
			Schema:       schema,
			RowCount:     rowCount,
			RegisteredAt: time.Unix(registeredAt, 0),
		}
	}
	return rows.Err()
}

// Register creates a dataset_id for an already-materialized table (the
// ingest path has already loaded rows into tableName; see
// pkg/shuttle/builtin.CreateDatasetTool). Column names must be unique
// within the schema.
func (r *Registry) Register(tableName string, schema Schema, rowCount int64) (string, error) {
	seen := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		if seen[c.Name] {
			return "", fmt.Errorf("duplicate column name in schema: %s", c.Name)
		}
		seen[c.Name] = true
	}

	id := uuid.NewString()
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	_, err = r.db.Exec(
		`INSERT INTO dataset_registry (dataset_id, table_name, schema_json, row_count, registered_at) VALUES (?, ?, ?, ?, ?)`,
		id, tableName, string(schemaJSON), rowCount, now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("register dataset: %w", err)
	}

	r.datasets[id] = &Dataset{
		ID:           id,
		TableName:    tableName,
		Schema:       schema,
		RowCount:     rowCount,
		RegisteredAt: now,
	}
	return id, nil
}

// Exists reports whether dataset_id is registered.
func (r *Registry) Exists(datasetID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.datasets[datasetID]
	return ok
}

// Get returns the full Dataset record (table name + schema + row count).
func (r *Registry) Get(datasetID string) (*Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[datasetID]
	if !ok {
		return nil, &NotFoundError{DatasetID: datasetID}
	}
	return ds, nil
}

// GetSchema returns a dataset's column schema.
func (r *Registry) GetSchema(datasetID string) (Schema, error) {
	ds, err := r.Get(datasetID)
	if err != nil {
		return Schema{}, err
	}
	return ds.Schema, nil
}

// Sample returns the first n rows: a deterministic prefix, not a random
// sample, so repeated calls with the same n are reproducible. Optionally
// restricted to columns.
func (r *Registry) Sample(ctx context.Context, datasetID string, n int, columns []string) ([]string, [][]interface{}, error) {
	ds, err := r.Get(datasetID)
	if err != nil {
		return nil, nil, err
	}

	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}

	selectCols := ds.Schema.ColumnNames()
	if len(columns) > 0 {
		selectCols = nil
		for _, c := range columns {
			if _, ok := ds.Schema.Find(c); !ok {
				return nil, nil, &ColumnNotFoundError{DatasetID: datasetID, Column: c}
			}
			selectCols = append(selectCols, c)
		}
	}

	quoted := make([]string, len(selectCols))
	for i, c := range selectCols {
		quoted[i] = storage.QuoteIdent(c)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY rowid LIMIT ?",
		joinComma(quoted), storage.QuoteIdent(ds.TableName),
	)

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, nil, fmt.Errorf("sample query failed: %w", err)
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(selectCols))
		ptrs := make([]interface{}, len(selectCols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, dest)
	}
	return selectCols, out, rows.Err()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// gcLoop periodically evicts datasets older than ttl, matching the shape
// of a background ticker that sweeps expired entries.
func (r *Registry) gcLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		r.evictExpired()
	}
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ds := range r.datasets {
		if ds.RegisteredAt.Before(cutoff) {
			_, _ = r.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", storage.QuoteIdent(ds.TableName)))
			_, _ = r.db.Exec(`DELETE FROM dataset_registry WHERE dataset_id = ?`, id)
			delete(r.datasets, id)
		}
	}
}
