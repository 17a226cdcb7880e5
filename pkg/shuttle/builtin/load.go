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
package builtin

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

func sqlColumnType(t dataset.ColumnType) string {
	switch t {
	case dataset.ColumnInt, dataset.ColumnBool:
		return "INTEGER"
	case dataset.ColumnFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// loadTable creates tableName with one column per schema entry and
// bulk-inserts pt's rows inside a single transaction, coercing each cell
// to the inferred column type (best-effort; unparsable or empty cells
// become NULL).
func loadTable(ctx context.Context, db *sql.DB, tableName string, schema dataset.Schema, pt *ParsedTable) (int64, error) {
	var colDefs []string
	for _, c := range schema.Columns {
		colDefs = append(colDefs, fmt.Sprintf("%s %s", storage.QuoteIdent(c.Name), sqlColumnType(c.Type)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", storage.QuoteIdent(tableName), strings.Join(colDefs, ", "))
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("create dataset table: %w", err)
	}

	placeholders := make([]string, len(schema.Columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", storage.QuoteIdent(tableName), strings.Join(placeholders, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var rowCount int64
	for _, row := range pt.Rows {
		args := make([]interface{}, len(schema.Columns))
		for i, col := range schema.Columns {
			var raw string
			if i < len(row) {
				raw = strings.TrimSpace(row[i])
			}
			args[i] = coerceCell(raw, col.Type)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", rowCount, err)
		}
		rowCount++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest transaction: %w", err)
	}
	return rowCount, nil
}

func coerceCell(raw string, colType dataset.ColumnType) interface{} {
	if raw == "" {
		return nil
	}
	switch colType {
	case dataset.ColumnInt:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
		return nil
	case dataset.ColumnFloat:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
		return nil
	case dataset.ColumnBool:
		if strings.EqualFold(raw, "true") {
			return 1
		}
		if strings.EqualFold(raw, "false") {
			return 0
		}
		return nil
	default:
		return raw
	}
}
