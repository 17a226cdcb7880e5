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
package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
)

// CompileAndRun implements the QuerySpec Compiler's contract:
// compile_and_run(QuerySpec) -> Table. It compiles spec
// against schema/tableName, runs it with ctx's deadline governing the
// statement (so a cancelled/expired ctx aborts the query rather than
// merely abandoning it), and drops the probe row used to detect
// truncation.
func CompileAndRun(ctx context.Context, db *sql.DB, spec *QuerySpec, schema dataset.Schema, tableName string) (*Table, error) {
	sqlText, args, limit, err := Compile(spec, schema, tableName)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var out [][]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	truncated := len(out) > limit
	if truncated {
		out = out[:limit]
	}

	return &Table{
		Columns:   columns,
		Rows:      out,
		RowCount:  len(out),
		Truncated: truncated,
	}, nil
}
