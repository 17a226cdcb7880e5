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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

func openRunDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedSalesTable(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE sales_1 (region TEXT, revenue REAL, units INTEGER, active INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO sales_1 (region, revenue, units, active) VALUES
			('east', 10.0, 1, 1), ('west', 20.0, 2, 1), ('east', 5.0, 3, 0)`,
	)
	require.NoError(t, err)
}

func TestCompileAndRunFlatSelect(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	spec := &QuerySpec{DatasetID: "d1", Filters: []FilterCondition{{Col: "region", Op: OpEq, Value: "east"}}}
	table, err := CompileAndRun(context.Background(), db, spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	assert.Equal(t, 2, table.RowCount)
	assert.False(t, table.Truncated)
}

func TestCompileAndRunAggregation(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	spec := &QuerySpec{
		DatasetID:    "d1",
		GroupBy:      []string{"region"},
		Aggregations: []Agg{{As: "total", Agg: AggSum, Col: "revenue"}},
		Sort:         []SortItem{{Col: "region", Dir: SortAsc}},
	}
	table, err := CompileAndRun(context.Background(), db, spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	require.Equal(t, 2, table.RowCount)
	assert.Equal(t, []string{"region", "total"}, table.Columns)
	assert.Equal(t, "east", table.Rows[0][0])
	assert.InDelta(t, 15.0, table.Rows[0][1], 1e-9)
}

func TestCompileAndRunTruncatesAtLimitAndDropsProbeRow(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	two := 2
	spec := &QuerySpec{DatasetID: "d1", Limit: &two}
	table, err := CompileAndRun(context.Background(), db, spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	assert.Equal(t, 2, table.RowCount)
	assert.True(t, table.Truncated)
}

func TestCompileAndRunNotTruncatedWhenUnderLimit(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	hundred := 100
	spec := &QuerySpec{DatasetID: "d1", Limit: &hundred}
	table, err := CompileAndRun(context.Background(), db, spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	assert.Equal(t, 3, table.RowCount)
	assert.False(t, table.Truncated)
}

func TestCompileAndRunPropagatesBadSpecWithoutQuerying(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	_, err := CompileAndRun(context.Background(), db, &QuerySpec{}, salesSchema(), "sales_1")
	require.Error(t, err)
	var bse *BadSpecError
	assert.ErrorAs(t, err, &bse)
}

func TestCompileAndRunRespectsCancelledContext(t *testing.T) {
	db := openRunDB(t)
	seedSalesTable(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompileAndRun(ctx, db, &QuerySpec{DatasetID: "d1"}, salesSchema(), "sales_1")
	assert.Error(t, err)
}
