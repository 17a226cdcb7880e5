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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

func TestLoadTableCreatesAndInsertsCoercedRows(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "load.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema := dataset.Schema{Columns: []dataset.Column{
		{Name: "region", Type: dataset.ColumnString},
		{Name: "revenue", Type: dataset.ColumnFloat},
		{Name: "active", Type: dataset.ColumnBool},
	}}
	pt := &ParsedTable{
		Rows: [][]string{
			{"east", "10.5", "true"},
			{"west", "", "false"},
		},
	}

	rowCount, err := loadTable(context.Background(), db, "ds_test", schema, pt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rowCount)

	rows, err := db.Query(`SELECT region, revenue, active FROM "ds_test" ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()

	var region string
	var revenue *float64
	var active int
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&region, &revenue, &active))
	assert.Equal(t, "east", region)
	require.NotNil(t, revenue)
	assert.Equal(t, 10.5, *revenue)
	assert.Equal(t, 1, active)

	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&region, &revenue, &active))
	assert.Equal(t, "west", region)
	assert.Nil(t, revenue)
	assert.Equal(t, 0, active)
}

func TestSqlColumnTypeMapsDatasetTypesToSQLiteAffinities(t *testing.T) {
	assert.Equal(t, "INTEGER", sqlColumnType(dataset.ColumnInt))
	assert.Equal(t, "INTEGER", sqlColumnType(dataset.ColumnBool))
	assert.Equal(t, "REAL", sqlColumnType(dataset.ColumnFloat))
	assert.Equal(t, "TEXT", sqlColumnType(dataset.ColumnString))
	assert.Equal(t, "TEXT", sqlColumnType(dataset.ColumnDate))
}

func TestCoerceCellReturnsNilForEmptyOrUnparsable(t *testing.T) {
	assert.Nil(t, coerceCell("", dataset.ColumnFloat))
	assert.Nil(t, coerceCell("not-a-number", dataset.ColumnInt))
}

func TestCoerceCellParsesBoolAsIntFlag(t *testing.T) {
	assert.Equal(t, 1, coerceCell("TRUE", dataset.ColumnBool))
	assert.Equal(t, 0, coerceCell("False", dataset.ColumnBool))
}

func TestCoerceCellPassesThroughStringsVerbatim(t *testing.T) {
	assert.Equal(t, "east", coerceCell("east", dataset.ColumnString))
}
