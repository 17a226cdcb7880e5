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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/query"
)

func seedRunQueryDataset(t *testing.T) (*RunQueryTool, string) {
	t.Helper()
	reg, db := newTestRegistry(t)

	schema := dataset.Schema{Columns: []dataset.Column{
		{Name: "region", Type: dataset.ColumnString},
		{Name: "revenue", Type: dataset.ColumnFloat},
	}}
	_, err := db.Exec(`CREATE TABLE sales_rq (region TEXT, revenue REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sales_rq (region, revenue) VALUES ('east', 10.0), ('west', 20.0)`)
	require.NoError(t, err)

	datasetID, err := reg.Register("sales_rq", schema, 2)
	require.NoError(t, err)

	return NewRunQueryTool(reg, db), datasetID
}

func TestRunQueryToolExecutesFlatSelect(t *testing.T) {
	tool, datasetID := seedRunQueryDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": datasetID,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	table := result.Data.(*query.Table)
	assert.Equal(t, 2, len(table.Rows))
}

func TestRunQueryToolReportsBadSpecWithoutQuerying(t *testing.T) {
	tool, datasetID := seedRunQueryDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": datasetID,
		"filters":    []interface{}{map[string]interface{}{"col": "no_such_column", "op": "="}},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "BAD_SPEC", result.Error.Code)
}

func TestRunQueryToolMapsUnknownDatasetToNotFound(t *testing.T) {
	reg, db := newTestRegistry(t)
	tool := NewRunQueryTool(reg, db)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"dataset_id": "missing"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "DATASET_NOT_FOUND", result.Error.Code)
}

func TestRunQueryToolRejectsMalformedSpecJSON(t *testing.T) {
	tool, _ := seedRunQueryDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": 123,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "BAD_TOOL_ARGS", result.Error.Code)
}
