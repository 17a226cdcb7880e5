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
)

func seedSampleRowsDataset(t *testing.T) (*SampleRowsTool, string) {
	t.Helper()
	reg, db := newTestRegistry(t)

	schema := dataset.Schema{Columns: []dataset.Column{
		{Name: "region", Type: dataset.ColumnString},
		{Name: "revenue", Type: dataset.ColumnFloat},
	}}
	_, err := db.Exec(`CREATE TABLE sales_sr (region TEXT, revenue REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sales_sr (region, revenue) VALUES ('east', 10.0), ('west', 20.0), ('east', 5.0)`)
	require.NoError(t, err)

	datasetID, err := reg.Register("sales_sr", schema, 3)
	require.NoError(t, err)

	return NewSampleRowsTool(reg), datasetID
}

func TestSampleRowsToolReturnsDefaultRowCount(t *testing.T) {
	tool, datasetID := seedSampleRowsDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"dataset_id": datasetID})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	rows := data["rows"].([][]interface{})
	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"region", "revenue"}, data["columns"])
}

func TestSampleRowsToolRestrictsToRequestedColumns(t *testing.T) {
	tool, datasetID := seedSampleRowsDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": datasetID,
		"columns":    []interface{}{"region"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, []string{"region"}, data["columns"])
	rows := data["rows"].([][]interface{})
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 1)
}

func TestSampleRowsToolMapsUnknownColumnToColumnNotFound(t *testing.T) {
	tool, datasetID := seedSampleRowsDataset(t)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": datasetID,
		"columns":    []interface{}{"not_a_column"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "COLUMN_NOT_FOUND", result.Error.Code)
}

func TestSampleRowsToolMapsUnknownDatasetToNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	tool := NewSampleRowsTool(reg)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"dataset_id": "missing"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "DATASET_NOT_FOUND", result.Error.Code)
}
