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

func TestBestColumnsForTermFindsExactSubstringMatch(t *testing.T) {
	cols := []string{"region", "revenue", "units_sold", "customer_name"}
	matches := bestColumnsForTerm("revenue", cols)
	require.NotEmpty(t, matches)
	assert.Equal(t, "revenue", matches[0])
}

func TestBestColumnsForTermHandlesTypoViaEditDistance(t *testing.T) {
	cols := []string{"region", "revenue", "units_sold"}
	matches := bestColumnsForTerm("revenu", cols)
	require.NotEmpty(t, matches)
	assert.Equal(t, "revenue", matches[0])
}

func TestBestColumnsForTermCapsCandidateCount(t *testing.T) {
	cols := []string{"rev_a", "rev_b", "rev_c", "rev_d", "rev_e", "rev_f", "rev_g"}
	matches := bestColumnsForTerm("rev", cols)
	assert.LessOrEqual(t, len(matches), maxCandidates)
}

func TestBestColumnsForTermDropsCandidatesBelowScoreFloor(t *testing.T) {
	cols := []string{"region", "revenue"}
	matches := bestColumnsForTerm("zzz_completely_unrelated_xyz", cols)
	assert.Empty(t, matches)
}

func TestResolveFieldsToolRequiresNonEmptyTerms(t *testing.T) {
	tool := NewResolveFieldsTool(nil)
	result, err := tool.Execute(context.Background(), map[string]interface{}{"dataset_id": "d1", "terms": []interface{}{}})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "BAD_TOOL_ARGS", result.Error.Code)
}

func TestResolveFieldsToolMapsTermsAgainstRegisteredSchema(t *testing.T) {
	reg, _ := newTestRegistry(t)
	datasetID, err := reg.Register("sales_1", dataset.Schema{Columns: []dataset.Column{
		{Name: "region", Type: dataset.ColumnString},
		{Name: "revenue", Type: dataset.ColumnFloat},
	}}, 3)
	require.NoError(t, err)

	tool := NewResolveFieldsTool(reg)
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": datasetID,
		"terms":      []interface{}{"sales", "revenu"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	suggestions := data["suggestions"].(map[string][]string)
	assert.Equal(t, []string{"revenue"}, suggestions["revenu"])
	assert.Contains(t, data["mapped_columns"].([]string), "revenue")
}

func TestResolveFieldsToolMapsUnknownDatasetToNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	tool := NewResolveFieldsTool(reg)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"dataset_id": "missing",
		"terms":      []interface{}{"revenue"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "DATASET_NOT_FOUND", result.Error.Code)
}
