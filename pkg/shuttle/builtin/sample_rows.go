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

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
)

// SampleRowsTool returns a deterministic row prefix.
type SampleRowsTool struct {
	registry *dataset.Registry
}

// NewSampleRowsTool creates the tool.
func NewSampleRowsTool(registry *dataset.Registry) *SampleRowsTool {
	return &SampleRowsTool{registry: registry}
}

func (t *SampleRowsTool) Name() string { return "sample_rows" }

func (t *SampleRowsTool) Description() string {
	return "Returns the first n rows of a dataset (deterministic, not a random sample), optionally restricted to a column subset."
}

func (t *SampleRowsTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for sampling rows",
		map[string]*shuttle.JSONSchema{
			"dataset_id": shuttle.NewStringSchema("Dataset identifier returned by create_dataset"),
			"n":          shuttle.NewNumberSchema("Number of rows to return (max 100, default 10)"),
			"columns":    shuttle.NewArraySchema("Optional column subset", shuttle.NewStringSchema("column name")),
		},
		[]string{"dataset_id"},
	)
}

func (t *SampleRowsTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	datasetID, _ := params["dataset_id"].(string)

	n := 10
	if v, ok := params["n"].(float64); ok {
		n = int(v)
	}

	var columns []string
	if raw, ok := params["columns"].([]interface{}); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				columns = append(columns, s)
			}
		}
	}

	cols, rows, err := t.registry.Sample(ctx, datasetID, n, columns)
	if err != nil {
		return notFoundResult(err)
	}

	return &shuttle.Result{Success: true, Data: map[string]interface{}{"columns": cols, "rows": rows}}, nil
}
