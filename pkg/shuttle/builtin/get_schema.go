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

// GetSchemaTool returns a dataset's column schema.
type GetSchemaTool struct {
	registry *dataset.Registry
}

// NewGetSchemaTool creates the tool.
func NewGetSchemaTool(registry *dataset.Registry) *GetSchemaTool {
	return &GetSchemaTool{registry: registry}
}

func (t *GetSchemaTool) Name() string { return "get_schema" }

func (t *GetSchemaTool) Description() string {
	return "Returns the column schema (name, type, null ratio, example values) for a registered dataset."
}

func (t *GetSchemaTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for fetching a dataset's schema",
		map[string]*shuttle.JSONSchema{
			"dataset_id": shuttle.NewStringSchema("Dataset identifier returned by create_dataset"),
		},
		[]string{"dataset_id"},
	)
}

func (t *GetSchemaTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	datasetID, _ := params["dataset_id"].(string)

	schema, err := t.registry.GetSchema(datasetID)
	if err != nil {
		return notFoundResult(err)
	}

	return &shuttle.Result{Success: true, Data: map[string]interface{}{"columns": schema.Columns}}, nil
}

// notFoundResult translates a dataset/column lookup error into the
// taxonomy's DATASET_NOT_FOUND / COLUMN_NOT_FOUND codes.
func notFoundResult(err error) (*shuttle.Result, error) {
	switch err.(type) {
	case *dataset.NotFoundError:
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "DATASET_NOT_FOUND", Message: err.Error()}}, nil
	case *dataset.ColumnNotFoundError:
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "COLUMN_NOT_FOUND", Message: err.Error()}}, nil
	default:
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "QUERY_FAILED", Message: err.Error()}}, nil
	}
}
