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
	"path/filepath"

	"github.com/google/uuid"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

// CreateDatasetTool registers a previously uploaded file as a queryable
// dataset. It implements the ingest path
// end to end: parse, infer a schema, materialize a table, register it.
type CreateDatasetTool struct {
	registry  *dataset.Registry
	db        *sql.DB
	uploadDir string
}

// NewCreateDatasetTool creates the tool. uploadDir is where the
// collaborator-facing /upload handler (pkg/server) writes incoming
// files, keyed by file_id.
func NewCreateDatasetTool(registry *dataset.Registry, db *sql.DB, uploadDir string) *CreateDatasetTool {
	return &CreateDatasetTool{registry: registry, db: db, uploadDir: uploadDir}
}

func (t *CreateDatasetTool) Name() string { return "create_dataset" }

func (t *CreateDatasetTool) Description() string {
	return `Registers a previously uploaded file as a queryable dataset.

Parses CSV or spreadsheet files, infers a column schema (int, float, string, date, datetime, bool), and loads the data into the analytical store. Returns the dataset_id needed by every other tool.`
}

func (t *CreateDatasetTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for registering an uploaded file as a dataset",
		map[string]*shuttle.JSONSchema{
			"file_id":    shuttle.NewStringSchema("Identifier returned by a prior /upload call"),
			"sheet":      shuttle.NewStringSchema("Spreadsheet sheet name (defaults to the first sheet); ignored for CSV"),
			"header_row": shuttle.NewNumberSchema("1-based row number containing column headers (default: 1)"),
		},
		[]string{"file_id"},
	)
}

func (t *CreateDatasetTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	fileID, _ := params["file_id"].(string)
	if fileID == "" {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: "file_id is required"}}, nil
	}
	sheet, _ := params["sheet"].(string)
	headerRow := 1
	if hr, ok := params["header_row"].(float64); ok {
		headerRow = int(hr)
	}

	path := filepath.Join(t.uploadDir, fileID)
	pt, err := parseFile(path, sheet, headerRow)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: err.Error()}}, nil
	}

	schema := inferSchema(pt)
	tableName := storage.SanitizeIdentifier("ds_" + uuid.NewString())

	rowCount, err := loadTable(ctx, t.db, tableName, schema, pt)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "QUERY_FAILED", Message: err.Error()}}, nil
	}

	datasetID, err := t.registry.Register(tableName, schema, rowCount)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: err.Error()}}, nil
	}

	return &shuttle.Result{
		Success: true,
		Data: map[string]interface{}{
			"dataset_id": datasetID,
			"schema":     schema,
			"row_count":  rowCount,
		},
	}, nil
}
