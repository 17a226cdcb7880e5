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
	"encoding/json"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/query"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
)

// RunQueryTool compiles and executes a QuerySpec.
type RunQueryTool struct {
	registry *dataset.Registry
	db       *sql.DB
}

// NewRunQueryTool creates the tool.
func NewRunQueryTool(registry *dataset.Registry, db *sql.DB) *RunQueryTool {
	return &RunQueryTool{registry: registry, db: db}
}

func (t *RunQueryTool) Name() string { return "run_query" }

func (t *RunQueryTool) Description() string {
	return `Executes a QuerySpec against a registered dataset and returns a Table.

The QuerySpec DSL supports filters, group_by, aggregations (sum, avg, min, max, count, nunique), derived expressions (+ - * / and nullif/coalesce/round/abs over aggregation aliases or grouped columns), sort, and a row limit (max 10000). This is the only way to compute anything over the data — never describe SQL in free text.`
}

func (t *RunQueryTool) InputSchema() *shuttle.JSONSchema {
	filterSchema := shuttle.NewObjectSchema("One WHERE-clause predicate", map[string]*shuttle.JSONSchema{
		"col":   shuttle.NewStringSchema("Column name"),
		"op":    shuttle.NewStringSchema("Comparison operator").WithEnum("=", "!=", ">", ">=", "<", "<=", "in", "between", "contains", "is_null"),
		"value": shuttle.NewStringSchema("Scalar, list, or pair depending on op"),
	}, []string{"col", "op"})

	aggSchema := shuttle.NewObjectSchema("One aggregation projection", map[string]*shuttle.JSONSchema{
		"as":  shuttle.NewStringSchema("Output alias"),
		"agg": shuttle.NewStringSchema("Aggregation function").WithEnum("sum", "avg", "min", "max", "count", "nunique"),
		"col": shuttle.NewStringSchema(`Column name, or "*" for count`),
	}, []string{"as", "agg", "col"})

	derivedSchema := shuttle.NewObjectSchema("A second-pass arithmetic projection", map[string]*shuttle.JSONSchema{
		"as":   shuttle.NewStringSchema("Output alias"),
		"expr": shuttle.NewStringSchema("Arithmetic expression over aggregation aliases / grouped columns"),
	}, []string{"as", "expr"})

	sortSchema := shuttle.NewObjectSchema("One ORDER BY term", map[string]*shuttle.JSONSchema{
		"col": shuttle.NewStringSchema("Grouped column, aggregation alias, or derived alias"),
		"dir": shuttle.NewStringSchema("Sort direction").WithEnum("asc", "desc"),
	}, []string{"col"})

	return shuttle.NewObjectSchema(
		"A QuerySpec describing a deterministic analytical query",
		map[string]*shuttle.JSONSchema{
			"dataset_id":   shuttle.NewStringSchema("Dataset identifier returned by create_dataset"),
			"filters":      shuttle.NewArraySchema("WHERE-clause predicates, AND-joined", filterSchema),
			"group_by":     shuttle.NewArraySchema("Column names to group by", shuttle.NewStringSchema("column name")),
			"aggregations": shuttle.NewArraySchema("Aggregation projections", aggSchema),
			"derived":      shuttle.NewArraySchema("Derived arithmetic projections", derivedSchema),
			"sort":         shuttle.NewArraySchema("ORDER BY terms", sortSchema),
			"limit":        shuttle.NewNumberSchema("Row limit, 1 to 10000 (default 10000)"),
		},
		[]string{"dataset_id"},
	)
}

func (t *RunQueryTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	spec, err := decodeQuerySpec(params)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: err.Error()}}, nil
	}

	ds, err := t.registry.Get(spec.DatasetID)
	if err != nil {
		return notFoundResult(err)
	}

	table, err := query.CompileAndRun(ctx, t.db, spec, ds.Schema, ds.TableName)
	if err != nil {
		if badSpec, ok := err.(*query.BadSpecError); ok {
			return &shuttle.Result{
				Success: false,
				Error:   &shuttle.Error{Code: "BAD_SPEC", Message: badSpec.Reason, FieldPath: badSpec.FieldPath},
			}, nil
		}
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "QUERY_FAILED", Message: err.Error()}}, nil
	}

	return &shuttle.Result{Success: true, Data: table}, nil
}

func decodeQuerySpec(params map[string]interface{}) (*query.QuerySpec, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var spec query.QuerySpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
