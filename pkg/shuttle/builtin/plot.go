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
	"encoding/json"

	"github.com/winkovo0818/ai-data-analyst/pkg/query"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/visualization"
)

// PlotTool builds a chart from the latest run_query result.
type PlotTool struct{}

// NewPlotTool creates the tool. The most recent Table is read off the
// request's context (shuttle.WithScratch), not a shared field, so one
// PlotTool instance is safe across concurrent requests.
func NewPlotTool() *PlotTool {
	return &PlotTool{}
}

func (t *PlotTool) Name() string { return "plot" }

func (t *PlotTool) Description() string {
	return "Builds a renderer-neutral chart description from the most recent run_query result. Call run_query first."
}

func (t *PlotTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"A PlotSpec describing how to chart the latest query result",
		map[string]*shuttle.JSONSchema{
			"chart_type": shuttle.NewStringSchema("Chart type").WithEnum("line", "bar", "pie", "scatter", "area"),
			"title":      shuttle.NewStringSchema("Chart title"),
			"x":          shuttle.NewStringSchema("Column or alias for the x axis / pie category"),
			"y":          shuttle.NewStringSchema("Column or alias for the y axis / pie value"),
			"series":     shuttle.NewStringSchema("Optional column or alias to split into multiple series"),
			"y_format":   shuttle.NewStringSchema("Optional y axis formatting").WithEnum("plain", "percent"),
		},
		[]string{"chart_type", "x", "y"},
	)
}

func (t *PlotTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: err.Error()}}, nil
	}
	var spec visualization.PlotSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: err.Error()}}, nil
	}

	table, ok := shuttle.LastTableFromContext(ctx).(*query.Table)
	if !ok || table == nil {
		return &shuttle.Result{
			Success: false,
			Error:   &shuttle.Error{Code: "BAD_PLOT", Message: "no query result available to plot; call run_query first"},
		}, nil
	}

	chart, err := visualization.Normalize(table, spec)
	if err != nil {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_PLOT", Message: err.Error()}}, nil
	}

	return &shuttle.Result{Success: true, Data: chart}, nil
}
