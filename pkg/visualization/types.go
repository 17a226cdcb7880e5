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

// Package visualization implements the Plot Spec Normaliser: given a
// recent query Table and a PlotSpec it produces a renderer-neutral
// chart description, an ECharts-shaped {type, title, option} triple
// that any renderer can consume.
package visualization

// ChartType is one of the five chart types the DSL may request.
type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
	ChartArea    ChartType = "area"
)

var validChartTypes = map[ChartType]bool{
	ChartLine: true, ChartBar: true, ChartPie: true, ChartScatter: true, ChartArea: true,
}

// YFormat controls numeric formatting of the y axis.
type YFormat string

const (
	YFormatPlain   YFormat = "plain"
	YFormatPercent YFormat = "percent"
)

// PlotSpec is the DSL the LLM emits via the `plot` tool, bound to the
// most recent query result in the same analysis.
type PlotSpec struct {
	ChartType ChartType `json:"chart_type"`
	Title     string    `json:"title"`
	X         string    `json:"x"`
	Y         string    `json:"y"`
	Series    string    `json:"series,omitempty"`
	YFormat   YFormat   `json:"y_format,omitempty"`
}

// ChartOutput is the normaliser's output: a renderer-neutral description
// of axes, series, legend, and formatting.
type ChartOutput struct {
	Type   ChartType              `json:"type"`
	Title  string                 `json:"title"`
	Option map[string]interface{} `json:"option"`
}

// BadPlotError reports that a PlotSpec referenced a missing column or an
// unsupported chart type.
type BadPlotError struct {
	Reason string
}

func (e *BadPlotError) Error() string {
	return "BAD_PLOT: " + e.Reason
}
