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
package visualization

import (
	"fmt"

	"github.com/winkovo0818/ai-data-analyst/pkg/query"
)

// Normalize implements the Plot Spec Normaliser contract: it binds spec
// against table's columns and produces a {type, title, option}
// description.
func Normalize(table *query.Table, spec PlotSpec) (*ChartOutput, error) {
	if !validChartTypes[spec.ChartType] {
		return nil, &BadPlotError{Reason: fmt.Sprintf("unsupported chart type %q", spec.ChartType)}
	}

	xIdx, err := columnIndex(table, spec.X)
	if err != nil {
		return nil, err
	}
	yIdx, err := columnIndex(table, spec.Y)
	if err != nil {
		return nil, err
	}

	var seriesIdx int = -1
	if spec.Series != "" && spec.ChartType != ChartPie {
		seriesIdx, err = columnIndex(table, spec.Series)
		if err != nil {
			return nil, err
		}
	}

	var option map[string]interface{}
	if spec.ChartType == ChartPie {
		option = buildPieOption(table, xIdx, yIdx)
	} else if seriesIdx >= 0 {
		option = buildPivotedOption(table, xIdx, yIdx, seriesIdx, spec.ChartType)
	} else {
		option = buildSingleSeriesOption(table, xIdx, yIdx, spec.ChartType)
	}

	if spec.YFormat == YFormatPercent {
		applyPercentFormat(option)
	}

	return &ChartOutput{Type: spec.ChartType, Title: spec.Title, Option: option}, nil
}

func columnIndex(table *query.Table, name string) (int, error) {
	for i, c := range table.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, &BadPlotError{Reason: fmt.Sprintf("column %q not present in the query result", name)}
}

func buildPieOption(table *query.Table, xIdx, yIdx int) map[string]interface{} {
	var data []interface{}
	var legend []string
	for _, row := range table.Rows {
		name := fmt.Sprintf("%v", row[xIdx])
		data = append(data, map[string]interface{}{"name": name, "value": row[yIdx]})
		legend = append(legend, name)
	}
	return map[string]interface{}{
		"legend": map[string]interface{}{"data": legend},
		"series": []interface{}{
			map[string]interface{}{"type": "pie", "data": data},
		},
	}
}

func buildSingleSeriesOption(table *query.Table, xIdx, yIdx int, chartType ChartType) map[string]interface{} {
	var xAxisData []interface{}
	var seriesData []interface{}
	for _, row := range table.Rows {
		xAxisData = append(xAxisData, row[xIdx])
		seriesData = append(seriesData, row[yIdx])
	}

	return map[string]interface{}{
		"xAxis": map[string]interface{}{"type": "category", "data": xAxisData},
		"yAxis": map[string]interface{}{"type": "value"},
		"series": []interface{}{
			map[string]interface{}{"type": echartsType(chartType), "data": seriesData, "areaStyle": areaStyle(chartType)},
		},
	}
}

// buildPivotedOption pivots table so each distinct value of the series
// column becomes its own series over the shared x domain: the table is
// pivoted so that each distinct series value becomes a separate series.
func buildPivotedOption(table *query.Table, xIdx, yIdx, seriesIdx int, chartType ChartType) map[string]interface{} {
	var xDomain []interface{}
	xSeen := make(map[string]bool)
	seriesOrder := make([]string, 0)
	seriesSeen := make(map[string]bool)
	values := make(map[string]map[string]interface{}) // seriesName -> xKey -> value

	xKey := func(v interface{}) string { return fmt.Sprintf("%v", v) }

	for _, row := range table.Rows {
		xk := xKey(row[xIdx])
		if !xSeen[xk] {
			xSeen[xk] = true
			xDomain = append(xDomain, row[xIdx])
		}
		sName := fmt.Sprintf("%v", row[seriesIdx])
		if !seriesSeen[sName] {
			seriesSeen[sName] = true
			seriesOrder = append(seriesOrder, sName)
			values[sName] = make(map[string]interface{})
		}
		values[sName][xk] = row[yIdx]
	}

	var seriesList []interface{}
	for _, sName := range seriesOrder {
		var data []interface{}
		for _, xv := range xDomain {
			v, ok := values[sName][xKey(xv)]
			if !ok {
				data = append(data, nil)
				continue
			}
			data = append(data, v)
		}
		seriesList = append(seriesList, map[string]interface{}{
			"name":      sName,
			"type":      echartsType(chartType),
			"data":      data,
			"areaStyle": areaStyle(chartType),
		})
	}

	return map[string]interface{}{
		"xAxis":  map[string]interface{}{"type": "category", "data": xDomain},
		"yAxis":  map[string]interface{}{"type": "value"},
		"legend": map[string]interface{}{"data": seriesOrder},
		"series": seriesList,
	}
}

func echartsType(chartType ChartType) string {
	if chartType == ChartArea {
		return "line"
	}
	return string(chartType)
}

func areaStyle(chartType ChartType) interface{} {
	if chartType == ChartArea {
		return map[string]interface{}{}
	}
	return nil
}

func applyPercentFormat(option map[string]interface{}) {
	if yAxis, ok := option["yAxis"].(map[string]interface{}); ok {
		yAxis["axisLabel"] = map[string]interface{}{"formatter": "{value}%"}
	}
}
