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
package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFlatSelectWithFilter(t *testing.T) {
	spec := &QuerySpec{
		DatasetID: "d1",
		Filters:   []FilterCondition{{Col: "region", Op: OpEq, Value: "east"}},
	}
	sqlText, args, limit, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "sales_1" WHERE "region" = ? LIMIT ?`, sqlText)
	assert.Equal(t, []interface{}{"east", MaxRows + 1}, args)
	assert.Equal(t, MaxRows, limit)
}

func TestCompileReturnsBadSpecWithoutEmittingSQL(t *testing.T) {
	sqlText, args, _, err := Compile(&QuerySpec{}, salesSchema(), "sales_1")
	require.Error(t, err)
	assert.Empty(t, sqlText)
	assert.Nil(t, args)
}

func TestCompileGroupByWithAggregation(t *testing.T) {
	spec := &QuerySpec{
		DatasetID:    "d1",
		GroupBy:      []string{"region"},
		Aggregations: []Agg{{As: "total_revenue", Agg: AggSum, Col: "revenue"}},
	}
	sqlText, _, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Equal(t, `SELECT "region", SUM("revenue") AS "total_revenue" FROM "sales_1" GROUP BY "region" LIMIT ?`, sqlText)
}

func TestCompileDerivedWrapsAggregationInSubquery(t *testing.T) {
	spec := &QuerySpec{
		DatasetID:    "d1",
		GroupBy:      []string{"region"},
		Aggregations: []Agg{{As: "total", Agg: AggSum, Col: "revenue"}, {As: "n", Agg: AggCount, Col: "*"}},
		Derived:      []Derived{{As: "avg_per_row", Expr: "total / n"}},
	}
	sqlText, _, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)

	inner := `SELECT "region", SUM("revenue") AS "total", COUNT(*) AS "n" FROM "sales_1"`
	assert.Contains(t, sqlText, inner)
	assert.Contains(t, sqlText, `((CAST("total" AS REAL) / CAST("n" AS REAL))) AS "avg_per_row"`)
}

func TestCompileInFilterExpandsPlaceholders(t *testing.T) {
	spec := &QuerySpec{
		DatasetID: "d1",
		Filters:   []FilterCondition{{Col: "region", Op: OpIn, Value: []interface{}{"east", "west"}}},
	}
	sqlText, args, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Contains(t, sqlText, `"region" IN (?, ?)`)
	assert.Equal(t, []interface{}{"east", "west", MaxRows + 1}, args)
}

func TestCompileContainsEscapesLikeWildcards(t *testing.T) {
	spec := &QuerySpec{
		DatasetID: "d1",
		Filters:   []FilterCondition{{Col: "region", Op: OpContains, Value: "10%_off"}},
	}
	sqlText, args, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Contains(t, sqlText, `LIKE ? ESCAPE '\'`)
	assert.Equal(t, "%10\\%\\_off%", args[0])
}

func TestCompileOrderByHonorsDirection(t *testing.T) {
	spec := &QuerySpec{
		DatasetID: "d1",
		GroupBy:   []string{"region"},
		Sort:      []SortItem{{Col: "region", Dir: SortDesc}},
	}
	sqlText, _, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Contains(t, sqlText, `ORDER BY "region" DESC`)
}

func TestCompileAppendsProbeRowToLimit(t *testing.T) {
	three := 3
	spec := &QuerySpec{DatasetID: "d1", Limit: &three}
	_, args, limit, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Equal(t, 3, limit)
	assert.Equal(t, 4, args[len(args)-1], "the emitted LIMIT must probe one row past the clamped limit")
}

func TestCompileBetweenFilter(t *testing.T) {
	spec := &QuerySpec{
		DatasetID: "d1",
		Filters:   []FilterCondition{{Col: "revenue", Op: OpBetween, Value: []interface{}{10.0, 20.0}}},
	}
	sqlText, args, _, err := Compile(spec, salesSchema(), "sales_1")
	require.NoError(t, err)
	assert.Contains(t, sqlText, `"revenue" BETWEEN ? AND ?`)
	assert.Equal(t, []interface{}{10.0, 20.0, MaxRows + 1}, args)
}
