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

// Package query implements the QuerySpec Compiler: a
// whitelist-driven translator from the structured QuerySpec DSL into
// parameterized SQL over the embedded analytical store. It never emits
// a SQL fragment built from unvalidated LLM input.
package query

// MaxRows is the hard ceiling on QuerySpec.Limit.
const MaxRows = 10000

// Op is one of the whitelisted filter operators.
type Op string

const (
	OpEq        Op = "="
	OpNeq       Op = "!="
	OpGt        Op = ">"
	OpGte       Op = ">="
	OpLt        Op = "<"
	OpLte       Op = "<="
	OpIn        Op = "in"
	OpBetween   Op = "between"
	OpContains  Op = "contains"
	OpIsNull    Op = "is_null"
)

var validOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpBetween: true, OpContains: true, OpIsNull: true,
}

// AggFn is one of the whitelisted aggregation functions.
type AggFn string

const (
	AggSum     AggFn = "sum"
	AggAvg     AggFn = "avg"
	AggMin     AggFn = "min"
	AggMax     AggFn = "max"
	AggCount   AggFn = "count"
	AggNunique AggFn = "nunique"
)

var validAggs = map[AggFn]bool{
	AggSum: true, AggAvg: true, AggMin: true, AggMax: true, AggCount: true, AggNunique: true,
}

// FilterCondition is one WHERE-clause predicate.
type FilterCondition struct {
	Col   string      `json:"col"`
	Op    Op          `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

// Agg is one aggregation projection.
type Agg struct {
	As  string `json:"as"`
	Agg AggFn  `json:"agg"`
	Col string `json:"col"`
}

// Derived is a second-pass arithmetic projection over aggregation
// results (the GLOSSARY's "Derived").
type Derived struct {
	As   string `json:"as"`
	Expr string `json:"expr"`
}

// SortDir is the sort direction of a SortItem.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// SortItem is one ORDER BY term.
type SortItem struct {
	Col string  `json:"col"`
	Dir SortDir `json:"dir"`
}

// QuerySpec is the whitelist-constrained DSL the LLM emits via
// run_query in place of SQL.
type QuerySpec struct {
	DatasetID    string             `json:"dataset_id"`
	Filters      []FilterCondition  `json:"filters,omitempty"`
	GroupBy      []string           `json:"group_by,omitempty"`
	Aggregations []Agg              `json:"aggregations,omitempty"`
	Derived      []Derived          `json:"derived,omitempty"`
	Sort         []SortItem         `json:"sort,omitempty"`

	// Limit is a pointer so the compiler can distinguish "absent" (clamp
	// to MaxRows) from an explicit zero (rejected as BAD_SPEC).
	Limit *int `json:"limit,omitempty"`
}

// Table is the result of compile_and_run.
type Table struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	RowCount  int             `json:"row_count"`
	Truncated bool            `json:"truncated"`
}
