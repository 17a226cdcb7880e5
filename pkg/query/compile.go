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
	"fmt"
	"strings"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/query/expr"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

// Compile validates spec against schema and emits the parameterized SQL
// that would run it against tableName, plus the clamped row limit the
// executor uses to compute Table.Truncated. It never interpolates an
// LLM-controlled value into the SQL string itself — every scalar crosses
// the `?` placeholder boundary.
func Compile(spec *QuerySpec, schema dataset.Schema, tableName string) (sqlText string, args []interface{}, limit int, err error) {
	p, err := validate(spec, schema)
	if err != nil {
		return "", nil, 0, err
	}
	sqlText, args = emit(p, tableName)
	return sqlText, args, p.clampedLimit, nil
}

func emit(p *plan, tableName string) (string, []interface{}) {
	spec := p.spec
	hasAgg := len(spec.Aggregations) > 0 || len(spec.Derived) > 0

	var args []interface{}
	whereSQL, whereArgs := emitWhere(spec.Filters)
	args = append(args, whereArgs...)

	var body string
	switch {
	case !hasAgg:
		body = emitFlatSelect(spec, tableName, whereSQL)
	case len(spec.Derived) == 0:
		body = emitAggInner(spec, tableName, whereSQL)
	default:
		inner := emitAggInner(spec, tableName, whereSQL)
		body = emitDerivedOuter(p, inner)
	}

	orderBy := emitOrderBy(spec.Sort)
	if orderBy != "" {
		body += " " + orderBy
	}

	// LIMIT is the clamped value plus one probe row, so the executor can
	// detect truncation and drop the extra row before returning the Table.
	body += " LIMIT ?"
	args = append(args, p.clampedLimit+1)

	return body, args
}

func emitFlatSelect(spec *QuerySpec, tableName, whereSQL string) string {
	var cols []string
	if len(spec.GroupBy) > 0 {
		for _, g := range spec.GroupBy {
			cols = append(cols, storage.QuoteIdent(g))
		}
	} else {
		cols = []string{"*"}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), storage.QuoteIdent(tableName))
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	if len(spec.GroupBy) > 0 {
		sql += " GROUP BY " + joinQuoted(spec.GroupBy)
	}
	return sql
}

func emitAggInner(spec *QuerySpec, tableName, whereSQL string) string {
	var cols []string
	for _, g := range spec.GroupBy {
		cols = append(cols, storage.QuoteIdent(g))
	}
	for _, a := range spec.Aggregations {
		cols = append(cols, emitAggExpr(a))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), storage.QuoteIdent(tableName))
	if whereSQL != "" {
		sql += " WHERE " + whereSQL
	}
	if len(spec.GroupBy) > 0 {
		sql += " GROUP BY " + joinQuoted(spec.GroupBy)
	}
	return sql
}

func emitAggExpr(a Agg) string {
	var colExpr string
	if a.Col == "*" {
		colExpr = "*"
	} else {
		colExpr = storage.QuoteIdent(a.Col)
	}

	var fn string
	switch a.Agg {
	case AggSum:
		fn = "SUM"
	case AggAvg:
		fn = "AVG"
	case AggMin:
		fn = "MIN"
	case AggMax:
		fn = "MAX"
	case AggCount:
		fn = "COUNT"
	case AggNunique:
		return fmt.Sprintf("COUNT(DISTINCT %s) AS %s", colExpr, storage.QuoteIdent(a.As))
	}
	return fmt.Sprintf("%s(%s) AS %s", fn, colExpr, storage.QuoteIdent(a.As))
}

// emitDerivedOuter wraps the aggregation projection in a subquery and
// emits derived expressions in an outer SELECT, so that the analytical
// store sees well-formed references to the inner
// aliases rather than nested aggregate expressions.
func emitDerivedOuter(p *plan, inner string) string {
	spec := p.spec

	var cols []string
	for _, g := range spec.GroupBy {
		cols = append(cols, storage.QuoteIdent(g))
	}
	for _, a := range spec.Aggregations {
		cols = append(cols, storage.QuoteIdent(a.As))
	}

	resolve := func(name string) (string, bool) {
		return storage.QuoteIdent(name), true
	}
	for i, d := range spec.Derived {
		exprSQL, err := p.derivedAST[i].ToSQL(expr.Resolver(resolve))
		if err != nil {
			// validate() already resolved every identifier, so this
			// cannot fail at emit time; keep the zero value defensively.
			exprSQL = "NULL"
		}
		cols = append(cols, fmt.Sprintf("(%s) AS %s", exprSQL, storage.QuoteIdent(d.As)))
	}

	return fmt.Sprintf("SELECT %s FROM (%s)", strings.Join(cols, ", "), inner)
}

func emitWhere(filters []FilterCondition) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}

	var clauses []string
	var args []interface{}
	for _, f := range filters {
		col := storage.QuoteIdent(f.Col)
		switch f.Op {
		case OpIn:
			list := f.Value.([]interface{})
			placeholders := make([]string, len(list))
			for i, v := range list {
				placeholders[i] = "?"
				args = append(args, v)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		case OpBetween:
			list := f.Value.([]interface{})
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN ? AND ?", col))
			args = append(args, list[0], list[1])
		case OpContains:
			needle, _ := f.Value.(string)
			escaped := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_").Replace(needle)
			clauses = append(clauses, fmt.Sprintf("%s LIKE ? ESCAPE '\\'", col))
			args = append(args, "%"+escaped+"%")
		case OpIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", col))
		default:
			clauses = append(clauses, fmt.Sprintf("%s %s ?", col, string(f.Op)))
			args = append(args, f.Value)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func emitOrderBy(sort []SortItem) string {
	if len(sort) == 0 {
		return ""
	}
	var items []string
	for _, s := range sort {
		dir := "ASC"
		if strings.EqualFold(string(s.Dir), "desc") {
			dir = "DESC"
		}
		items = append(items, fmt.Sprintf("%s %s", storage.QuoteIdent(s.Col), dir))
	}
	return "ORDER BY " + strings.Join(items, ", ")
}

func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = storage.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
