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
	"regexp"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/query/expr"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// plan is the validated, fully-resolved form of a QuerySpec, produced by
// validate and consumed by compile. Keeping it separate from QuerySpec
// means compile never re-derives anything validate already decided.
type plan struct {
	spec    *QuerySpec
	schema  dataset.Schema
	clampedLimit int

	// derivedAST holds the parsed expr.Node for each Derived, in order,
	// so compile doesn't reparse.
	derivedAST []expr.Node
}

// validate runs the six-step validation order (shape, whitelist, schema
// binding, type compatibility, derived parsing, limit clamping) against
// schema and returns a plan compile can emit SQL from. Any failure is a
// *BadSpecError; no SQL is emitted.
func validate(spec *QuerySpec, schema dataset.Schema) (*plan, error) {
	if err := validateShape(spec); err != nil {
		return nil, err
	}
	if err := validateWhitelist(spec); err != nil {
		return nil, err
	}
	if err := validateSchemaBinding(spec, schema); err != nil {
		return nil, err
	}
	if err := validateTypeCompatibility(spec, schema); err != nil {
		return nil, err
	}
	aliases, derivedAST, err := validateDerived(spec)
	if err != nil {
		return nil, err
	}
	if err := validateSort(spec, aliases); err != nil {
		return nil, err
	}

	limit, err := clampLimit(spec)
	if err != nil {
		return nil, err
	}

	return &plan{spec: spec, schema: schema, clampedLimit: limit, derivedAST: derivedAST}, nil
}

// --- 1. Shape ---

func validateShape(spec *QuerySpec) error {
	if spec.DatasetID == "" {
		return badSpec("dataset_id", "dataset_id is required")
	}
	for i, f := range spec.Filters {
		if f.Col == "" {
			return badSpec(fmt.Sprintf("filters[%d].col", i), "col is required")
		}
	}
	for i, a := range spec.Aggregations {
		if a.As == "" {
			return badSpec(fmt.Sprintf("aggregations[%d].as", i), "as is required")
		}
		if a.Col == "" {
			return badSpec(fmt.Sprintf("aggregations[%d].col", i), "col is required")
		}
	}
	for i, d := range spec.Derived {
		if d.As == "" {
			return badSpec(fmt.Sprintf("derived[%d].as", i), "as is required")
		}
		if d.Expr == "" {
			return badSpec(fmt.Sprintf("derived[%d].expr", i), "expr is required")
		}
	}
	for i, s := range spec.Sort {
		if s.Col == "" {
			return badSpec(fmt.Sprintf("sort[%d].col", i), "col is required")
		}
	}
	return nil
}

// --- 2. Whitelist ---

func validateWhitelist(spec *QuerySpec) error {
	for i, f := range spec.Filters {
		if !validOps[f.Op] {
			return badSpec(fmt.Sprintf("filters[%d].op", i), "op %q is not in the allowlist", f.Op)
		}
	}
	for i, a := range spec.Aggregations {
		if !validAggs[a.Agg] {
			return badSpec(fmt.Sprintf("aggregations[%d].agg", i), "agg %q is not in the allowlist", a.Agg)
		}
		if !identRegexp.MatchString(a.As) {
			return badSpec(fmt.Sprintf("aggregations[%d].as", i), "alias %q is not a valid identifier", a.As)
		}
	}
	for i, d := range spec.Derived {
		if !identRegexp.MatchString(d.As) {
			return badSpec(fmt.Sprintf("derived[%d].as", i), "alias %q is not a valid identifier", d.As)
		}
	}
	for i, s := range spec.Sort {
		if s.Dir != SortAsc && s.Dir != SortDesc && s.Dir != "" {
			return badSpec(fmt.Sprintf("sort[%d].dir", i), "dir %q is not asc/desc", s.Dir)
		}
	}

	aliasSeen := make(map[string]bool)
	for i, a := range spec.Aggregations {
		if aliasSeen[a.As] {
			return badSpec(fmt.Sprintf("aggregations[%d].as", i), "duplicate alias %q", a.As)
		}
		aliasSeen[a.As] = true
	}
	for i, d := range spec.Derived {
		if aliasSeen[d.As] {
			return badSpec(fmt.Sprintf("derived[%d].as", i), "duplicate alias %q", d.As)
		}
		aliasSeen[d.As] = true
	}
	return nil
}

// --- 3. Schema binding ---

func validateSchemaBinding(spec *QuerySpec, schema dataset.Schema) error {
	for i, f := range spec.Filters {
		if _, ok := schema.Find(f.Col); !ok {
			return badSpec(fmt.Sprintf("filters[%d].col", i), "column %q not found in schema", f.Col)
		}
	}
	for i, g := range spec.GroupBy {
		if _, ok := schema.Find(g); !ok {
			return badSpec(fmt.Sprintf("group_by[%d]", i), "column %q not found in schema", g)
		}
	}
	for i, a := range spec.Aggregations {
		if a.Col == "*" {
			continue
		}
		if _, ok := schema.Find(a.Col); !ok {
			return badSpec(fmt.Sprintf("aggregations[%d].col", i), "column %q not found in schema", a.Col)
		}
	}
	return nil
}

// --- 4. Type compatibility ---

func validateTypeCompatibility(spec *QuerySpec, schema dataset.Schema) error {
	for i, f := range spec.Filters {
		col, _ := schema.Find(f.Col)
		path := fmt.Sprintf("filters[%d]", i)
		switch f.Op {
		case OpBetween:
			list, ok := f.Value.([]interface{})
			if !ok || len(list) != 2 {
				return badSpec(path+".value", "between requires a two-element list")
			}
			if !sameComparableType(list[0], list[1], col.Type) {
				return badSpec(path+".value", "between values must share the column's comparable type")
			}
		case OpIn:
			list, ok := f.Value.([]interface{})
			if !ok || len(list) == 0 {
				return badSpec(path+".value", "in requires a non-empty list")
			}
			for _, v := range list {
				if !valueMatchesType(v, col.Type) {
					return badSpec(path+".value", "in list is heterogeneous or incompatible with column type")
				}
			}
		case OpContains:
			if col.Type != dataset.ColumnString {
				return badSpec(path+".col", "contains requires a string column")
			}
		case OpIsNull:
			// no value expected
		default:
			if f.Value == nil {
				return badSpec(path+".value", "value is required for op %q", f.Op)
			}
		}
	}

	for i, a := range spec.Aggregations {
		path := fmt.Sprintf("aggregations[%d]", i)
		if a.Col == "*" {
			if a.Agg != AggCount {
				return badSpec(path+".col", `"*" is only permitted for count`)
			}
			continue
		}
		col, _ := schema.Find(a.Col)
		switch a.Agg {
		case AggSum, AggAvg:
			if col.Type != dataset.ColumnInt && col.Type != dataset.ColumnFloat {
				return badSpec(path+".col", "%s requires a numeric column", a.Agg)
			}
		case AggMin, AggMax:
			// any orderable type; every supported ColumnType is orderable.
		case AggCount, AggNunique:
			// any column type is accepted.
		}
	}
	return nil
}

func sameComparableType(a, b interface{}, colType dataset.ColumnType) bool {
	return valueMatchesType(a, colType) && valueMatchesType(b, colType)
}

func valueMatchesType(v interface{}, colType dataset.ColumnType) bool {
	switch colType {
	case dataset.ColumnInt, dataset.ColumnFloat:
		_, ok := v.(float64)
		return ok
	case dataset.ColumnBool:
		_, ok := v.(bool)
		return ok
	case dataset.ColumnString, dataset.ColumnDate, dataset.ColumnDateTime:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}

// --- 5. Derived parsing ---

// validateDerived parses every Derived.Expr, resolves its identifiers
// against the declared aggregation aliases and grouped-by columns, and
// returns the set of all valid sort targets (group columns + agg
// aliases + derived aliases) plus the parsed ASTs in spec order.
func validateDerived(spec *QuerySpec) (map[string]bool, []expr.Node, error) {
	validIdent := make(map[string]bool)
	for _, g := range spec.GroupBy {
		validIdent[g] = true
	}
	for _, a := range spec.Aggregations {
		validIdent[a.As] = true
	}

	asts := make([]expr.Node, len(spec.Derived))
	for i, d := range spec.Derived {
		path := fmt.Sprintf("derived[%d].expr", i)
		node, err := expr.Parse(d.Expr)
		if err != nil {
			return nil, nil, badSpec(path, "%s", err.Error())
		}
		for _, name := range expr.Identifiers(node) {
			if !validIdent[name] {
				return nil, nil, badSpec(path, "undeclared identifier %q", name)
			}
		}
		asts[i] = node
	}
	for _, d := range spec.Derived {
		validIdent[d.As] = true
	}

	return validIdent, asts, nil
}

// --- sort target validation (part of §3's invariants, applied after
// derived aliases are known) ---

func validateSort(spec *QuerySpec, validTargets map[string]bool) error {
	for i, s := range spec.Sort {
		if !validTargets[s.Col] {
			return badSpec(fmt.Sprintf("sort[%d].col", i), "sort column %q is not a grouped column, aggregation alias, or derived alias", s.Col)
		}
	}
	return nil
}

// --- 6. Limit clamping ---

func clampLimit(spec *QuerySpec) (int, error) {
	if spec.Limit == nil {
		return MaxRows, nil
	}
	if *spec.Limit <= 0 {
		return 0, badSpec("limit", "limit must be >= 1")
	}
	if *spec.Limit > MaxRows {
		return MaxRows, nil
	}
	return *spec.Limit, nil
}
