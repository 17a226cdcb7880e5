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
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
)

// scoreFloor is the minimum combined score a column must clear to be
// offered as a candidate match.
const scoreFloor = 0.35

// maxCandidates caps mapped_columns per term.
const maxCandidates = 5

// ResolveFieldsTool maps free-form terms to schema column names. The
// scoring algorithm combines a case-insensitive substring bonus with a
// go-diff Levenshtein ratio and a sahilm/fuzzy subsequence
// score, per the Open Question decision.
type ResolveFieldsTool struct {
	registry *dataset.Registry
}

// NewResolveFieldsTool creates the tool.
func NewResolveFieldsTool(registry *dataset.Registry) *ResolveFieldsTool {
	return &ResolveFieldsTool{registry: registry}
}

func (t *ResolveFieldsTool) Name() string { return "resolve_fields" }

func (t *ResolveFieldsTool) Description() string {
	return "Maps free-form terms (from a user question) to the closest matching column names in a dataset's schema, using fuzzy matching. Use this before run_query when the user's wording doesn't exactly match a column name."
}

func (t *ResolveFieldsTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for resolving free-form terms to column names",
		map[string]*shuttle.JSONSchema{
			"dataset_id": shuttle.NewStringSchema("Dataset identifier returned by create_dataset"),
			"terms":      shuttle.NewArraySchema("Free-form terms to map to column names", shuttle.NewStringSchema("term")),
		},
		[]string{"dataset_id", "terms"},
	)
}

func (t *ResolveFieldsTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	datasetID, _ := params["dataset_id"].(string)

	var terms []string
	if raw, ok := params["terms"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				terms = append(terms, s)
			}
		}
	}
	if len(terms) == 0 {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "BAD_TOOL_ARGS", Message: "terms must be a non-empty list of strings"}}, nil
	}

	schema, err := t.registry.GetSchema(datasetID)
	if err != nil {
		return notFoundResult(err)
	}

	columnNames := schema.ColumnNames()
	suggestions := make(map[string][]string, len(terms))
	seen := make(map[string]bool, len(columnNames))
	var mappedColumns []string
	for _, term := range terms {
		cols := bestColumnsForTerm(term, columnNames)
		suggestions[term] = cols
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				mappedColumns = append(mappedColumns, c)
			}
		}
	}

	return &shuttle.Result{Success: true, Data: map[string]interface{}{
		"mapped_columns": mappedColumns,
		"suggestions":    suggestions,
	}}, nil
}

type scoredColumn struct {
	name  string
	score float64
}

func bestColumnsForTerm(term string, columnNames []string) []string {
	fuzzyMatches := fuzzy.Find(term, columnNames)
	fuzzyScore := make(map[string]float64, len(fuzzyMatches))
	maxFuzzy := 0
	for _, m := range fuzzyMatches {
		if m.Score > maxFuzzy {
			maxFuzzy = m.Score
		}
	}
	for _, m := range fuzzyMatches {
		if maxFuzzy > 0 {
			fuzzyScore[m.Str] = float64(m.Score) / float64(maxFuzzy)
		} else {
			fuzzyScore[m.Str] = 0
		}
	}

	dmp := diffmatchpatch.New()
	termLower := strings.ToLower(term)

	var candidates []scoredColumn
	for _, col := range columnNames {
		colLower := strings.ToLower(col)

		substringBonus := 0.0
		if strings.Contains(colLower, termLower) || strings.Contains(termLower, colLower) {
			substringBonus = 0.3
		}

		diffs := dmp.DiffMain(termLower, colLower, false)
		dist := dmp.DiffLevenshtein(diffs)
		maxLen := len(termLower)
		if len(colLower) > maxLen {
			maxLen = len(colLower)
		}
		ratio := 1.0
		if maxLen > 0 {
			ratio = 1.0 - float64(dist)/float64(maxLen)
		}

		combined := substringBonus + 0.4*ratio + 0.3*fuzzyScore[col]
		candidates = append(candidates, scoredColumn{name: col, score: combined})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var out []string
	for _, c := range candidates {
		if c.score < scoreFloor {
			continue
		}
		out = append(out, c.name)
		if len(out) >= maxCandidates {
			break
		}
	}
	return out
}
