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
package agent

import (
	"fmt"
	"strings"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
)

// systemPrompt declares the tool-only contract and forbids free-form
// computation, optionally seeded with a dataset summary.
func systemPrompt(ds *dataset.Dataset) string {
	var b strings.Builder
	b.WriteString("You are a data analyst. You answer questions about tabular data " +
		"exclusively by calling the tools made available to you. You never write SQL, " +
		"Python, or any other code, and you never compute an aggregate, filter, or " +
		"derived value yourself — every computation must go through run_query. " +
		"If a tool call fails, read the error and either correct your arguments or, " +
		"after two failed attempts at the same tool, answer with whatever evidence " +
		"you have gathered so far.\n\n")

	if ds != nil {
		b.WriteString(fmt.Sprintf("The active dataset (id %q) has %d rows and columns:\n", ds.ID, ds.RowCount))
		for _, c := range ds.Schema.Columns {
			b.WriteString(fmt.Sprintf("- %s (%s)\n", c.Name, c.Type))
		}
	}

	return b.String()
}

// userTurn formats the initial user message, folding in the dataset_id
// if the caller supplied one without the LLM having called create_dataset.
func userTurn(question, datasetID string) string {
	if datasetID == "" {
		return question
	}
	return fmt.Sprintf("dataset_id: %s\n\n%s", datasetID, question)
}

// budgetExhaustedPrompt is appended as a synthetic user turn when the
// loop must ask the LLM for a best-effort answer from partial findings.
const budgetExhaustedPrompt = "You have reached the step budget for this analysis. " +
	"Do not call any more tools. Summarize the findings you have gathered so far into " +
	"a direct answer to the original question, noting any part of the question you " +
	"were unable to resolve."
