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
package server

import (
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/query"
	"github.com/winkovo0818/ai-data-analyst/pkg/visualization"
)

// analyzeRequest is the body of POST /analyze and /analyze/stream.
type analyzeRequest struct {
	Question  string          `json:"question"`
	DatasetID string          `json:"dataset_id,omitempty"`
	LLMConfig *llmConfigInput `json:"llm_config,omitempty"`
}

// llmConfigInput is the optional per-request provider override.
type llmConfigInput struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty"`
	Model    string `json:"model"`
}

// analysisResponse is the wire shape of the final analysis result,
// populated from an *agent.Response.
type analysisResponse struct {
	Answer    string                       `json:"answer"`
	ErrorCode string                       `json:"error_code,omitempty"`
	Tables    []*query.Table               `json:"tables,omitempty"`
	Charts    []*visualization.ChartOutput `json:"charts,omitempty"`
	Trace     *observability.Trace         `json:"trace,omitempty"`
}

// errorBody is the JSON body written for any non-2xx response.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	FieldPath string `json:"field_path,omitempty"`
}

type datasetCreateRequest struct {
	FileID    string `json:"file_id"`
	Sheet     string `json:"sheet,omitempty"`
	HeaderRow int    `json:"header_row,omitempty"`
}

type uploadResponse struct {
	FileID string `json:"file_id"`
}
