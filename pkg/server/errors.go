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
	"encoding/json"
	"net/http"
)

// statusForErrorCode maps an error code onto an HTTP status.
func statusForErrorCode(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case "DATASET_NOT_FOUND", "COLUMN_NOT_FOUND":
		return http.StatusNotFound
	case "BAD_SPEC", "BAD_PLOT", "BAD_TOOL_ARGS", "UNKNOWN_TOOL":
		return http.StatusBadRequest
	case "LLM_RATE_LIMITED":
		return http.StatusTooManyRequests
	case "BUDGET_EXHAUSTED":
		return http.StatusOK // a budget-exhausted run still returns its best-effort answer
	case "CANCELLED":
		return http.StatusGatewayTimeout
	case "QUERY_TIMEOUT":
		return http.StatusGatewayTimeout
	case "QUERY_FAILED", "LLM_ERROR":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{ErrorCode: code, Message: message})
}
