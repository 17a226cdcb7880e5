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
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sheetloomagent "github.com/winkovo0818/ai-data-analyst/pkg/agent"
	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/llm/factory"
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle/builtin"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

// newTestServer wires a Server against an on-disk SQLite store and a
// fake-but-constructible default provider; none of these tests drive a
// real LLM call, so the dummy anthropic key is never used over the wire.
func newTestServer(t *testing.T) (*Server, *dataset.Registry) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	datasets, err := dataset.NewRegistry(db, 0)
	require.NoError(t, err)

	toolReg := shuttle.NewRegistry()
	uploadDir := t.TempDir()
	for _, tool := range builtin.All(datasets, db, uploadDir) {
		toolReg.Register(tool)
	}
	executor := shuttle.NewExecutor(toolReg)
	tracer := observability.NewMemoryTracer()

	srv, err := New(
		Config{Addr: "127.0.0.1:0", UploadDir: uploadDir},
		Deps{
			Provider: factory.Config{Provider: "anthropic", AnthropicAPIKey: "test-key"},
			ToolReg:  toolReg, Executor: executor, Tracer: tracer, Registry: datasets,
			AgentConfig: sheetloomagent.DefaultConfig(), DB: db, UploadDir: uploadDir,
		},
	)
	require.NoError(t, err)
	return srv, datasets
}

func TestStatusForErrorCode(t *testing.T) {
	cases := map[string]int{
		"":                 http.StatusOK,
		"DATASET_NOT_FOUND": http.StatusNotFound,
		"COLUMN_NOT_FOUND":  http.StatusNotFound,
		"BAD_SPEC":          http.StatusBadRequest,
		"BAD_PLOT":          http.StatusBadRequest,
		"BAD_TOOL_ARGS":     http.StatusBadRequest,
		"UNKNOWN_TOOL":      http.StatusBadRequest,
		"LLM_RATE_LIMITED":  http.StatusTooManyRequests,
		"BUDGET_EXHAUSTED":  http.StatusOK,
		"CANCELLED":         http.StatusGatewayTimeout,
		"QUERY_TIMEOUT":     http.StatusGatewayTimeout,
		"QUERY_FAILED":      http.StatusInternalServerError,
		"LLM_ERROR":         http.StatusInternalServerError,
		"SOMETHING_NEW":     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusForErrorCode(code), "code %q", code)
	}
}

func TestHandleAnalyzeRejectsNonPost(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rec := httptest.NewRecorder()

	srv.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleAnalyzeRejectsEmptyQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(analyzeRequest{Question: ""})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body2 errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	assert.Equal(t, "BAD_SPEC", body2.ErrorCode)
}

func TestHandleAnalyzeRejectsUnknownDataset(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(analyzeRequest{Question: "how many rows?", DatasetID: "does-not-exist"})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body2 errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	assert.Equal(t, "DATASET_NOT_FOUND", body2.ErrorCode)
}

func TestHandleAnalyzeStreamRejectsEmptyQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(analyzeRequest{Question: ""})
	req := httptest.NewRequest(http.MethodPost, "/analyze/stream", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleAnalyzeStream(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestHandleDatasetSchemaNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dataset/does-not-exist/schema", nil)
	rec := httptest.NewRecorder()

	srv.handleDatasetSchema(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDatasetSchemaOK(t *testing.T) {
	srv, datasets := newTestServer(t)
	schema := dataset.Schema{Columns: []dataset.Column{{Name: "revenue", Type: dataset.ColumnFloat}}}
	id, err := datasets.Register("some_table", schema, 3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dataset/"+id+"/schema", nil)
	rec := httptest.NewRecorder()

	srv.handleDatasetSchema(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got dataset.Schema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Columns, 1)
	assert.Equal(t, "revenue", got.Columns[0].Name)
}

func TestHandleDatasetSchemaMalformedPath(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dataset/missing-suffix", nil)
	rec := httptest.NewRecorder()

	srv.handleDatasetSchema(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDatasetCreateMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(datasetCreateRequest{FileID: "does-not-exist.csv"})
	req := httptest.NewRequest(http.MethodPost, "/dataset/create", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.handleDatasetCreate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body2 errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	assert.Equal(t, "BAD_TOOL_ARGS", body2.ErrorCode)
}

func TestHandleUploadStoresFile(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "numbers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.handleUpload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, len(resp.FileID) > 0)
	assert.Equal(t, ".csv", filepath.Ext(resp.FileID))
}

func TestHandleUploadRejectsMissingFileField(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("not_file", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.handleUpload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccessLogRecordsActualStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	wrapped := srv.accessLog(inner)
	req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
