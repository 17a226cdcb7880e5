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
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle/builtin"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "BAD_SPEC", "POST required")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_SPEC", "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "BAD_SPEC", "question is required")
		return
	}
	if req.DatasetID != "" && !s.registry.Exists(req.DatasetID) {
		writeError(w, http.StatusNotFound, "DATASET_NOT_FOUND", "dataset not found: "+req.DatasetID)
		return
	}

	loop, err := s.loopFor(req.LLMConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, "LLM_ERROR", err.Error())
		return
	}

	resp := loop.Run(r.Context(), req.Question, req.DatasetID)
	writeJSON(w, statusForErrorCode(resp.ErrorCode), analysisResponse{
		Answer:    resp.Answer,
		ErrorCode: resp.ErrorCode,
		Tables:    resp.Tables,
		Charts:    resp.Charts,
		Trace:     resp.Trace,
	})
}

func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "BAD_SPEC", "POST required")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_SPEC", "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "BAD_SPEC", "question is required")
		return
	}
	if req.DatasetID != "" && !s.registry.Exists(req.DatasetID) {
		writeError(w, http.StatusNotFound, "DATASET_NOT_FOUND", "dataset not found: "+req.DatasetID)
		return
	}

	loop, err := s.loopFor(req.LLMConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, "LLM_ERROR", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", "streaming unsupported by this connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := loop.RunStream(r.Context(), req.Question, req.DatasetID)
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("marshal sse event failed", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
			s.logger.Warn("sse client disconnected", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleDatasetCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "BAD_SPEC", "POST required")
		return
	}

	var req datasetCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_SPEC", "invalid request body: "+err.Error())
		return
	}

	params := map[string]interface{}{"file_id": req.FileID}
	if req.Sheet != "" {
		params["sheet"] = req.Sheet
	}
	if req.HeaderRow > 0 {
		params["header_row"] = float64(req.HeaderRow)
	}

	result, err := s.createTool.Execute(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if !result.Success {
		writeError(w, statusForErrorCode(result.Error.Code), result.Error.Code, result.Error.Message)
		return
	}
	writeJSON(w, http.StatusOK, result.Data)
}

func (s *Server) handleDatasetSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "BAD_SPEC", "GET required")
		return
	}

	// path shape: /dataset/{id}/schema
	path := strings.TrimPrefix(r.URL.Path, "/dataset/")
	id, ok := strings.CutSuffix(path, "/schema")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}

	schema, err := s.registry.GetSchema(id)
	if err != nil {
		var nf *dataset.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, "DATASET_NOT_FOUND", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "BAD_SPEC", "POST required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, builtin.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_TOOL_ARGS", "invalid multipart upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_TOOL_ARGS", "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	fileID := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.uploadDir, fileID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", "cannot store upload: "+err.Error())
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", "cannot store upload: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{FileID: fileID})
}
