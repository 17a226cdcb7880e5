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

// Package server exposes the Agent Loop and the Dataset Registry over
// plain net/http: POST /analyze, POST /analyze/stream (server-sent
// events), POST /dataset/create, GET /dataset/{id}/schema, and POST
// /upload. The HTTP transport is a thin shell around the core; this
// package only ever calls into pkg/agent and pkg/dataset through their
// public contracts.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/winkovo0818/ai-data-analyst/pkg/agent"
	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/llm/factory"
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle/builtin"
)

// Server wires the HTTP transport to the Agent Loop and Dataset Registry.
//
// defaultLoop serves every request whose body omits llm_config. A
// request that supplies llm_config gets its own short-lived Loop built
// from the same tool registry, executor, tracer, and budgets, but a
// freshly constructed provider; the rest of the wiring — and crucially the
// per-request context.Context the scratch table lives in — is unchanged.
type Server struct {
	defaultLoop *agent.Loop
	toolReg     *shuttle.Registry
	executor    *shuttle.Executor
	tracer      observability.Tracer
	registry    *dataset.Registry
	agentConfig agent.Config
	createTool  *builtin.CreateDatasetTool
	uploadDir   string
	logger      *zap.Logger

	httpServer *http.Server
}

// Deps bundles the already-constructed collaborators New needs.
type Deps struct {
	Provider    factory.Config // default LLM provider settings
	ToolReg     *shuttle.Registry
	Executor    *shuttle.Executor
	Tracer      observability.Tracer
	Registry    *dataset.Registry
	AgentConfig agent.Config
	DB          *sql.DB
	UploadDir   string
	Logger      *zap.Logger
}

// Config carries the HTTP-layer-only settings.
type Config struct {
	Addr      string
	UploadDir string
}

// New builds a Server, constructing the default Agent Loop from deps.
func New(cfg Config, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := factory.New(deps.Provider)
	if err != nil {
		return nil, fmt.Errorf("construct default llm provider: %w", err)
	}
	defaultLoop := agent.NewLoop(provider, deps.ToolReg, deps.Executor, deps.Tracer, deps.Registry, deps.AgentConfig, logger)

	s := &Server{
		defaultLoop: defaultLoop,
		toolReg:     deps.ToolReg,
		executor:    deps.Executor,
		tracer:      deps.Tracer,
		registry:    deps.Registry,
		agentConfig: deps.AgentConfig,
		createTool:  builtin.NewCreateDatasetTool(deps.Registry, deps.DB, cfg.UploadDir),
		uploadDir:   cfg.UploadDir,
		logger:      logger,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // /analyze/stream holds the connection open for the whole run
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// loopFor returns the default loop, or a one-off Loop built around a
// per-request provider override.
func (s *Server) loopFor(override *llmConfigInput) (*agent.Loop, error) {
	if override == nil {
		return s.defaultLoop, nil
	}
	provider, err := factory.New(factory.Config{
		Provider:        override.Provider,
		Model:           override.Model,
		AnthropicAPIKey: override.APIKey,
		OpenAIAPIKey:    override.APIKey,
		MaxTokens:       4096,
	})
	if err != nil {
		return nil, err
	}
	return agent.NewLoop(provider, s.toolReg, s.executor, s.tracer, s.registry, s.agentConfig, s.logger), nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/analyze/stream", s.handleAnalyzeStream)
	mux.HandleFunc("/dataset/create", s.handleDatasetCreate)
	mux.HandleFunc("/dataset/", s.handleDatasetSchema)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return s.accessLog(mux)
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
