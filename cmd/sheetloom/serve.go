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
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sheetloomagent "github.com/winkovo0818/ai-data-analyst/pkg/agent"
	"github.com/winkovo0818/ai-data-analyst/pkg/config"
	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/llm/factory"
	"github.com/winkovo0818/ai-data-analyst/pkg/observability"
	obsstorage "github.com/winkovo0818/ai-data-analyst/pkg/observability/storage"
	"github.com/winkovo0818/ai-data-analyst/pkg/server"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle/builtin"
	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sheetloom HTTP/SSE server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	db, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open analytical store: %w", err)
	}
	defer db.Close()

	datasets, err := dataset.NewRegistry(db, cfg.Storage.DatasetTTL())
	if err != nil {
		return fmt.Errorf("init dataset registry: %w", err)
	}

	tracer, err := newTracer(cfg.Storage.TracePath)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	toolReg := shuttle.NewRegistry()
	for _, tool := range builtin.All(datasets, db, cfg.Storage.UploadDir) {
		toolReg.Register(tool)
	}
	executor := shuttle.NewExecutor(toolReg)

	agentConfig := sheetloomagent.Config{
		MaxSteps:          cfg.Agent.MaxSteps,
		Deadline:          cfg.Agent.Deadline(),
		MaxRows:           cfg.Agent.MaxRows,
		QueryTimeout:      cfg.Agent.QueryTimeout(),
		CostCeiling:       cfg.Agent.CostCeiling,
		HeartbeatInterval: cfg.Agent.HeartbeatInterval(),
	}

	srv, err := server.New(
		server.Config{Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), UploadDir: cfg.Storage.UploadDir},
		server.Deps{
			Provider: factory.Config{
				Provider:        cfg.LLM.Provider,
				Model:           cfg.LLM.Model,
				AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
				OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
				MaxTokens:       cfg.LLM.MaxTokens,
				Temperature:     cfg.LLM.Temperature,
			},
			ToolReg:     toolReg,
			Executor:    executor,
			Tracer:      tracer,
			Registry:    datasets,
			AgentConfig: agentConfig,
			DB:          db,
			UploadDir:   cfg.Storage.UploadDir,
			Logger:      logger,
		},
	)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("sheetloom serving", zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
	return srv.Start(ctx)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			log.Printf("invalid log level %q, using info: %v", cfg.Level, err)
		} else {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return zapConfig.Build()
}

func newTracer(tracePath string) (observability.Tracer, error) {
	if tracePath == "" {
		return observability.NewMemoryTracer(), nil
	}
	return obsstorage.Open(tracePath)
}
