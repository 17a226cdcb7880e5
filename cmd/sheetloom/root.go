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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winkovo0818/ai-data-analyst/pkg/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sheetloom",
	Short: "Sheetloom answers natural-language questions about tabular data",
	Long:  "Sheetloom drives an LLM through a constrained tool-calling loop over an embedded analytical store, so the model never emits SQL or code of its own.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sheetloom.yaml)")

	rootCmd.PersistentFlags().String("host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("port", 8080, "HTTP server port")

	rootCmd.PersistentFlags().String("llm-provider", "anthropic", "default LLM provider (anthropic, openai)")
	rootCmd.PersistentFlags().String("llm-model", "", "default LLM model (provider default if empty)")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or ANTHROPIC_API_KEY)")
	rootCmd.PersistentFlags().String("openai-key", "", "OpenAI API key (or OPENAI_API_KEY)")

	rootCmd.PersistentFlags().Int("max-steps", 8, "Agent Loop step budget")
	rootCmd.PersistentFlags().Int("deadline", 60, "Agent Loop overall deadline, in seconds")
	rootCmd.PersistentFlags().Int("max-rows", 10000, "hard row ceiling for any single query")
	rootCmd.PersistentFlags().Int("query-timeout", 30, "per-tool-call timeout, in seconds")
	rootCmd.PersistentFlags().Float64("cost-ceiling", 0, "optional cost ceiling in USD (0 disables it)")
	rootCmd.PersistentFlags().Int("heartbeat-interval", 15, "SSE keepalive heartbeat interval, in seconds")

	rootCmd.PersistentFlags().String("db", "./sheetloom.db", "analytical store path")
	rootCmd.PersistentFlags().String("upload-dir", "./uploads", "directory incoming files are written to")
	rootCmd.PersistentFlags().String("trace-db", "", "optional SQLite path for durable traces (empty keeps traces in memory)")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	if err := config.BindFlags(viper.GetViper(), rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "bind flags:", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(serveCmd)
}
