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

// Package config loads sheetloom's layered configuration (CLI flags >
// environment variables > config file > defaults), grounded on the
// cobra/viper layering convention.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP/SSE transport settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LLMConfig holds the default LLM provider settings ("LLM
// configuration"); a request's own `llm_config` overrides these per call.
type LLMConfig struct {
	Provider        string  `mapstructure:"provider"` // anthropic, openai
	Model           string  `mapstructure:"model"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

// AgentConfig holds the Agent Loop's hard budgets, mapped
// onto agent.Config at wiring time.
type AgentConfig struct {
	MaxSteps             int     `mapstructure:"max_steps"`
	DeadlineSeconds      int     `mapstructure:"deadline_seconds"`
	MaxRows              int     `mapstructure:"max_rows"`
	QueryTimeoutSec      int     `mapstructure:"query_timeout_seconds"`
	CostCeiling          float64 `mapstructure:"cost_ceiling"`
	HeartbeatIntervalSec int     `mapstructure:"heartbeat_interval_seconds"`
}

// Deadline returns the configured deadline as a time.Duration.
func (a AgentConfig) Deadline() time.Duration { return time.Duration(a.DeadlineSeconds) * time.Second }

// QueryTimeout returns the configured per-tool-call timeout as a time.Duration.
func (a AgentConfig) QueryTimeout() time.Duration {
	return time.Duration(a.QueryTimeoutSec) * time.Second
}

// HeartbeatInterval returns the configured SSE keepalive interval as a
// time.Duration.
func (a AgentConfig) HeartbeatInterval() time.Duration {
	return time.Duration(a.HeartbeatIntervalSec) * time.Second
}

// StorageConfig holds on-disk paths.
type StorageConfig struct {
	DatabasePath    string `mapstructure:"database_path"`
	UploadDir       string `mapstructure:"upload_dir"`
	TracePath       string `mapstructure:"trace_path"`        // empty disables the durable tracer
	DatasetTTLHours int    `mapstructure:"dataset_ttl_hours"` // 0 disables age-based eviction
}

// DatasetTTL returns the configured dataset garbage-collection age, or 0
// if eviction is disabled.
func (s StorageConfig) DatasetTTL() time.Duration {
	return time.Duration(s.DatasetTTLHours) * time.Hour
}

// LoggingConfig holds zap logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// Load reads configuration from, in increasing priority: defaults, a
// config file (if cfgFile is non-empty or one is found on the search
// path), SHEETLOOM_-prefixed environment variables, then flags already
// bound into v via BindPFlag.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sheetloom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sheetloom/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix("SHEETLOOM")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// BindFlags registers the CLI flags cmd/sheetloom exposes and binds each
// to its viper key, so flag > env > file > default priority holds.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"server.host":                       "host",
		"server.port":                       "port",
		"llm.provider":                      "llm-provider",
		"llm.model":                         "llm-model",
		"llm.anthropic_api_key":             "anthropic-key",
		"llm.openai_api_key":                "openai-key",
		"agent.max_steps":                   "max-steps",
		"agent.deadline_seconds":            "deadline",
		"agent.max_rows":                    "max-rows",
		"agent.query_timeout_seconds":       "query-timeout",
		"agent.cost_ceiling":                "cost-ceiling",
		"agent.heartbeat_interval_seconds":  "heartbeat-interval",
		"storage.database_path":             "db",
		"storage.upload_dir":                "upload-dir",
		"storage.trace_path":                "trace-db",
		"logging.level":                     "log-level",
		"logging.format":                    "log-format",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)

	v.SetDefault("agent.max_steps", 8)
	v.SetDefault("agent.deadline_seconds", 60)
	v.SetDefault("agent.max_rows", 10000)
	v.SetDefault("agent.query_timeout_seconds", 30)
	v.SetDefault("agent.cost_ceiling", 0.0)
	v.SetDefault("agent.heartbeat_interval_seconds", 15)

	v.SetDefault("storage.database_path", "./sheetloom.db")
	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.trace_path", "")
	v.SetDefault("storage.dataset_ttl_hours", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks invariants Load cannot express via defaults alone.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider %q must be anthropic or openai", c.LLM.Provider)
	}
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be at least 1")
	}
	return nil
}
