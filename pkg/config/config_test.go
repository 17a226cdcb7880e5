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
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlagSetForTest mirrors the persistent flags cmd/sheetloom registers on
// its root command, so BindFlags has every key it expects to look up.
func newFlagSetForTest() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "0.0.0.0", "")
	flags.Int("port", 8080, "")
	flags.String("llm-provider", "anthropic", "")
	flags.String("llm-model", "", "")
	flags.String("anthropic-key", "", "")
	flags.String("openai-key", "", "")
	flags.Int("max-steps", 8, "")
	flags.Int("deadline", 60, "")
	flags.Int("max-rows", 10000, "")
	flags.Int("query-timeout", 30, "")
	flags.Float64("cost-ceiling", 0, "")
	flags.Int("heartbeat-interval", 15, "")
	flags.String("db", "./sheetloom.db", "")
	flags.String("upload-dir", "./uploads", "")
	flags.String("trace-db", "", "")
	flags.String("log-level", "info", "")
	flags.String("log-format", "console", "")
	return flags
}

func TestLoadAppliesDefaultsWithoutAFile(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 8, cfg.Agent.MaxSteps)
	assert.Equal(t, 0, cfg.Storage.DatasetTTLHours)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetloom.yaml")
	contents := "server:\n  port: 9999\nllm:\n  provider: openai\nagent:\n  max_steps: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.Agent.MaxSteps)
	// Unset keys still fall back to defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadEnvOverridesFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetloom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: anthropic\n"), 0o644))

	// Viper's AutomaticEnv, with no key replacer configured, looks up the
	// dotted key as-is rather than an underscore-joined one.
	t.Setenv("SHEETLOOM_LLM.PROVIDER", "openai")

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestAgentConfigDurationHelpers(t *testing.T) {
	a := AgentConfig{DeadlineSeconds: 45, QueryTimeoutSec: 20}
	assert.Equal(t, 45*time.Second, a.Deadline())
	assert.Equal(t, 20*time.Second, a.QueryTimeout())
}

func TestStorageConfigDatasetTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), StorageConfig{}.DatasetTTL())
	assert.Equal(t, 6*time.Hour, StorageConfig{DatasetTTLHours: 6}.DatasetTTL())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		LLM:    LLMConfig{Provider: "anthropic"},
		Agent:  AgentConfig{MaxSteps: 1},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		LLM:    LLMConfig{Provider: "bedrock"},
		Agent:  AgentConfig{MaxSteps: 1},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroMaxSteps(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		LLM:    LLMConfig{Provider: "anthropic"},
		Agent:  AgentConfig{MaxSteps: 0},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		LLM:    LLMConfig{Provider: "openai"},
		Agent:  AgentConfig{MaxSteps: 8},
	}
	assert.NoError(t, cfg.Validate())
}

func TestBindFlagsBindsKnownKeys(t *testing.T) {
	v := viper.New()
	flags := newFlagSetForTest()

	require.NoError(t, BindFlags(v, flags))
	require.NoError(t, flags.Set("port", "9090"))

	assert.Equal(t, 9090, v.GetInt("server.port"))
}
