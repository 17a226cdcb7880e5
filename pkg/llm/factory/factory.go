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

// Package factory selects and constructs an LLM provider ("anthropic"
// or "openai") from configuration.
package factory

import (
	"fmt"
	"os"

	"github.com/winkovo0818/ai-data-analyst/pkg/llm/anthropic"
	"github.com/winkovo0818/ai-data-analyst/pkg/llm/openai"
	"github.com/winkovo0818/ai-data-analyst/pkg/types"
)

// Config holds the settings needed to construct any supported provider.
type Config struct {
	Provider string // "anthropic" or "openai"
	Model    string

	AnthropicAPIKey string
	OpenAIAPIKey    string

	MaxTokens   int
	Temperature float64
}

// New constructs the LLMProvider named by config.Provider.
func New(config Config) (types.LLMProvider, error) {
	switch config.Provider {
	case "anthropic", "":
		return newAnthropic(config)
	case "openai":
		return newOpenAI(config)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", config.Provider)
	}
}

func newAnthropic(config Config) (types.LLMProvider, error) {
	apiKey := config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:      apiKey,
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}), nil
}

func newOpenAI(config Config) (types.LLMProvider, error) {
	apiKey := config.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not configured (set llm.openai_api_key or OPENAI_API_KEY)")
	}

	return openai.NewClient(openai.Config{
		APIKey:      apiKey,
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}), nil
}

// IsProviderAvailable reports whether a provider can be constructed from
// the given config (credentials present).
func IsProviderAvailable(provider string, config Config) bool {
	config.Provider = provider
	_, err := New(config)
	return err == nil
}
