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
package factory

// ModelInfo describes one model available through a provider.
type ModelInfo struct {
	ID                 string
	Name               string
	Provider           string
	Capabilities       []string
	ContextWindow      int
	CostPer1MInputUSD  float64
	CostPer1MOutputUSD float64
	Available          bool
}

// ModelRegistry holds the catalog of models known to every supported provider.
type ModelRegistry struct {
	models map[string][]ModelInfo
}

// NewModelRegistry builds the registry of models we know how to price and
// route to. Pricing mirrors calculateCost in each provider's client; keep
// the two in sync when Anthropic or OpenAI changes list prices.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string][]ModelInfo{
			"anthropic": {
				{
					ID:                 "claude-sonnet-4-5-20250929",
					Name:               "Claude Sonnet 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "claude-3-5-sonnet-20241022",
					Name:               "Claude 3.5 Sonnet",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "claude-opus-4-1-20250805",
					Name:               "Claude Opus 4.1",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  15.0,
					CostPer1MOutputUSD: 75.0,
				},
				{
					ID:                 "claude-3-5-haiku-20241022",
					Name:               "Claude 3.5 Haiku",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  0.8,
					CostPer1MOutputUSD: 4.0,
				},
			},
			"openai": {
				{
					ID:                 "gpt-4o",
					Name:               "GPT-4o",
					Provider:           "openai",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  2.5,
					CostPer1MOutputUSD: 10.0,
				},
				{
					ID:                 "gpt-4o-mini",
					Name:               "GPT-4o mini",
					Provider:           "openai",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  0.15,
					CostPer1MOutputUSD: 0.6,
				},
				{
					ID:                 "gpt-4-turbo",
					Name:               "GPT-4 Turbo",
					Provider:           "openai",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  10.0,
					CostPer1MOutputUSD: 30.0,
				},
				{
					ID:                 "o1-mini",
					Name:               "o1-mini",
					Provider:           "openai",
					Capabilities:       []string{"text", "tool-use"},
					ContextWindow:      128000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 12.0,
				},
			},
		},
	}
}

// GetModelsForProvider returns the known models for a provider, or nil if
// the provider isn't in the registry.
func (r *ModelRegistry) GetModelsForProvider(provider string) []ModelInfo {
	models := r.models[provider]
	if models == nil {
		return nil
	}
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}

// GetAllModels returns every model across every provider.
func (r *ModelRegistry) GetAllModels() []ModelInfo {
	var all []ModelInfo
	for _, models := range r.models {
		all = append(all, models...)
	}
	return all
}

// GetAvailableModels returns every known model, flagging which ones belong
// to a provider the given factory.Config can actually construct.
func (r *ModelRegistry) GetAvailableModels(config Config) []ModelInfo {
	var available []ModelInfo
	for provider, models := range r.models {
		ok := IsProviderAvailable(provider, config)
		for _, m := range models {
			m.Available = ok
			available = append(available, m)
		}
	}
	return available
}
