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

// Package shuttle defines the tool-calling contract between the LLM and
// the backend: the Tool interface, the static Registry of tools the LLM
// may invoke, and the Executor that validates and dispatches calls.
//
// Why "shuttle"? Tools shuttle arguments and results back and forth
// between the LLM and the backend engines, never letting the LLM touch
// the engines directly.
package shuttle

import (
	"context"
	"encoding/json"
)

// Tool is a backend capability the LLM may invoke via validated
// arguments — never arbitrary code.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *JSONSchema
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Result is the outcome of executing a tool.
type Result struct {
	Success bool
	Data    interface{}
	Error   *Error

	// ExecutionTimeMs is set by the Executor, not the tool itself.
	ExecutionTimeMs int64
}

// Error is a structured tool error, matching the error-code taxonomy.
type Error struct {
	Code      string
	Message   string
	FieldPath string // populated for BAD_SPEC / BAD_PLOT
	Retryable bool
}

// JSONSchema is the subset of JSON Schema used to describe tool
// arguments: the fields gojsonschema understands.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Default     interface{}            `json:"default,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
}

// ToMap converts the schema to a plain map, the shape gojsonschema's
// GoLoader and the LLM Adapter's tool declarations both expect.
func (s *JSONSchema) ToMap() map[string]interface{} {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// NewObjectSchema creates a new object schema with the given properties.
func NewObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	return &JSONSchema{Type: "object", Description: description, Properties: properties, Required: required}
}

// NewStringSchema creates a new string schema.
func NewStringSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description}
}

// NewNumberSchema creates a new number schema.
func NewNumberSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "number", Description: description}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "boolean", Description: description}
}

// NewArraySchema creates a new array schema.
func NewArraySchema(description string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "array", Description: description, Items: items}
}

// WithEnum adds enum values to the schema.
func (s *JSONSchema) WithEnum(values ...interface{}) *JSONSchema {
	s.Enum = values
	return s
}

// WithDefault adds a default value to the schema.
func (s *JSONSchema) WithDefault(value interface{}) *JSONSchema {
	s.Default = value
	return s
}

// WithRange adds min/max constraints to the schema.
func (s *JSONSchema) WithRange(min, max *float64) *JSONSchema {
	s.Minimum = min
	s.Maximum = max
	return s
}
