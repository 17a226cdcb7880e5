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
package shuttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMapOfNilSchemaIsNil(t *testing.T) {
	var schema *JSONSchema
	assert.Nil(t, schema.ToMap())
}

func TestToMapRoundTripsFields(t *testing.T) {
	schema := NewObjectSchema("query args", map[string]*JSONSchema{
		"dataset_id": NewStringSchema("target dataset"),
	}, []string{"dataset_id"})

	m := schema.ToMap()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, "query args", m["description"])

	props := m["properties"].(map[string]interface{})
	dsSchema := props["dataset_id"].(map[string]interface{})
	assert.Equal(t, "string", dsSchema["type"])
}

func TestWithEnumSetsEnumValues(t *testing.T) {
	schema := NewStringSchema("chart type").WithEnum("line", "bar", "pie")
	assert.Equal(t, []interface{}{"line", "bar", "pie"}, schema.Enum)
}

func TestWithDefaultSetsDefaultValue(t *testing.T) {
	schema := NewNumberSchema("limit").WithDefault(10.0)
	assert.Equal(t, 10.0, schema.Default)
}

func TestWithRangeSetsMinAndMax(t *testing.T) {
	min, max := 1.0, 100.0
	schema := NewNumberSchema("n").WithRange(&min, &max)
	assert.Equal(t, &min, schema.Minimum)
	assert.Equal(t, &max, schema.Maximum)
}

func TestNewArraySchemaSetsItemSchema(t *testing.T) {
	schema := NewArraySchema("columns", NewStringSchema("a column name"))
	assert.Equal(t, "array", schema.Type)
	assert.Equal(t, "string", schema.Items.Type)
}

func TestNewBooleanSchema(t *testing.T) {
	schema := NewBooleanSchema("active flag")
	assert.Equal(t, "boolean", schema.Type)
}
