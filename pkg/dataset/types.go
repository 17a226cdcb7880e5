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

// Package dataset implements the Dataset Registry: it maps
// a dataset_id to a stored table in the embedded analytical store plus
// its column schema and row count.
package dataset

import "time"

// ColumnType is one of the six scalar types a column may carry.
type ColumnType string

const (
	ColumnInt      ColumnType = "int"
	ColumnFloat    ColumnType = "float"
	ColumnString   ColumnType = "string"
	ColumnDate     ColumnType = "date"
	ColumnDateTime ColumnType = "datetime"
	ColumnBool     ColumnType = "bool"
)

// Column describes one column in a Dataset's schema.
type Column struct {
	Name          string     `json:"name"`
	Type          ColumnType `json:"type"`
	NullRatio     float64    `json:"null_ratio"`
	ExampleValues []string   `json:"example_values"`
}

// Schema is the ordered list of columns for a dataset.
type Schema struct {
	Columns []Column `json:"columns"`
}

// ColumnNames returns just the names, in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Find returns the column with the given name (exact match), or false.
func (s Schema) Find(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Dataset is the registry's immutable record of one registered table.
type Dataset struct {
	ID          string    `json:"dataset_id"`
	TableName   string    `json:"table_name"`
	Schema      Schema    `json:"schema"`
	RowCount    int64     `json:"row_count"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NotFoundError is returned by Get/Sample when dataset_id is unknown.
type NotFoundError struct {
	DatasetID string
}

func (e *NotFoundError) Error() string {
	return "dataset not found: " + e.DatasetID
}

// ColumnNotFoundError is returned by Sample when a requested column does
// not exist in the dataset's schema.
type ColumnNotFoundError struct {
	DatasetID string
	Column    string
}

func (e *ColumnNotFoundError) Error() string {
	return "column not found: " + e.Column + " in dataset " + e.DatasetID
}
