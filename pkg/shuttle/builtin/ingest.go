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

// Package builtin implements the six registered tools: create_dataset,
// get_schema, sample_rows, run_query, plot, and resolve_fields.
package builtin

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
)

// MaxUploadSizeBytes is the hard ceiling on an ingested file.
const MaxUploadSizeBytes = 50 * 1024 * 1024

// MaxInferenceScan bounds how many data rows type inference samples per
// column, to keep ingest of very wide/tall sheets bounded.
const MaxInferenceScan = 200

// ParsedTable is a raw, string-typed rectangular table read off disk,
// before type inference.
type ParsedTable struct {
	Headers []string
	Rows    [][]string
}

// parseFile dispatches on file extension to the CSV or spreadsheet
// reader. sheet and headerRow only apply to spreadsheets; headerRow is
// 1-based and defaults to 1.
func parseFile(path string, sheet string, headerRow int) (*ParsedTable, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat uploaded file: %w", err)
	}
	if info.Size() > MaxUploadSizeBytes {
		return nil, fmt.Errorf("uploaded file exceeds the %d byte limit", MaxUploadSizeBytes)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return parseCSV(path)
	case ".xlsx", ".xlsm", ".xls":
		return parseExcel(path, sheet, headerRow)
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}

func parseCSV(path string) (*ParsedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file has no rows")
	}

	return &ParsedTable{Headers: records[0], Rows: records[1:]}, nil
}

// parseExcel reads one sheet of a spreadsheet into a ParsedTable: open
// the workbook, resolve the sheet name (default to the first sheet), and
// walk GetRows.
func parseExcel(path string, sheet string, headerRow int) (*ParsedTable, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer file.Close()

	sheetName := sheet
	if sheetName == "" {
		names := file.GetSheetList()
		if len(names) == 0 {
			return nil, fmt.Errorf("spreadsheet has no sheets")
		}
		sheetName = names[0]
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no rows", sheetName)
	}

	if headerRow <= 0 {
		headerRow = 1
	}
	headerIdx := headerRow - 1
	if headerIdx >= len(rows) {
		return nil, fmt.Errorf("header_row %d is past the end of sheet %q", headerRow, sheetName)
	}

	headers := rows[headerIdx]
	dataRows := rows[headerIdx+1:]

	// excelize omits trailing empty cells; pad every row to the header
	// width so column indices stay aligned.
	for i, row := range dataRows {
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			dataRows[i] = padded
		}
	}

	return &ParsedTable{Headers: headers, Rows: dataRows}, nil
}

// inferSchema assigns a dataset.ColumnType to each column by scanning up
// to MaxInferenceScan non-empty values, against the supported column
// type set.
func inferSchema(pt *ParsedTable) dataset.Schema {
	columns := make([]dataset.Column, len(pt.Headers))

	for colIdx, name := range pt.Headers {
		var nonNull, total int
		colType := dataset.ColumnString
		candidates := []dataset.ColumnType{dataset.ColumnBool, dataset.ColumnInt, dataset.ColumnFloat, dataset.ColumnDateTime, dataset.ColumnDate}
		possible := make(map[dataset.ColumnType]bool, len(candidates))
		for _, c := range candidates {
			possible[c] = true
		}

		var examples []string
		seen := make(map[string]bool)

		scanned := 0
		for _, row := range pt.Rows {
			if scanned >= MaxInferenceScan {
				break
			}
			if colIdx >= len(row) {
				continue
			}
			total++
			val := strings.TrimSpace(row[colIdx])
			if val == "" {
				continue
			}
			nonNull++
			scanned++

			for candidate := range possible {
				if possible[candidate] && !valueMatchesColumnType(val, candidate) {
					possible[candidate] = false
				}
			}

			if !seen[val] && len(examples) < 3 {
				seen[val] = true
				examples = append(examples, val)
			}
		}

		switch {
		case nonNull == 0:
			colType = dataset.ColumnString
		case possible[dataset.ColumnBool]:
			colType = dataset.ColumnBool
		case possible[dataset.ColumnInt]:
			colType = dataset.ColumnInt
		case possible[dataset.ColumnFloat]:
			colType = dataset.ColumnFloat
		case possible[dataset.ColumnDateTime]:
			colType = dataset.ColumnDateTime
		case possible[dataset.ColumnDate]:
			colType = dataset.ColumnDate
		default:
			colType = dataset.ColumnString
		}

		nullRatio := 0.0
		if total > 0 {
			nullRatio = float64(total-nonNull) / float64(total)
		}

		columns[colIdx] = dataset.Column{
			Name:          name,
			Type:          colType,
			NullRatio:     nullRatio,
			ExampleValues: examples,
		}
	}

	return dataset.Schema{Columns: columns}
}

func valueMatchesColumnType(val string, t dataset.ColumnType) bool {
	switch t {
	case dataset.ColumnBool:
		lower := strings.ToLower(val)
		return lower == "true" || lower == "false"
	case dataset.ColumnInt:
		_, err := strconv.ParseInt(val, 10, 64)
		return err == nil
	case dataset.ColumnFloat:
		_, err := strconv.ParseFloat(val, 64)
		return err == nil
	case dataset.ColumnDate:
		_, err := time.Parse("2006-01-02", val)
		return err == nil
	case dataset.ColumnDateTime:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if _, err := time.Parse(layout, val); err == nil {
				return true
			}
		}
		return false
	default:
		return true
	}
}
