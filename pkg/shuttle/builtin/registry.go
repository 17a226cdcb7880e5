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
package builtin

import (
	"database/sql"

	"github.com/winkovo0818/ai-data-analyst/pkg/dataset"
	"github.com/winkovo0818/ai-data-analyst/pkg/shuttle"
)

// All creates the six registered tools, bound to the
// shared dataset registry, analytical store, and upload directory.
func All(registry *dataset.Registry, db *sql.DB, uploadDir string) []shuttle.Tool {
	return []shuttle.Tool{
		NewCreateDatasetTool(registry, db, uploadDir),
		NewGetSchemaTool(registry),
		NewSampleRowsTool(registry),
		NewRunQueryTool(registry, db),
		NewPlotTool(),
		NewResolveFieldsTool(registry),
	}
}
