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
package query

import "fmt"

// BadSpecError is the structured validation failure returned by the
// compiler: { code: BAD_SPEC; field_path; reason }. No SQL is emitted
// once this is returned.
type BadSpecError struct {
	FieldPath string
	Reason    string
}

func (e *BadSpecError) Error() string {
	return fmt.Sprintf("BAD_SPEC at %s: %s", e.FieldPath, e.Reason)
}

func badSpec(fieldPath, format string, args ...interface{}) *BadSpecError {
	return &BadSpecError{FieldPath: fieldPath, Reason: fmt.Sprintf(format, args...)}
}
