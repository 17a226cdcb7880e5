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
package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDatabaseWithWALAndBusyTimeout(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestOpenUsableForCreateAndQuery(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (a TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t VALUES (?)`, "hello")
	require.NoError(t, err)

	var got string
	require.NoError(t, db.QueryRow(`SELECT a FROM t`).Scan(&got))
	assert.Equal(t, "hello", got)
}

func TestQuoteIdentEscapesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `"region"`, QuoteIdent("region"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestSanitizeIdentifierReplacesDisallowedCharsWithUnderscore(t *testing.T) {
	assert.Equal(t, "ds_2026_sales_csv", SanitizeIdentifier("ds-2026 sales.csv"))
}

func TestSanitizeIdentifierPrefixesLeadingDigit(t *testing.T) {
	assert.Equal(t, "t_123abc", SanitizeIdentifier("123abc"))
}

func TestSanitizeIdentifierFallsBackToTForAllDisallowedInput(t *testing.T) {
	assert.Equal(t, "t", SanitizeIdentifier("!!!"))
}

func TestSanitizeIdentifierOfEmptyStringIsT(t *testing.T) {
	assert.Equal(t, "t", SanitizeIdentifier(""))
}
