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
package dataset

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkovo0818/ai-data-analyst/pkg/storage"
)

func openTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reg, err := NewRegistry(db, ttl)
	require.NoError(t, err)
	return reg
}

// seedTable materializes a tiny backing table directly, mirroring what
// the ingest tool does before calling Register.
func seedTable(t *testing.T, reg *Registry, tableName string) {
	t.Helper()
	_, err := reg.db.Exec(`CREATE TABLE ` + storage.QuoteIdent(tableName) + ` (region TEXT, revenue REAL)`)
	require.NoError(t, err)
	_, err = reg.db.Exec(`INSERT INTO `+storage.QuoteIdent(tableName)+` (region, revenue) VALUES (?, ?), (?, ?), (?, ?)`,
		"east", 10.5, "west", 20.0, "east", 5.0)
	require.NoError(t, err)
}

func testSchema() Schema {
	return Schema{Columns: []Column{
		{Name: "region", Type: ColumnString},
		{Name: "revenue", Type: ColumnFloat},
	}}
}

func TestRegisterAndGet(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_1")

	id, err := reg.Register("sales_1", testSchema(), 3)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, reg.Exists(id))

	ds, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "sales_1", ds.TableName)
	assert.Equal(t, int64(3), ds.RowCount)
}

func TestRegisterRejectsDuplicateColumnNames(t *testing.T) {
	reg := openTestRegistry(t, 0)
	schema := Schema{Columns: []Column{{Name: "a", Type: ColumnString}, {Name: "a", Type: ColumnInt}}}

	_, err := reg.Register("t1", schema, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestGetUnknownDatasetReturnsNotFoundError(t *testing.T) {
	reg := openTestRegistry(t, 0)
	_, err := reg.Get("does-not-exist")
	require.Error(t, err)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
}

func TestGetSchemaReturnsRegisteredColumns(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_2")
	id, err := reg.Register("sales_2", testSchema(), 3)
	require.NoError(t, err)

	schema, err := reg.GetSchema(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "revenue"}, schema.ColumnNames())
}

func TestSampleReturnsRowsInRowidOrder(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_3")
	id, err := reg.Register("sales_3", testSchema(), 3)
	require.NoError(t, err)

	cols, rows, err := reg.Sample(context.Background(), id, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "revenue"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, "east", rows[0][0])
	assert.Equal(t, "west", rows[1][0])
}

func TestSampleRestrictsToRequestedColumns(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_4")
	id, err := reg.Register("sales_4", testSchema(), 3)
	require.NoError(t, err)

	cols, rows, err := reg.Sample(context.Background(), id, 10, []string{"revenue"})
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue"}, cols)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 1)
}

func TestSampleUnknownColumnFails(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_5")
	id, err := reg.Register("sales_5", testSchema(), 3)
	require.NoError(t, err)

	_, _, err = reg.Sample(context.Background(), id, 10, []string{"does_not_exist"})
	require.Error(t, err)
	var cnfe *ColumnNotFoundError
	assert.ErrorAs(t, err, &cnfe)
}

func TestSampleClampsNToUpperBound(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_6")
	id, err := reg.Register("sales_6", testSchema(), 3)
	require.NoError(t, err)

	_, rows, err := reg.Sample(context.Background(), id, 1000, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "only 3 rows exist regardless of the clamp")
}

func TestSampleDefaultsNWhenNonPositive(t *testing.T) {
	reg := openTestRegistry(t, 0)
	seedTable(t, reg, "sales_7")
	id, err := reg.Register("sales_7", testSchema(), 3)
	require.NoError(t, err)

	_, rows, err := reg.Sample(context.Background(), id, 0, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoadExistingRehydratesAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")

	db1, err := storage.Open(path)
	require.NoError(t, err)
	reg1, err := NewRegistry(db1, 0)
	require.NoError(t, err)
	_, err = db1.Exec(`CREATE TABLE t1 (x TEXT)`)
	require.NoError(t, err)
	id, err := reg1.Register("t1", Schema{Columns: []Column{{Name: "x", Type: ColumnString}}}, 0)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })
	reg2, err := NewRegistry(db2, 0)
	require.NoError(t, err)

	assert.True(t, reg2.Exists(id))
}

func TestEvictExpiredDropsOldDatasetsButKeepsFresh(t *testing.T) {
	reg := openTestRegistry(t, time.Hour)
	seedTable(t, reg, "old_table")
	seedTable(t, reg, "fresh_table")

	oldID, err := reg.Register("old_table", testSchema(), 3)
	require.NoError(t, err)
	freshID, err := reg.Register("fresh_table", testSchema(), 3)
	require.NoError(t, err)

	reg.mu.Lock()
	reg.datasets[oldID].RegisteredAt = time.Now().Add(-2 * time.Hour)
	reg.mu.Unlock()

	reg.evictExpired()

	assert.False(t, reg.Exists(oldID), "a dataset older than the TTL must be evicted")
	assert.True(t, reg.Exists(freshID), "a fresh dataset must survive eviction")
}
