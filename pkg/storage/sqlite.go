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

// Package storage holds the embedded analytical store handle shared by
// the Dataset Registry, the QuerySpec Compiler, and the Trace/Audit
// store: one *sql.DB over modernc.org/sqlite, opened with WAL mode and a
// busy timeout, pooled so that connection acquisition is bounded by a
// small pool rather than opening a connection per request.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultMaxOpenConns bounds the connection pool against the embedded
// store. SQLite serializes writers internally; a small pool is enough to
// overlap reads across concurrent /analyze requests without contention.
const DefaultMaxOpenConns = 8

// Open opens (or creates) the analytical SQLite database at path and
// configures it the way every store in this repository expects:
// WAL journaling for concurrent readers, a busy timeout so lock
// contention blocks briefly instead of failing immediately, and a capped
// connection pool.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)

	return db, nil
}

// QuoteIdent double-quotes a SQL identifier, escaping embedded quotes.
// Every identifier this repository emits into SQL — table names, column
// names, aggregation/derived aliases — goes through this, never through
// raw string concatenation.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SanitizeIdentifier maps an arbitrary string to a safe bare SQL
// identifier: letters, digits and underscore only, never starting with a
// digit. Used for table names we generate ourselves (dataset tables),
// never for identifiers quoted via QuoteIdent.
func SanitizeIdentifier(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	if safe == "" {
		return "t"
	}
	if safe[0] >= '0' && safe[0] <= '9' {
		safe = "t_" + safe
	}
	return safe
}
