// Copyright 2026 The Sheetloom Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeToolNameLeavesSafeCharactersAlone(t *testing.T) {
	assert.Equal(t, "run_query", SanitizeToolName("run_query"))
	assert.Equal(t, "create-dataset.v2", SanitizeToolName("create-dataset.v2"))
}

func TestSanitizeToolNameReplacesUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "run_query_", SanitizeToolName("run_query!"))
	assert.Equal(t, "a_b_c", SanitizeToolName("a b/c"))
}

func TestBuildAndReverseToolNameMapRoundTrips(t *testing.T) {
	names := []string{"run_query", "get_schema", "create dataset"}
	m := BuildToolNameMap(names)

	assert.Equal(t, "run_query", ReverseToolName(m, SanitizeToolName("run_query")))
	assert.Equal(t, "create dataset", ReverseToolName(m, SanitizeToolName("create dataset")))
}

func TestReverseToolNameUnknownSanitizedNamePassesThrough(t *testing.T) {
	m := BuildToolNameMap([]string{"run_query"})
	assert.Equal(t, "never_registered", ReverseToolName(m, "never_registered"))
}
