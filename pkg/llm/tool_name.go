// Copyright 2026 The Sheetloom Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llm

import "strings"

// SanitizeToolName converts a tool name into the restricted pattern most
// provider APIs require (^[a-zA-Z0-9_.-]+$). Sheetloom's own tool names
// never contain anything else, but a provider-facing adapter should not
// assume that forever.
func SanitizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_', ch == '.', ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// BuildToolNameMap creates a bidirectional mapping from sanitized names
// back to their originals.
func BuildToolNameMap(names []string) map[string]string {
	m := make(map[string]string, len(names))
	for _, name := range names {
		m[SanitizeToolName(name)] = name
	}
	return m
}

// ReverseToolName maps a sanitized name back to its original, or returns
// it unchanged if it isn't in the map.
func ReverseToolName(nameMap map[string]string, sanitized string) string {
	if original, ok := nameMap[sanitized]; ok {
		return original
	}
	return sanitized
}
