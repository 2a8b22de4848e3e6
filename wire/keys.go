// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strings"
	"unicode"
)

// snakeCase converts a camelCase key to snake_case: "sessionId" →
// "session_id". Keys already in snake_case pass through unchanged.
func snakeCase(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 3)
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// camelCase converts a snake_case key to camelCase: "session_id" →
// "sessionId". Underscores survive when collapsing them would not
// round-trip: leading, trailing, and ones preceding a non-letter
// ("exit_code_2" keeps its second underscore, since snakeCase only
// reinserts an underscore before an uppercase letter).
func camelCase(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	runes := []rune(key)
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i > 0 && i < len(runes)-1 && unicode.IsLetter(runes[i+1]) {
			i++
			b.WriteRune(unicode.ToUpper(runes[i]))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// transformKeys rewrites every map key in a decoded JSON tree using
// rename, recursing through nested objects and arrays. Leaf values are
// returned as-is: only structural nodes are walked, never the
// contents of scalars.
func transformKeys(value any, rename func(string) string) any {
	switch node := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, child := range node {
			out[rename(key)] = transformKeys(child, rename)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = transformKeys(child, rename)
		}
		return out
	default:
		return value
	}
}
