// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "testing"

func TestSnakeCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"sessionId", "session_id"},
		{"workingDirectory", "working_directory"},
		{"newSessionId", "new_session_id"},
		{"text", "text"},
		{"already_snake", "already_snake"},
		{"a", "a"},
		{"", ""},
	}
	for _, c := range cases {
		if got := snakeCase(c.in); got != c.want {
			t.Errorf("snakeCase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCamelCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"session_id", "sessionId"},
		{"working_directory", "workingDirectory"},
		{"resume_session_id", "resumeSessionId"},
		{"text", "text"},
		{"exit_code", "exitCode"},
		{"exit_code_2", "exitCode_2"},
		{"_private", "_private"},
		{"trailing_", "trailing_"},
		{"", ""},
	}
	for _, c := range cases {
		if got := camelCase(c.in); got != c.want {
			t.Errorf("camelCase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUnknownKeysRoundTrip(t *testing.T) {
	// Server keys the client has no constant for must survive a
	// decode/encode cycle byte for byte, including ones with numeric
	// segments where the underscore carries no case information.
	cases := []string{
		"exit_code_2",
		"sha_256_digest",
		"already_snake",
		"__weird__",
	}
	for _, key := range cases {
		if got := snakeCase(camelCase(key)); got != key {
			t.Errorf("round trip %q = %q", key, got)
		}
	}
}

func TestTransformLeavesScalarsAlone(t *testing.T) {
	// String values containing underscores or capitals are data, not
	// keys, and must pass through byte for byte.
	tree := map[string]any{
		"previewText": "run my_script.sh in /tmp/Work_Dir",
		"nested": []any{
			map[string]any{"queuedAt": "2025-06-01T10:00:00.000000Z"},
			"plain_string",
		},
	}
	out := transformKeys(tree, snakeCase).(map[string]any)

	if out["preview_text"] != "run my_script.sh in /tmp/Work_Dir" {
		t.Errorf("string value rewritten: %v", out["preview_text"])
	}
	nested := out["nested"].([]any)
	if nested[1] != "plain_string" {
		t.Errorf("list scalar rewritten: %v", nested[1])
	}
	inner := nested[0].(map[string]any)
	if _, ok := inner["queued_at"]; !ok {
		t.Errorf("nested key not transformed: %v", inner)
	}
}
