// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"
	"time"

	"github.com/voicecode-project/voicecode/wire"
)

// decodeFrame parses a raw wire frame for dispatch, failing the test on
// malformed input.
func decodeFrame(t *testing.T, raw string) wire.Envelope {
	t.Helper()
	envelope, err := wire.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decoding test frame: %v", err)
	}
	return envelope
}

func TestDispatchSessionList(t *testing.T) {
	var got []SessionSummary
	router := &Router{SessionList: func(sessions []SessionSummary) { got = sessions }}

	router.Dispatch(decodeFrame(t, `{
		"type": "session_list",
		"sessions": [
			{
				"session_id": "abc",
				"name": "demo",
				"working_directory": "/home/user/demo",
				"last_modified": "2025-06-01T10:00:00.000000Z",
				"message_count": 3,
				"preview": "hello",
				"queue_position": 1,
				"priority_order": 2.5
			}
		]
	}`))

	if len(got) != 1 {
		t.Fatalf("sessions = %d, want 1", len(got))
	}
	s := got[0]
	if s.ID != "abc" || s.Name != "demo" || s.WorkingDirectory != "/home/user/demo" {
		t.Errorf("summary = %+v", s)
	}
	if s.MessageCount != 3 || s.QueuePosition != 1 || s.PriorityOrder != 2.5 {
		t.Errorf("numeric fields = %+v", s)
	}
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if !s.LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", s.LastModified, want)
	}
}

func TestDispatchMessageNested(t *testing.T) {
	var got MessageEvent
	router := &Router{Message: func(m MessageEvent) { got = m }}

	router.Dispatch(decodeFrame(t, `{
		"type": "message",
		"session_id": "abc",
		"message": {
			"id": "srv-1",
			"correlation_id": "corr-1",
			"role": "assistant",
			"content": "done",
			"timestamp": "2025-06-01T10:00:01.500000Z"
		}
	}`))

	if got.ID != "srv-1" || got.CorrelationID != "corr-1" || got.SessionID != "abc" {
		t.Errorf("identity fields = %+v", got)
	}
	if got.Role != "assistant" || got.Text != "done" {
		t.Errorf("content fields = %+v", got)
	}
}

func TestDispatchMessageFlat(t *testing.T) {
	var got MessageEvent
	router := &Router{Message: func(m MessageEvent) { got = m }}

	router.Dispatch(decodeFrame(t, `{
		"type": "message",
		"session_id": "abc",
		"id": "srv-2",
		"role": "user",
		"text": "hi"
	}`))

	if got.ID != "srv-2" || got.SessionID != "abc" || got.Text != "hi" {
		t.Errorf("event = %+v", got)
	}
}

func TestDispatchLifecycleSignals(t *testing.T) {
	var completed, locked, unlocked, deleted string
	var ack AckEvent
	router := &Router{
		TurnComplete:    func(id string) { completed = id },
		SessionLocked:   func(id string) { locked = id },
		SessionUnlocked: func(id string) { unlocked = id },
		SessionDeleted:  func(id string) { deleted = id },
		Ack:             func(a AckEvent) { ack = a },
	}

	router.Dispatch(decodeFrame(t, `{"type": "turn_complete", "session_id": "s1"}`))
	router.Dispatch(decodeFrame(t, `{"type": "session_locked", "session_id": "s2"}`))
	router.Dispatch(decodeFrame(t, `{"type": "session_unlocked", "session_id": "s3"}`))
	router.Dispatch(decodeFrame(t, `{"type": "session_deleted", "session_id": "s4"}`))
	router.Dispatch(decodeFrame(t, `{"type": "ack", "session_id": "s5", "correlation_id": "c5"}`))

	if completed != "s1" || locked != "s2" || unlocked != "s3" || deleted != "s4" {
		t.Errorf("signals = %q %q %q %q", completed, locked, unlocked, deleted)
	}
	if ack.SessionID != "s5" || ack.CorrelationID != "c5" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestDispatchCommandEvents(t *testing.T) {
	var output CommandOutputEvent
	var complete CommandCompleteEvent
	router := &Router{
		CommandOutput:   func(e CommandOutputEvent) { output = e },
		CommandComplete: func(e CommandCompleteEvent) { complete = e },
	}

	router.Dispatch(decodeFrame(t, `{"type": "command_output", "session_id": "s1", "output": "ok\n", "timestamp": "2025-06-01T10:00:02.000000Z"}`))
	router.Dispatch(decodeFrame(t, `{"type": "command_complete", "session_id": "s1", "exit_code": 2}`))

	if output.SessionID != "s1" || output.Output != "ok\n" {
		t.Errorf("output = %+v", output)
	}
	want := time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC)
	if !output.Timestamp.Equal(want) {
		t.Errorf("output timestamp = %v, want %v", output.Timestamp, want)
	}
	if complete.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", complete.ExitCode)
	}
	// A backend that omits the timestamp yields a zero time; the store
	// stamps those on arrival.
	if !complete.Timestamp.IsZero() {
		t.Errorf("complete timestamp = %v, want zero", complete.Timestamp)
	}
}

func TestDispatchErrors(t *testing.T) {
	var authCode, authErr, srvErr string
	router := &Router{
		AuthError:   func(code, m string) { authCode, authErr = code, m },
		ServerError: func(m string) { srvErr = m },
	}

	router.Dispatch(decodeFrame(t, `{"type": "auth_error", "code": "token_expired", "message": "bad token"}`))
	router.Dispatch(decodeFrame(t, `{"type": "error", "message": "unknown message type"}`))

	if authCode != "token_expired" || authErr != "bad token" {
		t.Errorf("auth error = %q %q", authCode, authErr)
	}
	if srvErr != "unknown message type" {
		t.Errorf("server error = %q", srvErr)
	}
}

func TestDispatchUnknownAndNilHandlers(t *testing.T) {
	router := &Router{}

	// Neither an unknown type nor a known type with no handler may
	// panic.
	router.Dispatch(decodeFrame(t, `{"type": "hologram", "x": 1}`))
	router.Dispatch(decodeFrame(t, `{"type": "message", "text": "hi"}`))
	router.Dispatch(decodeFrame(t, `{"type": "session_list", "sessions": []}`))
}
