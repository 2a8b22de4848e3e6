// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Message types sent by the client.
const (
	TypeConnect        = "connect"
	TypePing           = "ping"
	TypePrompt         = "prompt"
	TypeSubscribe      = "subscribe"
	TypeUnsubscribe    = "unsubscribe"
	TypeSessionDeleted = "session_deleted" // also received when another client deletes
)

// Message types received from the backend.
const (
	TypeConnected       = "connected"
	TypePong            = "pong"
	TypeAck             = "ack"
	TypeError           = "error"
	TypeAuthError       = "auth_error"
	TypeSessionList     = "session_list"
	TypeSessionCreated  = "session_created"
	TypeMessage         = "message"
	TypeTurnComplete    = "turn_complete"
	TypeCommandOutput   = "command_output"
	TypeCommandComplete = "command_complete"
	TypeSessionLocked   = "session_locked"
	TypeSessionUnlocked = "session_unlocked"
)

// Prompt builds the outbound prompt envelope. sessionID names the
// session to resume; for a session the backend has not seen yet the
// same ID is offered as the new-session ID, so the server adopts the
// client's identifier and both sides stay in one ID namespace.
func Prompt(text, workingDirectory, sessionID, correlationID string, newSession bool) Envelope {
	fields := map[string]any{
		"text":             text,
		"workingDirectory": workingDirectory,
		"correlationId":    correlationID,
	}
	if newSession {
		fields["newSessionId"] = sessionID
	} else {
		fields["resumeSessionId"] = sessionID
	}
	return NewEnvelope(TypePrompt, fields)
}

// Connect builds the outbound handshake envelope.
func Connect() Envelope { return NewEnvelope(TypeConnect, nil) }

// Ping builds the outbound keepalive envelope.
func Ping() Envelope { return NewEnvelope(TypePing, nil) }

// Subscribe builds the envelope that asks the backend to stream a
// session's messages.
func Subscribe(sessionID string) Envelope {
	return NewEnvelope(TypeSubscribe, map[string]any{"sessionId": sessionID})
}

// Unsubscribe builds the counterpart to Subscribe.
func Unsubscribe(sessionID string) Envelope {
	return NewEnvelope(TypeUnsubscribe, map[string]any{"sessionId": sessionID})
}

// DeleteSession builds the envelope announcing a local soft-delete.
func DeleteSession(sessionID string) Envelope {
	return NewEnvelope(TypeSessionDeleted, map[string]any{"sessionId": sessionID})
}
