// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status is the delivery state of a message.
type Status string

// Message delivery states. A Sending message must end up Confirmed or
// Errored; it never silently disappears.
const (
	StatusSending   Status = "sending"
	StatusConfirmed Status = "confirmed"
	StatusError     Status = "error"
)

// Session is one conversation with the assistant.
type Session struct {
	// ID is the canonical session identifier: the server-assigned ID,
	// lowercased. Locally-created sessions use a client UUID that the
	// server adopts on first prompt.
	ID string

	// Name is the display name. Server-derived unless the user renamed
	// the session locally, in which case it survives server merges.
	Name string

	// WorkingDirectory is the project directory on the backend host.
	WorkingDirectory string

	// LastModified, MessageCount, and Preview mirror the server; the
	// server is authoritative and every sync overwrites them.
	LastModified time.Time
	MessageCount int
	Preview      string

	// Queue metadata for backends that queue prompts across sessions.
	QueuePosition int
	QueuePriority int
	PriorityOrder float64
	QueuedAt      time.Time

	// Deleted marks a soft-deleted session: hidden from listings,
	// retained in persistence, never hard-deleted client-side.
	Deleted bool

	// LocalName records that Name was set by the user on this device
	// and must not be clobbered by server merges.
	LocalName bool
}

// Message is one entry in a session transcript.
type Message struct {
	// ID is the message identifier: client-generated while Sending,
	// replaced by the server's ID on confirmation.
	ID string

	// CorrelationID is a client-generated token sent with the prompt
	// and echoed back by the server, tying the echo to the optimistic
	// entry without text matching.
	CorrelationID string

	// SessionID is the canonical ID of the owning session.
	SessionID string

	Role Role
	Text string

	// Timestamp is client-assigned while Sending, server-assigned once
	// Confirmed.
	Timestamp time.Time

	Status Status

	// Error describes the failure for Status == StatusError.
	Error string

	// seq is the insertion sequence, the tiebreak for identical
	// timestamps so repeated reads never reorder the transcript.
	seq uint64
}

// CanonicalID normalizes a session identifier to the single namespace
// shared by the store, the lock tracker, and the wire protocol.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
