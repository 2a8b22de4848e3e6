// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"time"

	"github.com/voicecode-project/voicecode/wire"
)

// SessionSummary is one entry of a session_list or session_created
// message.
type SessionSummary struct {
	ID               string
	Name             string
	WorkingDirectory string
	LastModified     time.Time
	MessageCount     int
	Preview          string
	QueuePosition    int
	QueuePriority    int
	PriorityOrder    float64
	QueuedAt         time.Time
}

// MessageEvent is a server-confirmed transcript message.
type MessageEvent struct {
	ID            string
	CorrelationID string
	SessionID     string
	Role          string
	Text          string
	Timestamp     time.Time
}

// AckEvent acknowledges a prompt the client sent.
type AckEvent struct {
	SessionID     string
	CorrelationID string
}

// CommandOutputEvent carries a chunk of streamed command output.
type CommandOutputEvent struct {
	SessionID string
	Output    string
	Timestamp time.Time
}

// CommandCompleteEvent reports a finished command.
type CommandCompleteEvent struct {
	SessionID string
	ExitCode  int
	Timestamp time.Time
}

// Router dispatches decoded envelopes to typed handlers. Nil handlers
// are skipped; unknown message types are logged at debug level and
// ignored, which keeps old clients working against newer backends.
type Router struct {
	// Logger for unhandled-type diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	Connected       func()
	Pong            func()
	Ack             func(AckEvent)
	SessionList     func([]SessionSummary)
	SessionCreated  func(SessionSummary)
	SessionDeleted  func(sessionID string)
	Message         func(MessageEvent)
	TurnComplete    func(sessionID string)
	CommandOutput   func(CommandOutputEvent)
	CommandComplete func(CommandCompleteEvent)
	SessionLocked   func(sessionID string)
	SessionUnlocked func(sessionID string)
	AuthError       func(code, message string)
	ServerError     func(message string)
}

// Dispatch routes one envelope to its handler.
func (r *Router) Dispatch(envelope wire.Envelope) {
	switch envelope.Type {
	case wire.TypeConnected:
		if r.Connected != nil {
			r.Connected()
		}
	case wire.TypePong:
		if r.Pong != nil {
			r.Pong()
		}
	case wire.TypeAck:
		if r.Ack != nil {
			r.Ack(AckEvent{
				SessionID:     envelope.String("sessionId"),
				CorrelationID: envelope.String("correlationId"),
			})
		}
	case wire.TypeSessionList:
		if r.SessionList != nil {
			raw := envelope.Maps("sessions")
			sessions := make([]SessionSummary, 0, len(raw))
			for _, fields := range raw {
				sessions = append(sessions, decodeSessionSummary(fields))
			}
			r.SessionList(sessions)
		}
	case wire.TypeSessionCreated:
		if r.SessionCreated != nil {
			fields := envelope.Map("session")
			if fields == nil {
				fields = envelope.Fields
			}
			r.SessionCreated(decodeSessionSummary(fields))
		}
	case wire.TypeSessionDeleted:
		if r.SessionDeleted != nil {
			r.SessionDeleted(envelope.String("sessionId"))
		}
	case wire.TypeMessage:
		if r.Message != nil {
			r.Message(decodeMessageEvent(envelope))
		}
	case wire.TypeTurnComplete:
		if r.TurnComplete != nil {
			r.TurnComplete(envelope.String("sessionId"))
		}
	case wire.TypeCommandOutput:
		if r.CommandOutput != nil {
			r.CommandOutput(CommandOutputEvent{
				SessionID: envelope.String("sessionId"),
				Output:    envelope.String("output"),
				Timestamp: envelope.Time("timestamp"),
			})
		}
	case wire.TypeCommandComplete:
		if r.CommandComplete != nil {
			r.CommandComplete(CommandCompleteEvent{
				SessionID: envelope.String("sessionId"),
				ExitCode:  envelope.Int("exitCode"),
				Timestamp: envelope.Time("timestamp"),
			})
		}
	case wire.TypeSessionLocked:
		if r.SessionLocked != nil {
			r.SessionLocked(envelope.String("sessionId"))
		}
	case wire.TypeSessionUnlocked:
		if r.SessionUnlocked != nil {
			r.SessionUnlocked(envelope.String("sessionId"))
		}
	case wire.TypeAuthError:
		if r.AuthError != nil {
			r.AuthError(envelope.String("code"), envelope.String("message"))
		}
	case wire.TypeError:
		if r.ServerError != nil {
			r.ServerError(envelope.String("message"))
		}
	default:
		r.logger().Debug("ignoring unhandled message type", "type", envelope.Type)
	}
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func decodeSessionSummary(fields map[string]any) SessionSummary {
	e := wire.Envelope{Fields: fields}
	return SessionSummary{
		ID:               e.String("sessionId"),
		Name:             e.String("name"),
		WorkingDirectory: e.String("workingDirectory"),
		LastModified:     e.Time("lastModified"),
		MessageCount:     e.Int("messageCount"),
		Preview:          e.String("preview"),
		QueuePosition:    e.Int("queuePosition"),
		QueuePriority:    e.Int("queuePriority"),
		PriorityOrder:    e.Float("priorityOrder"),
		QueuedAt:         e.Time("queuedAt"),
	}
}

// decodeMessageEvent accepts both shapes the backend uses: fields
// nested under a "message" object, or flat on the envelope.
func decodeMessageEvent(envelope wire.Envelope) MessageEvent {
	e := envelope
	if nested := envelope.Map("message"); nested != nil {
		e = wire.Envelope{Fields: nested}
	}
	text := e.String("text")
	if text == "" {
		text = e.String("content")
	}
	sessionID := e.String("sessionId")
	if sessionID == "" {
		sessionID = envelope.String("sessionId")
	}
	return MessageEvent{
		ID:            e.String("id"),
		CorrelationID: e.String("correlationId"),
		SessionID:     sessionID,
		Role:          e.String("role"),
		Text:          text,
		Timestamp:     e.Time("timestamp"),
	}
}
