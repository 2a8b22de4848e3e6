// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// voicecode-mock-server is a stand-in backend for developing and
// demoing the client without a real assistant. It speaks the full wire
// protocol: welcome on connect, pong for ping, ack plus a canned
// assistant turn for prompts, session bookkeeping for subscribe and
// delete, and an error envelope for unknown message types.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/voicecode-project/voicecode/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		host       string
		port       int
		turnDelay  time.Duration
		replyText  string
	)
	flagSet := pflag.NewFlagSet("voicecode-mock-server", pflag.ContinueOnError)
	flagSet.StringVar(&host, "host", "127.0.0.1", "listen host")
	flagSet.IntVar(&port, "port", 8765, "listen port")
	flagSet.DurationVar(&turnDelay, "turn-delay", 500*time.Millisecond, "simulated thinking time per prompt")
	flagSet.StringVar(&replyText, "reply", "Done. Anything else?", "canned assistant reply")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	backend := &mockBackend{
		logger:    logger,
		turnDelay: turnDelay,
		replyText: replyText,
		sessions:  map[string]*mockSession{},
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", backend.handleWS)
	logger.Info("mock backend listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type mockSession struct {
	ID           string
	Name         string
	WorkingDir   string
	LastModified time.Time
	Messages     []wire.Envelope
}

type mockBackend struct {
	logger    *slog.Logger
	turnDelay time.Duration
	replyText string

	mu       sync.Mutex
	sessions map[string]*mockSession
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (b *mockBackend) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("upgrade failed", "error", err)
		return
	}
	client := &mockClient{backend: b, conn: conn, logger: b.logger.With("remote", r.RemoteAddr)}
	client.serve()
}

// mockClient is one connected client. Writes are serialized through
// writeMu; the prompt turn simulation runs on its own goroutine.
type mockClient struct {
	backend *mockBackend
	conn    *websocket.Conn
	logger  *slog.Logger
	writeMu sync.Mutex
}

func (c *mockClient) serve() {
	defer c.conn.Close()
	c.logger.Info("client connected")

	c.send(wire.NewEnvelope(wire.TypeConnected, map[string]any{
		"message": "voicecode mock backend",
	}))
	c.sendSessionList()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Info("client disconnected", "error", err)
			return
		}
		envelope, err := wire.Decode(data)
		if err != nil {
			c.send(wire.NewEnvelope(wire.TypeError, map[string]any{
				"message": "malformed frame",
			}))
			continue
		}
		c.handle(envelope)
	}
}

func (c *mockClient) handle(envelope wire.Envelope) {
	switch envelope.Type {
	case wire.TypeConnect:
		// Welcome already sent on socket open.
	case wire.TypePing:
		c.send(wire.NewEnvelope(wire.TypePong, nil))
	case wire.TypePrompt:
		c.handlePrompt(envelope)
	case wire.TypeSubscribe:
		c.replayMessages(envelope.String("sessionId"))
	case wire.TypeUnsubscribe:
		// Nothing to tear down; replay is synchronous.
	case wire.TypeSessionDeleted:
		c.backend.mu.Lock()
		delete(c.backend.sessions, envelope.String("sessionId"))
		c.backend.mu.Unlock()
	default:
		c.send(wire.NewEnvelope(wire.TypeError, map[string]any{
			"message": fmt.Sprintf("unknown message type: %s", envelope.Type),
		}))
	}
}

func (c *mockClient) handlePrompt(envelope wire.Envelope) {
	text := envelope.String("text")
	correlationID := envelope.String("correlationId")

	sessionID := envelope.String("resumeSessionId")
	created := false
	if sessionID == "" {
		sessionID = envelope.String("newSessionId")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		created = true
	}

	b := c.backend
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = &mockSession{
			ID:         sessionID,
			Name:       firstWords(text, 4),
			WorkingDir: envelope.String("workingDirectory"),
		}
		b.sessions[sessionID] = s
		created = true
	}
	s.LastModified = time.Now()

	userMessage := messageEnvelope(sessionID, uuid.NewString(), correlationID, "user", text)
	s.Messages = append(s.Messages, userMessage)
	b.mu.Unlock()

	c.send(wire.NewEnvelope(wire.TypeAck, map[string]any{
		"sessionId":     sessionID,
		"correlationId": correlationID,
	}))
	if created {
		c.send(wire.NewEnvelope(wire.TypeSessionCreated, map[string]any{
			"sessionId":    sessionID,
			"name":         s.Name,
			"lastModified": wire.FormatTimestamp(s.LastModified),
		}))
	}
	c.send(wire.NewEnvelope(wire.TypeSessionLocked, map[string]any{"sessionId": sessionID}))
	c.send(userMessage)

	go c.finishTurn(sessionID)
}

// finishTurn plays the assistant's side after the configured delay.
func (c *mockClient) finishTurn(sessionID string) {
	time.Sleep(c.backend.turnDelay)

	reply := messageEnvelope(sessionID, uuid.NewString(), "", "assistant", c.backend.replyText)
	b := c.backend
	b.mu.Lock()
	if s, ok := b.sessions[sessionID]; ok {
		s.Messages = append(s.Messages, reply)
		s.LastModified = time.Now()
	}
	b.mu.Unlock()

	c.send(reply)
	c.send(wire.NewEnvelope(wire.TypeTurnComplete, map[string]any{"sessionId": sessionID}))
	c.send(wire.NewEnvelope(wire.TypeSessionUnlocked, map[string]any{"sessionId": sessionID}))
}

func (c *mockClient) replayMessages(sessionID string) {
	b := c.backend
	b.mu.Lock()
	var messages []wire.Envelope
	if s, ok := b.sessions[sessionID]; ok {
		messages = append(messages, s.Messages...)
	}
	b.mu.Unlock()

	for _, m := range messages {
		c.send(m)
	}
}

func (c *mockClient) sendSessionList() {
	b := c.backend
	b.mu.Lock()
	sessions := make([]*mockSession, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastModified.After(sessions[j].LastModified)
	})

	list := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, map[string]any{
			"sessionId":        s.ID,
			"name":             s.Name,
			"workingDirectory": s.WorkingDir,
			"lastModified":     wire.FormatTimestamp(s.LastModified),
			"messageCount":     len(s.Messages),
		})
	}
	c.send(wire.NewEnvelope(wire.TypeSessionList, map[string]any{"sessions": list}))
}

func (c *mockClient) send(envelope wire.Envelope) {
	data, err := wire.Encode(envelope)
	if err != nil {
		c.logger.Error("encode failed", "type", envelope.Type, "error", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warn("write failed", "error", err)
	}
}

func messageEnvelope(sessionID, id, correlationID, role, text string) wire.Envelope {
	fields := map[string]any{
		"sessionId": sessionID,
		"id":        id,
		"role":      role,
		"text":      text,
		"timestamp": wire.FormatTimestamp(time.Now()),
	}
	if correlationID != "" {
		fields["correlationId"] = correlationID
	}
	return wire.NewEnvelope(wire.TypeMessage, fields)
}

func firstWords(s string, n int) string {
	words := 0
	for i, r := range s {
		if r == ' ' {
			words++
			if words == n {
				return s[:i]
			}
		}
	}
	return s
}
