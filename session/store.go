// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/voicecode-project/voicecode/lib/clock"
)

// Persistence is the durable-storage collaborator the store writes
// through. Implementations live in the persist package; a nil
// Persistence gives a memory-only store, which is what most tests use.
type Persistence interface {
	SaveSession(session Session) error
	LoadSessions() ([]Session, error)
	SaveMessage(message Message) error
	LoadMessages(sessionID string) ([]Message, error)
}

// StoreConfig configures a Store. All fields are optional.
type StoreConfig struct {
	// Clock supplies timestamps for optimistic messages. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives persistence-failure warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Persistence, when set, receives every mutation and seeds the
	// store via Hydrate.
	Persistence Persistence
}

// Store is the local cache of sessions and their transcripts. It is
// safe for concurrent use; all mutations are serialized internally and
// subscribers see each mutation's effects atomically.
type Store struct {
	clock       clock.Clock
	logger      *slog.Logger
	persistence Persistence

	mu          sync.Mutex
	sessions    map[string]*Session
	transcripts map[string][]*Message
	nextSeq     uint64
	subscribers []func()
}

// NewStore creates an empty store.
func NewStore(config StoreConfig) *Store {
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		clock:       c,
		logger:      logger,
		persistence: config.Persistence,
		sessions:    map[string]*Session{},
		transcripts: map[string][]*Message{},
	}
}

// Subscribe registers fn to run after every mutation. Subscribers are
// invoked outside the store lock and must not assume ordering between
// concurrent mutations.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	subscribers := make([]func(), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn()
	}
}

// Hydrate loads sessions and transcripts from the persistence
// collaborator. Call once at startup, before the connection comes up,
// so the UI has history while offline.
func (s *Store) Hydrate() error {
	if s.persistence == nil {
		return nil
	}

	sessions, err := s.persistence.LoadSessions()
	if err != nil {
		return fmt.Errorf("session: hydrating sessions: %w", err)
	}

	s.mu.Lock()
	for _, loaded := range sessions {
		copied := loaded
		copied.ID = CanonicalID(copied.ID)
		s.sessions[copied.ID] = &copied

		messages, err := s.persistence.LoadMessages(copied.ID)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: hydrating messages for %s: %w", copied.ID, err)
		}
		for _, message := range messages {
			m := message
			m.seq = s.nextSeq
			s.nextSeq++
			s.transcripts[copied.ID] = append(s.transcripts[copied.ID], &m)
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// UpsertSession inserts or merges a session record. The server is
// authoritative for activity fields (LastModified, MessageCount,
// Preview, queue metadata); a locally-assigned display name survives
// the merge unless the incoming record explicitly clears it.
func (s *Store) UpsertSession(incoming Session) {
	incoming.ID = CanonicalID(incoming.ID)
	if incoming.ID == "" {
		return
	}

	s.mu.Lock()
	existing, ok := s.sessions[incoming.ID]
	if !ok {
		copied := incoming
		s.sessions[incoming.ID] = &copied
		s.persistLocked(copied)
		s.mu.Unlock()
		s.notify()
		return
	}

	existing.WorkingDirectory = incoming.WorkingDirectory
	existing.LastModified = incoming.LastModified
	existing.MessageCount = incoming.MessageCount
	existing.Preview = incoming.Preview
	existing.QueuePosition = incoming.QueuePosition
	existing.QueuePriority = incoming.QueuePriority
	existing.PriorityOrder = incoming.PriorityOrder
	existing.QueuedAt = incoming.QueuedAt
	if incoming.Name != "" && !existing.LocalName {
		existing.Name = incoming.Name
	}
	s.persistLocked(*existing)
	s.mu.Unlock()
	s.notify()
}

// SetSessionName renames a session locally. The name is marked
// locally-owned so later server merges do not overwrite it.
func (s *Store) SetSessionName(sessionID, name string) {
	sessionID = CanonicalID(sessionID)

	s.mu.Lock()
	existing, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	existing.Name = name
	existing.LocalName = true
	s.persistLocked(*existing)
	s.mu.Unlock()
	s.notify()
}

// DeleteSession soft-deletes a session: hidden from Sessions, retained
// in persistence. There is no hard delete.
func (s *Store) DeleteSession(sessionID string) {
	sessionID = CanonicalID(sessionID)

	s.mu.Lock()
	existing, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	existing.Deleted = true
	s.persistLocked(*existing)
	s.mu.Unlock()
	s.notify()
}

// Session returns a copy of one session record.
func (s *Store) Session(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[CanonicalID(sessionID)]
	if !ok {
		return Session{}, false
	}
	return *existing, true
}

// Sessions returns the visible sessions, most recently modified first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	out := make([]Session, 0, len(s.sessions))
	for _, existing := range s.sessions {
		if existing.Deleted {
			continue
		}
		out = append(out, *existing)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CreateOptimisticMessage appends a not-yet-confirmed message so the
// UI reflects the send before any network round-trip. The returned
// message carries the client-generated ID and correlation ID; the
// correlation ID goes out with the prompt and ties the server echo
// back to this entry.
func (s *Store) CreateOptimisticMessage(sessionID, text string, role Role) Message {
	sessionID = CanonicalID(sessionID)
	message := Message{
		ID:            uuid.NewString(),
		CorrelationID: uuid.NewString(),
		SessionID:     sessionID,
		Role:          role,
		Text:          text,
		Timestamp:     s.clock.Now(),
		Status:        StatusSending,
	}

	s.mu.Lock()
	message.seq = s.nextSeq
	s.nextSeq++
	stored := message
	s.transcripts[sessionID] = append(s.transcripts[sessionID], &stored)
	s.persistMessageLocked(stored)
	s.mu.Unlock()

	s.notify()
	return message
}

// Reconcile applies a server-confirmed message to the transcript.
//
// A pending optimistic entry is matched by correlation ID when the
// server echoes one, otherwise by role and text (oldest first). The
// matched entry is replaced in place — server ID, server timestamp,
// status confirmed — keeping its insertion sequence so the transcript
// does not jump. With no match the message is appended as new; that is
// the normal path for assistant output and for messages sent from
// other clients, not an error.
//
// Reconcile is idempotent: a message whose server ID is already in the
// transcript is ignored.
func (s *Store) Reconcile(sessionID string, server Message) {
	sessionID = CanonicalID(sessionID)
	server.SessionID = sessionID
	server.Status = StatusConfirmed
	if server.Timestamp.IsZero() {
		// Backends omit timestamps on some streamed events; stamp on
		// arrival so ordering stays stable.
		server.Timestamp = s.clock.Now()
	}

	s.mu.Lock()
	transcript := s.transcripts[sessionID]

	for _, existing := range transcript {
		if server.ID != "" && existing.ID == server.ID {
			s.mu.Unlock()
			return
		}
	}

	target := s.matchPendingLocked(transcript, server)
	if target != nil {
		seq := target.seq
		*target = server
		target.seq = seq
		s.persistMessageLocked(*target)
		s.mu.Unlock()
		s.notify()
		return
	}

	server.seq = s.nextSeq
	s.nextSeq++
	stored := server
	s.transcripts[sessionID] = append(s.transcripts[sessionID], &stored)
	s.persistMessageLocked(stored)
	s.mu.Unlock()
	s.notify()
}

// matchPendingLocked finds the optimistic entry a server echo
// corresponds to. Correlation ID wins; the (role, text) fallback picks
// the oldest pending entry so duplicate consecutive texts resolve in
// send order.
func (s *Store) matchPendingLocked(transcript []*Message, server Message) *Message {
	if server.CorrelationID != "" {
		for _, existing := range transcript {
			if existing.Status == StatusSending && existing.CorrelationID == server.CorrelationID {
				return existing
			}
		}
	}
	for _, existing := range transcript {
		if existing.Status == StatusSending && existing.Role == server.Role && existing.Text == server.Text {
			return existing
		}
	}
	return nil
}

// MarkError transitions a pending message to the error state. The
// message stays in the transcript with the failure attached.
func (s *Store) MarkError(localID, errorText string) bool {
	s.mu.Lock()
	for _, transcript := range s.transcripts {
		for _, existing := range transcript {
			if existing.ID != localID {
				continue
			}
			if existing.Status != StatusSending {
				s.mu.Unlock()
				return false
			}
			existing.Status = StatusError
			existing.Error = errorText
			s.persistMessageLocked(*existing)
			s.mu.Unlock()
			s.notify()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// MessagesForSession returns the transcript in chronological order.
// Equal timestamps keep insertion order, so repeated reads never
// shuffle content the user is looking at.
func (s *Store) MessagesForSession(sessionID string) []Message {
	sessionID = CanonicalID(sessionID)

	s.mu.Lock()
	transcript := s.transcripts[sessionID]
	out := make([]Message, len(transcript))
	for i, existing := range transcript {
		out[i] = *existing
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// persistLocked writes a session through to storage. Persistence
// failures degrade to a warning: the in-memory state is already
// updated and the UI must not stall on a disk problem.
func (s *Store) persistLocked(record Session) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.SaveSession(record); err != nil {
		s.logger.Warn("session persistence failed",
			"session_id", record.ID,
			"error", err,
		)
	}
}

func (s *Store) persistMessageLocked(record Message) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.SaveMessage(record); err != nil {
		s.logger.Warn("message persistence failed",
			"session_id", record.SessionID,
			"message_id", record.ID,
			"error", err,
		)
	}
}
