// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voicecode-project/voicecode/lib/clock"
)

// DefaultLockTimeout is the safety ceiling on a session lock. A lock
// this old means the turn-completion signal was lost, not that the
// assistant is still thinking.
const DefaultLockTimeout = 3 * time.Minute

// LockTrackerConfig configures a LockTracker. All fields optional.
type LockTrackerConfig struct {
	// Timeout is the auto-unlock ceiling. Defaults to
	// DefaultLockTimeout.
	Timeout time.Duration

	// Clock drives the timeout timers. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives auto-unlock warnings. Defaults to slog.Default().
	Logger *slog.Logger

	// OnAutoUnlock, when set, is called (outside the tracker's lock)
	// after a timeout releases a session. The UI uses this to refresh
	// the prompt input.
	OnAutoUnlock func(sessionID string)
}

// LockTracker is the set of sessions with a prompt in flight. A locked
// session rejects new prompt submission until the server signals turn
// completion, the user overrides, or the safety timeout fires.
//
// Keys are canonical session IDs — the same namespace the server
// echoes in turn_complete. Locking by any other alias would leave the
// lock stranded when the completion signal arrives.
type LockTracker struct {
	timeout      time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	onAutoUnlock func(string)

	mu     sync.Mutex
	locked map[string]*clock.Timer
}

// NewLockTracker creates an empty tracker.
func NewLockTracker(config LockTrackerConfig) *LockTracker {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LockTracker{
		timeout:      timeout,
		clock:        c,
		logger:       logger,
		onAutoUnlock: config.OnAutoUnlock,
		locked:       map[string]*clock.Timer{},
	}
}

// Lock marks a session as having a prompt in flight. Called the moment
// the prompt is sent, before any server acknowledgement. Re-locking an
// already-locked session restarts its safety timer.
func (t *LockTracker) Lock(sessionID string) {
	sessionID = CanonicalID(sessionID)
	if sessionID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.locked[sessionID]; ok {
		timer.Stop()
	}
	t.locked[sessionID] = t.clock.AfterFunc(t.timeout, func() {
		t.expire(sessionID)
	})
}

// Unlock releases a session. Safe to call for sessions that are not
// locked.
func (t *LockTracker) Unlock(sessionID string) {
	sessionID = CanonicalID(sessionID)

	t.mu.Lock()
	timer, ok := t.locked[sessionID]
	if ok {
		timer.Stop()
		delete(t.locked, sessionID)
	}
	t.mu.Unlock()
}

// IsLocked reports whether a prompt is outstanding for the session.
func (t *LockTracker) IsLocked(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.locked[CanonicalID(sessionID)]
	return ok
}

// ActiveLocks returns the locked session IDs, for diagnostics.
func (t *LockTracker) ActiveLocks() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.locked))
	for sessionID := range t.locked {
		out = append(out, sessionID)
	}
	return out
}

// expire is the safety-timer callback. A lock hitting its ceiling
// almost always means a lost turn_complete, so it is logged loudly.
func (t *LockTracker) expire(sessionID string) {
	t.mu.Lock()
	_, ok := t.locked[sessionID]
	if ok {
		delete(t.locked, sessionID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	t.logger.Warn("session lock expired without turn completion",
		"session_id", sessionID,
		"timeout", t.timeout,
	)
	if t.onAutoUnlock != nil {
		t.onAutoUnlock(sessionID)
	}
}
