// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"
	"time"

	"github.com/voicecode-project/voicecode/lib/clock"
)

func TestLockGating(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	tracker := NewLockTracker(LockTrackerConfig{Clock: fake})

	if tracker.IsLocked("s1") {
		t.Fatal("fresh tracker reports lock")
	}
	tracker.Lock("s1")
	if !tracker.IsLocked("s1") {
		t.Fatal("IsLocked false immediately after Lock")
	}
	tracker.Unlock("s1")
	if tracker.IsLocked("s1") {
		t.Fatal("IsLocked true immediately after Unlock")
	}

	// Unlock of an unknown session is a no-op.
	tracker.Unlock("never-locked")
}

func TestLockCanonicalizesIDs(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	tracker := NewLockTracker(LockTrackerConfig{Clock: fake})

	// The client locks with the ID it has; the server echoes the same
	// ID in its canonical case. Both must hit the same entry.
	tracker.Lock("ABC-Def-123")
	if !tracker.IsLocked("abc-def-123") {
		t.Fatal("lock not visible under canonical ID")
	}
	tracker.Unlock("abc-DEF-123")
	if tracker.IsLocked("abc-def-123") {
		t.Fatal("unlock via differently-cased ID did not release")
	}
}

func TestLockTimeout(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	var released []string
	tracker := NewLockTracker(LockTrackerConfig{
		Clock:        fake,
		Timeout:      time.Minute,
		OnAutoUnlock: func(id string) { released = append(released, id) },
	})

	tracker.Lock("s1")
	fake.Advance(59 * time.Second)
	if !tracker.IsLocked("s1") {
		t.Fatal("lock released before the ceiling")
	}

	fake.Advance(time.Second)
	if tracker.IsLocked("s1") {
		t.Fatal("lock survived the safety ceiling")
	}
	if len(released) != 1 || released[0] != "s1" {
		t.Errorf("auto-unlock callback = %v", released)
	}
}

func TestUnlockCancelsTimer(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	var released []string
	tracker := NewLockTracker(LockTrackerConfig{
		Clock:        fake,
		Timeout:      time.Minute,
		OnAutoUnlock: func(id string) { released = append(released, id) },
	})

	tracker.Lock("s1")
	tracker.Unlock("s1")
	fake.Advance(time.Hour)

	if len(released) != 0 {
		t.Errorf("cancelled timer still fired: %v", released)
	}
	if fake.PendingTimers() != 0 {
		t.Errorf("pending timers = %d, want 0", fake.PendingTimers())
	}
}

func TestRelockRestartsTimer(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	tracker := NewLockTracker(LockTrackerConfig{Clock: fake, Timeout: time.Minute})

	tracker.Lock("s1")
	fake.Advance(45 * time.Second)
	tracker.Lock("s1")
	fake.Advance(45 * time.Second)

	// 90s total, but only 45s since the re-lock.
	if !tracker.IsLocked("s1") {
		t.Fatal("re-lock did not restart the safety timer")
	}

	fake.Advance(15 * time.Second)
	if tracker.IsLocked("s1") {
		t.Fatal("lock survived past the restarted timer")
	}
}

func TestActiveLocks(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	tracker := NewLockTracker(LockTrackerConfig{Clock: fake})

	tracker.Lock("a")
	tracker.Lock("b")
	if got := len(tracker.ActiveLocks()); got != 2 {
		t.Errorf("ActiveLocks = %d, want 2", got)
	}
}
