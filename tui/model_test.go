// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicecode-project/voicecode/client"
	"github.com/voicecode-project/voicecode/lib/clock"
	"github.com/voicecode-project/voicecode/session"
	"github.com/voicecode-project/voicecode/wire"
)

// fakeConn records sent envelopes and optionally fails.
type fakeConn struct {
	sent []wire.Envelope
	err  error
}

func (f *fakeConn) Send(envelope wire.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, envelope)
	return nil
}

func newTestModel(t *testing.T) (Model, *session.Store, *session.LockTracker, *fakeConn) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := session.NewStore(session.StoreConfig{Clock: fake})
	locks := session.NewLockTracker(session.LockTrackerConfig{Clock: fake})
	conn := &fakeConn{}
	model := NewModel(Config{
		Store:            store,
		Locks:            locks,
		Conn:             conn,
		WorkingDirectory: "/home/user/demo",
	})

	// Size the model so the transcript pane exists.
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), store, locks, conn
}

func submit(t *testing.T, model Model, text string) Model {
	t.Helper()
	model.prompt.SetValue(text)
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model)
}

func TestSubmitPromptCreatesOptimisticMessageAndLock(t *testing.T) {
	model, store, locks, conn := newTestModel(t)

	model = submit(t, model, "add a login page")

	if model.selectedID == "" {
		t.Fatal("no session selected after first prompt")
	}
	messages := store.MessagesForSession(model.selectedID)
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	if messages[0].Status != session.StatusSending || messages[0].Text != "add a login page" {
		t.Errorf("optimistic message = %+v", messages[0])
	}
	if !locks.IsLocked(model.selectedID) {
		t.Error("session not locked after prompt")
	}
	if model.prompt.Value() != "" {
		t.Error("prompt input not cleared")
	}

	if len(conn.sent) != 1 {
		t.Fatalf("sent frames = %d, want 1", len(conn.sent))
	}
	envelope := conn.sent[0]
	if envelope.Type != wire.TypePrompt {
		t.Fatalf("frame type = %s, want prompt", envelope.Type)
	}
	if envelope.String("newSessionId") != model.selectedID {
		t.Errorf("newSessionId = %s, want %s", envelope.String("newSessionId"), model.selectedID)
	}
	if envelope.String("correlationId") != messages[0].CorrelationID {
		t.Error("correlation ID on the wire differs from the optimistic message")
	}
	if envelope.String("workingDirectory") != "/home/user/demo" {
		t.Errorf("workingDirectory = %s", envelope.String("workingDirectory"))
	}
}

func TestSubmitBlockedWhileLocked(t *testing.T) {
	model, store, locks, conn := newTestModel(t)

	model = submit(t, model, "first prompt")
	sessionID := model.selectedID
	if !locks.IsLocked(sessionID) {
		t.Fatal("session not locked")
	}

	model = submit(t, model, "second prompt")

	if got := len(store.MessagesForSession(sessionID)); got != 1 {
		t.Errorf("messages = %d, want 1 while locked", got)
	}
	if len(conn.sent) != 1 {
		t.Errorf("sent frames = %d, want 1 while locked", len(conn.sent))
	}
	if model.notice == "" {
		t.Error("no notice shown for blocked submission")
	}
	// The rejected text stays in the input.
	if model.prompt.Value() != "second prompt" {
		t.Errorf("prompt value = %q, want text preserved", model.prompt.Value())
	}
}

func TestSubmitAfterUnlock(t *testing.T) {
	model, _, locks, conn := newTestModel(t)

	model = submit(t, model, "first")
	locks.Unlock(model.selectedID)
	model = submit(t, model, "second")

	if len(conn.sent) != 2 {
		t.Fatalf("sent frames = %d, want 2", len(conn.sent))
	}
	// Resuming an existing session uses the resume field.
	if conn.sent[1].String("resumeSessionId") != model.selectedID {
		t.Errorf("resumeSessionId = %s", conn.sent[1].String("resumeSessionId"))
	}
}

func TestSubmitFailureMarksMessageErrored(t *testing.T) {
	model, store, locks, conn := newTestModel(t)
	conn.err = errors.New("socket closed")

	model = submit(t, model, "hello")

	messages := store.MessagesForSession(model.selectedID)
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	if messages[0].Status != session.StatusError {
		t.Errorf("status = %s, want error", messages[0].Status)
	}
	if locks.IsLocked(model.selectedID) {
		t.Error("session left locked after failed send")
	}
	if model.notice == "" {
		t.Error("no notice for failed send")
	}
}

func TestAuthErrorBlocksSubmissionUntilReconnect(t *testing.T) {
	model, store, locks, conn := newTestModel(t)

	model = submit(t, model, "first")
	sessionID := model.selectedID
	locks.Unlock(sessionID)

	updated, _ := model.Update(AuthErrorMsg{Code: "token_expired", Message: "bad token"})
	model = updated.(Model)

	model = submit(t, model, "second")
	if got := len(store.MessagesForSession(sessionID)); got != 1 {
		t.Errorf("messages = %d, want 1 while auth is blocked", got)
	}
	if len(conn.sent) != 1 {
		t.Errorf("sent frames = %d, want 1 while auth is blocked", len(conn.sent))
	}
	if model.notice == "" {
		t.Error("no notice shown for auth-blocked submission")
	}
	if model.prompt.Value() != "second" {
		t.Errorf("prompt value = %q, want text preserved", model.prompt.Value())
	}

	// A successful reconnect re-authenticates and lifts the block.
	updated, _ = model.Update(ConnStateMsg{State: client.StateConnected})
	model = updated.(Model)
	model = submit(t, model, "second")

	if len(conn.sent) != 2 {
		t.Errorf("sent frames = %d, want 2 after reconnect", len(conn.sent))
	}
	if got := len(store.MessagesForSession(sessionID)); got != 2 {
		t.Errorf("messages = %d, want 2 after reconnect", got)
	}
}

func TestSubmitWithoutConnection(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := session.NewStore(session.StoreConfig{Clock: fake})
	locks := session.NewLockTracker(session.LockTrackerConfig{Clock: fake})
	model := NewModel(Config{
		Store:            store,
		Locks:            locks,
		WorkingDirectory: "/home/user/demo",
	})
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model = updated.(Model)

	model = submit(t, model, "hello")

	if model.selectedID != "" && len(store.MessagesForSession(model.selectedID)) != 0 {
		t.Error("optimistic message created with no connection")
	}
	if model.notice == "" {
		t.Error("no notice shown for offline submission")
	}
	if model.prompt.Value() != "hello" {
		t.Errorf("prompt value = %q, want text preserved", model.prompt.Value())
	}
}

func TestStoreChangeRefreshesSessions(t *testing.T) {
	model, store, _, _ := newTestModel(t)

	store.UpsertSession(session.Session{ID: "s1", Name: "demo"})
	updated, _ := model.Update(StoreChangedMsg{})
	model = updated.(Model)

	if len(model.sessions) != 1 || model.sessions[0].Name != "demo" {
		t.Errorf("sessions = %+v", model.sessions)
	}
}

func TestConnStateShownInStatusBar(t *testing.T) {
	model, _, _, _ := newTestModel(t)

	updated, _ := model.Update(ConnStateMsg{State: client.StateConnected})
	model = updated.(Model)
	if model.connState != client.StateConnected {
		t.Errorf("connState = %s", model.connState)
	}

	view := model.View()
	if view == "" {
		t.Fatal("empty view")
	}
}

func TestQuitKey(t *testing.T) {
	model, _, _, _ := newTestModel(t)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c produced no command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("command = %v, want QuitMsg", msg)
	}
}
