// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/voicecode-project/voicecode/client"
	"github.com/voicecode-project/voicecode/session"
	"github.com/voicecode-project/voicecode/wire"
)

// Conn is the slice of the connection manager the model needs.
type Conn interface {
	Send(wire.Envelope) error
}

// StoreChangedMsg tells the model the session store mutated. The cmd
// layer forwards store notifications as this message.
type StoreChangedMsg struct{}

// ConnStateMsg carries a connection state change into the message loop.
type ConnStateMsg struct {
	State client.State
}

// LockChangedMsg tells the model a session lock was taken or released
// outside the model's own actions (turn completion, safety timeout).
type LockChangedMsg struct {
	SessionID string
}

// AuthErrorMsg reports that the backend rejected the client's
// credentials. It puts the model in a blocking state: no prompts go out
// until a reconnect re-authenticates.
type AuthErrorMsg struct {
	Code    string
	Message string
}

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusSessions means navigation keys move the session cursor.
	FocusSessions FocusRegion = iota
	// FocusPrompt means keystrokes go to the prompt input.
	FocusPrompt
)

// Config holds the model's collaborators.
type Config struct {
	Store *session.Store
	Locks *session.LockTracker
	Conn  Conn

	// WorkingDirectory is sent with prompts that start a new session.
	WorkingDirectory string

	// Theme defaults to DefaultTheme when nil.
	Theme *Theme
	Keys  KeyMap
}

// Model is the top-level bubbletea model.
type Model struct {
	store            *session.Store
	locks            *session.LockTracker
	conn             Conn
	workingDirectory string
	theme            Theme
	keys             KeyMap

	width  int
	height int
	ready  bool

	focus      FocusRegion
	cursor     int
	selectedID string
	sessions   []session.Session

	transcript viewport.Model
	prompt     textinput.Model

	connState   client.State
	authBlocked bool
	notice      string
}

// NewModel builds the initial model. Zero-valued Theme and Keys fall
// back to the defaults.
func NewModel(cfg Config) Model {
	prompt := textinput.New()
	prompt.Placeholder = "Type a prompt..."
	prompt.Focus()

	theme := DefaultTheme()
	if cfg.Theme != nil {
		theme = *cfg.Theme
	}
	keys := cfg.Keys
	if keys.Quit.Keys() == nil {
		keys = DefaultKeyMap()
	}

	return Model{
		store:            cfg.Store,
		locks:            cfg.Locks,
		conn:             cfg.Conn,
		workingDirectory: cfg.WorkingDirectory,
		theme:            theme,
		keys:             keys,
		focus:            FocusPrompt,
		prompt:           prompt,
		connState:        client.StateDisconnected,
		sessions:         cfg.Store.Sessions(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.transcript = viewport.New(m.transcriptWidth(), m.contentHeight())
		m.refreshTranscript()
		return m, nil

	case StoreChangedMsg:
		m.refreshSessions()
		m.refreshTranscript()
		return m, nil

	case ConnStateMsg:
		m.connState = msg.State
		if msg.State == client.StateConnected && m.authBlocked {
			// A fresh connection re-authenticates; lift the block.
			m.authBlocked = false
			m.notice = ""
		}
		return m, nil

	case AuthErrorMsg:
		m.authBlocked = true
		m.notice = "authentication failed (" + msg.Code + "): " + msg.Message
		return m, nil

	case LockChangedMsg:
		// Lock state is read live from the tracker; receiving the
		// message just forces a redraw.
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == FocusSessions {
			m.focus = FocusPrompt
			m.prompt.Focus()
		} else {
			m.focus = FocusSessions
			m.prompt.Blur()
		}
		return m, nil
	}

	if m.focus == FocusSessions {
		return m.handleSessionKey(msg)
	}

	if key.Matches(msg, m.keys.Select) {
		m.submitPrompt()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		m.selectCursorSession()
	case key.Matches(msg, m.keys.DeleteSession):
		m.deleteCursorSession()
	case key.Matches(msg, m.keys.Unlock):
		// Manual override for a stuck lock.
		if m.selectedID != "" {
			m.locks.Unlock(m.selectedID)
			m.notice = "lock cleared"
		}
	}
	return m, nil
}

// selectCursorSession switches the transcript to the session under the
// cursor and asks the backend to stream it.
func (m *Model) selectCursorSession() {
	if m.cursor >= len(m.sessions) {
		return
	}
	previous := m.selectedID
	m.selectedID = m.sessions[m.cursor].ID
	m.refreshTranscript()

	if m.conn == nil || m.selectedID == previous {
		return
	}
	if previous != "" {
		if err := m.conn.Send(wire.Unsubscribe(previous)); err != nil {
			m.notice = "offline: showing cached history"
			return
		}
	}
	if err := m.conn.Send(wire.Subscribe(m.selectedID)); err != nil {
		m.notice = "offline: showing cached history"
	}
}

// deleteCursorSession soft-deletes the session under the cursor and
// tells the backend.
func (m *Model) deleteCursorSession() {
	if m.cursor >= len(m.sessions) {
		return
	}
	id := m.sessions[m.cursor].ID
	m.store.DeleteSession(id)
	if id == m.selectedID {
		m.selectedID = ""
	}
	if m.conn != nil {
		if err := m.conn.Send(wire.DeleteSession(id)); err != nil {
			m.notice = "delete not synced: offline"
		}
	}
	m.refreshSessions()
	m.refreshTranscript()
}

// submitPrompt sends the prompt input as an optimistic message. A
// locked session, a rejected authentication, or a missing connection
// rejects the submission; the text stays in the input so nothing is
// lost.
func (m *Model) submitPrompt() {
	text := strings.TrimSpace(m.prompt.Value())
	if text == "" {
		return
	}
	if m.authBlocked {
		m.notice = "authentication required: reconnect to continue"
		return
	}
	if m.conn == nil {
		m.notice = "offline: prompt not sent"
		return
	}

	newSession := m.selectedID == ""
	if newSession {
		// Offer a client-generated ID; the backend adopts it.
		m.selectedID = session.CanonicalID(uuid.NewString())
		m.store.UpsertSession(session.Session{ID: m.selectedID})
		m.refreshSessions()
	}

	if m.locks.IsLocked(m.selectedID) {
		m.notice = "assistant is still working on this session"
		return
	}

	message := m.store.CreateOptimisticMessage(m.selectedID, text, session.RoleUser)
	m.locks.Lock(m.selectedID)
	m.prompt.SetValue("")
	m.notice = ""

	envelope := wire.Prompt(text, m.workingDirectory, m.selectedID, message.CorrelationID, newSession)
	if err := m.conn.Send(envelope); err != nil {
		m.store.MarkError(message.ID, err.Error())
		m.locks.Unlock(m.selectedID)
		m.notice = "send failed: " + err.Error()
	}
	m.refreshTranscript()
}

func (m *Model) refreshSessions() {
	m.sessions = m.store.Sessions()
	if m.cursor >= len(m.sessions) && m.cursor > 0 {
		m.cursor = len(m.sessions) - 1
	}
}

func (m *Model) refreshTranscript() {
	if !m.ready || m.selectedID == "" {
		return
	}
	var b strings.Builder
	for _, message := range m.store.MessagesForSession(m.selectedID) {
		b.WriteString(m.renderMessage(message))
		b.WriteByte('\n')
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m *Model) renderMessage(message session.Message) string {
	prefix := "  "
	style := m.theme.AssistantText
	switch {
	case message.Status == session.StatusError:
		style = m.theme.ErrorMessage
		prefix = "! "
	case message.Status == session.StatusSending:
		style = m.theme.PendingMessage
		prefix = "… "
	case message.Role == session.RoleUser:
		style = m.theme.UserMessage
		prefix = "> "
	}
	line := prefix + message.Text
	if message.Error != "" {
		line += " (" + message.Error + ")"
	}
	return style.Render(line)
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSessionList(), m.transcript.View())
	return body + "\n" + m.prompt.View() + "\n" + m.renderStatusBar()
}

func (m Model) renderSessionList() string {
	var b strings.Builder
	for i, s := range m.sessions {
		name := s.Name
		if name == "" {
			name = shortID(s.ID)
		}
		line := name
		if m.locks.IsLocked(s.ID) {
			line = m.theme.SessionLocked.Render("* " + line)
		}
		if i == m.cursor && m.focus == FocusSessions {
			line = m.theme.SessionSelected.Render(line)
		}
		if s.ID == m.selectedID {
			line = "[" + line + "]"
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(m.sessions) == 0 {
		b.WriteString("no sessions yet")
	}
	return m.theme.SessionList.Width(m.sessionListWidth()).Render(b.String())
}

func (m Model) renderStatusBar() string {
	state := m.theme.StatusDown.Render(string(m.connState))
	if m.connState == client.StateConnected {
		state = m.theme.StatusConnected.Render(string(m.connState))
	}
	parts := []string{state, fmt.Sprintf("%d sessions", len(m.sessions))}
	if m.authBlocked {
		parts = append(parts, m.theme.StatusDown.Render("auth required"))
	}
	if m.notice != "" {
		parts = append(parts, m.theme.Notice.Render(m.notice))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  |  "))
}

func (m Model) sessionListWidth() int {
	w := m.width / 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) transcriptWidth() int {
	return m.width - m.sessionListWidth()
}

func (m Model) contentHeight() int {
	// Prompt line plus status bar.
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
