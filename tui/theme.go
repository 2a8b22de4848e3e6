// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the lipgloss styles for every rendered element.
type Theme struct {
	SessionList     lipgloss.Style
	SessionSelected lipgloss.Style
	SessionLocked   lipgloss.Style
	Transcript      lipgloss.Style
	UserMessage     lipgloss.Style
	AssistantText   lipgloss.Style
	PendingMessage  lipgloss.Style
	ErrorMessage    lipgloss.Style
	StatusBar       lipgloss.Style
	StatusConnected lipgloss.Style
	StatusDown      lipgloss.Style
	Notice          lipgloss.Style
}

// DefaultTheme returns the standard color scheme.
func DefaultTheme() Theme {
	return Theme{
		SessionList:     lipgloss.NewStyle().Padding(0, 1),
		SessionSelected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		SessionLocked:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Transcript:      lipgloss.NewStyle().Padding(0, 1),
		UserMessage:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		AssistantText:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		PendingMessage:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true),
		ErrorMessage:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusBar:       lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("250")),
		StatusConnected: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		StatusDown:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Notice:          lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// KeyMap holds the key bindings.
type KeyMap struct {
	Quit          key.Binding
	SwitchFocus   key.Binding
	Up            key.Binding
	Down          key.Binding
	Select        key.Binding
	DeleteSession key.Binding
	Unlock        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:          key.NewBinding(key.WithKeys("ctrl+c")),
		SwitchFocus:   key.NewBinding(key.WithKeys("tab")),
		Up:            key.NewBinding(key.WithKeys("up", "k")),
		Down:          key.NewBinding(key.WithKeys("down", "j")),
		Select:        key.NewBinding(key.WithKeys("enter")),
		DeleteSession: key.NewBinding(key.WithKeys("ctrl+d")),
		Unlock:        key.NewBinding(key.WithKeys("ctrl+u")),
	}
}
