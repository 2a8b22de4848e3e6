// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui is the interactive terminal front end: a session list,
// the selected session's transcript, and a prompt input, glued to the
// session store and the connection manager through the bubbletea
// message loop.
//
// The model never talks to the network directly. Prompt submission
// appends an optimistic message to the store, locks the session, and
// hands the envelope to the connection; everything the model displays
// comes back out of the store.
package tui
