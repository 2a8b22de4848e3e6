// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the client's authoritative local cache of
// sessions and messages, and the per-session prompt lock.
//
// The store is the single writer: the connection layer feeds it server
// events, the UI reads it through snapshots and change notifications,
// and nothing else mutates it. Messages sent by the user appear
// immediately with status "sending" and are later reconciled against
// the server's echo — matched by correlation ID when the server echoes
// one, by role and text otherwise.
//
// All session IDs are canonicalized to lowercase on entry. The store,
// the lock tracker, and the wire layer share that single namespace;
// there is no separate client-local session identity.
package session
